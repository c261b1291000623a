//go:build integration

package integration

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/meigma/tarcat"
	"github.com/meigma/tarcat/internal/testutil"
	"github.com/stretchr/testify/require"
)

var fixtureTime = time.Unix(1700000000, 0).UTC()

// --- Fixture Builders ---

// sortedFiles converts a content map into a deterministic fixture file list.
func sortedFiles(contents map[string]string) []testutil.File {
	names := slices.Sorted(maps.Keys(contents))
	files := make([]testutil.File, 0, len(names))
	for _, name := range names {
		files = append(files, testutil.File{
			Name:    name,
			Content: contents[name],
			Mode:    0o644,
			ModTime: fixtureTime,
		})
	}
	return files
}

// streamArchives runs the pipeline over paths and returns the produced tar
// stream.
func streamArchives(tb testing.TB, paths []string, opts ...tarcat.Option) ([]byte, tarcat.Stats) {
	tb.Helper()

	var buf bytes.Buffer
	stats, err := tarcat.New(paths, opts...).Run(context.Background(), &buf)
	require.NoError(tb, err, "Run")
	return buf.Bytes(), stats
}

// --- Stream Readback ---

// member is one entry read back from a produced stream.
type member struct {
	Header  tar.Header
	Content string
}

// readStream re-reads a tar stream into its ordered members.
func readStream(tb testing.TB, stream []byte) []member {
	tb.Helper()

	tr := tar.NewReader(bytes.NewReader(stream))
	var members []member
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return members
		}
		require.NoError(tb, err, "read produced stream")
		content, err := io.ReadAll(tr)
		require.NoError(tb, err, "read member %q", hdr.Name)
		members = append(members, member{Header: *hdr, Content: string(content)})
	}
}

// memberNames returns member names in stream order.
func memberNames(members []member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Header.Name
	}
	return names
}

// regularContents maps regular-file member names to their content.
func regularContents(members []member) map[string]string {
	contents := make(map[string]string, len(members))
	for _, m := range members {
		if m.Header.Typeflag == tar.TypeReg {
			contents[m.Header.Name] = m.Content
		}
	}
	return contents
}

// assertStreamContents verifies every expected file arrived with its content
// and nothing else did.
func assertStreamContents(tb testing.TB, members []member, expected map[string]string) {
	tb.Helper()

	got := regularContents(members)
	require.Len(tb, got, len(expected), "regular member count")
	for name, want := range expected {
		require.Equal(tb, want, got[name], "content mismatch for %q", name)
	}
}

// hasTarTrailer reports whether stream ends with the two zero blocks a
// complete tar stream carries.
func hasTarTrailer(stream []byte) bool {
	if len(stream) < 1024 {
		return false
	}
	tail := stream[len(stream)-1024:]
	for _, b := range tail {
		if b != 0 {
			return false
		}
	}
	return true
}

// --- Test Data Helpers ---

// makeCompressibleContent creates content that benefits from compression.
func makeCompressibleContent(size int) string {
	pattern := []byte("This is a repeating pattern for compression testing. ")
	result := make([]byte, 0, size)
	for len(result) < size {
		result = append(result, pattern...)
	}
	return string(result[:size])
}

// makeRandomContent creates random binary content.
func makeRandomContent(size int) string {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return string(data)
}

// --- Standard Test Fixtures ---

// smallArchive is a simple flat archive with 3 small files.
var smallArchive = map[string]string{
	"hello.txt":   "Hello, World!",
	"readme.md":   "# Test Archive\n\nThis is a test.",
	"config.json": `{"version": 1, "name": "test"}`,
}

// nestedArchive contains nested directories.
var nestedArchive = map[string]string{
	"root.txt":        "root file",
	"dir1/a.txt":      "file a in dir1",
	"dir1/b.txt":      "file b in dir1",
	"dir1/sub/c.txt":  "file c in dir1/sub",
	"dir2/x.txt":      "file x in dir2",
	"dir2/deep/y.txt": "file y in dir2/deep",
	"dir2/deep/z.txt": "file z in dir2/deep",
}

// compressibleArchive contains files that benefit significantly from
// compression.
var compressibleArchive = map[string]string{
	"large.txt":     makeCompressibleContent(100 * 1024),
	"small.txt":     "tiny",
	"repeated.json": `{"data": "` + makeCompressibleContent(10*1024) + `"}`,
}
