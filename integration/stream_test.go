//go:build integration

package integration

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarcat"
	"github.com/meigma/tarcat/codec"
	"github.com/meigma/tarcat/internal/testutil"
)

// --- Single Sources ---

func TestE2E_TarSource(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, sortedFiles(nestedArchive))
	stream, stats := streamArchives(t, []string{path})

	members := readStream(t, stream)
	assertStreamContents(t, members, nestedArchive)
	assert.Equal(t, len(nestedArchive), stats.Entries)
	assert.True(t, hasTarTrailer(stream), "complete stream carries the tar trailer")
}

func TestE2E_ZipSource(t *testing.T) {
	t.Parallel()

	path := testutil.ZipFile(t, "src.zip", sortedFiles(smallArchive))
	stream, stats := streamArchives(t, []string{path})

	members := readStream(t, stream)
	assertStreamContents(t, members, smallArchive)
	assert.Equal(t, len(smallArchive), stats.Entries)

	for _, m := range members {
		assert.Equal(t, int64(0o644), m.Header.Mode&0o777, "mode of %q", m.Header.Name)
		assert.True(t, fixtureTime.Equal(m.Header.ModTime), "mtime of %q", m.Header.Name)
	}
}

func TestE2E_CompressedTarSources(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		c    codec.Codec
	}{
		{name: "src.tar.gz", c: codec.Gzip},
		{name: "src.tgz", c: codec.Gzip},
		{name: "src.tar.bz2", c: codec.Bzip2},
		{name: "src.tar.xz", c: codec.XZ},
		{name: "src.tar.zst", c: codec.Zstd},
		{name: "src.tar.lz4", c: codec.LZ4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := testutil.TarFile(t, tc.name, tc.c, sortedFiles(smallArchive))
			stream, stats := streamArchives(t, []string{path})

			assertStreamContents(t, readStream(t, stream), smallArchive)
			assert.Equal(t, len(smallArchive), stats.Entries)
		})
	}
}

// --- Output Compression ---

func TestE2E_CompressedOutput(t *testing.T) {
	t.Parallel()

	for _, out := range []codec.Codec{codec.Gzip, codec.Bzip2, codec.XZ, codec.Zstd, codec.LZ4} {
		t.Run(out.String(), func(t *testing.T) {
			t.Parallel()

			path := testutil.TarFile(t, "src.tar", codec.None, sortedFiles(compressibleArchive))

			var buf bytes.Buffer
			cw, err := out.NewWriter(&buf)
			require.NoError(t, err, "NewWriter")
			_, err = tarcat.New([]string{path}).Run(context.Background(), cw)
			require.NoError(t, err, "Run")
			require.NoError(t, cw.Close(), "close compressor")

			rc, err := out.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err, "NewReader")
			raw, err := io.ReadAll(rc)
			require.NoError(t, err, "decompress produced stream")
			require.NoError(t, rc.Close())

			assertStreamContents(t, readStream(t, raw), compressibleArchive)
			assert.Less(t, buf.Len(), len(raw), "compressible stream shrinks")
		})
	}
}

// --- Concatenation ---

func TestE2E_ConcatenationOrder(t *testing.T) {
	t.Parallel()

	first := testutil.TarFile(t, "first.tar", codec.None, []testutil.File{
		{Name: "a.txt", Content: "from tar", Mode: 0o644, ModTime: fixtureTime},
	})
	second := testutil.ZipFile(t, "second.zip", []testutil.File{
		{Name: "b.txt", Content: "from zip", Mode: 0o644, ModTime: fixtureTime},
	})
	third := testutil.TarFile(t, "third.tgz", codec.Gzip, []testutil.File{
		{Name: "c.txt", Content: "from tgz", Mode: 0o644, ModTime: fixtureTime},
	})

	stream, stats := streamArchives(t, []string{first, second, third})
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, memberNames(readStream(t, stream)))
	assert.Equal(t, 3, stats.Entries)

	reversed, _ := streamArchives(t, []string{third, second, first})
	assert.Equal(t, []string{"c.txt", "b.txt", "a.txt"}, memberNames(readStream(t, reversed)))
}

// --- Filtering ---

func TestE2E_FilterFromList(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, sortedFiles(nestedArchive))

	listPath := filepath.Join(t.TempDir(), "wanted.txt")
	list := "dir1/a.txt\r\n\nroot.txt\n"
	require.NoError(t, os.WriteFile(listPath, []byte(list), 0o644))

	f, err := os.Open(listPath)
	require.NoError(t, err)
	defer f.Close()
	filter, err := tarcat.ParseFilter(f)
	require.NoError(t, err, "ParseFilter")

	stream, stats := streamArchives(t, []string{path}, tarcat.WithFilter(filter))
	members := readStream(t, stream)

	assert.ElementsMatch(t, []string{"dir1/a.txt", "root.txt"}, memberNames(members))
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, len(nestedArchive)-2, stats.Skipped)
}

// --- Metadata Defaults ---

func TestE2E_ModeDefaults(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, []testutil.File{
		{Name: "plain/", Dir: true, ModTime: fixtureTime},
		{Name: "plain/bare.txt", Content: "no recorded mode", ModTime: fixtureTime},
		{Name: "plain/kept.txt", Content: "recorded mode", Mode: 0o640, ModTime: fixtureTime},
	})

	stream, _ := streamArchives(t, []string{path})
	members := readStream(t, stream)
	require.Len(t, members, 3)

	byName := make(map[string]member, len(members))
	for _, m := range members {
		byName[m.Header.Name] = m
	}

	dir := byName["plain/"]
	assert.Equal(t, byte(tar.TypeDir), dir.Header.Typeflag)
	assert.Equal(t, int64(0o755), dir.Header.Mode&0o777, "directories default to 0755")

	bare := byName["plain/bare.txt"]
	assert.Equal(t, int64(0o644), bare.Header.Mode&0o777, "files default to 0644")

	kept := byName["plain/kept.txt"]
	assert.Equal(t, int64(0o640), kept.Header.Mode&0o777, "recorded modes pass through")
}

func TestE2E_SymlinkRoundTrip(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, []testutil.File{
		{Name: "target.txt", Content: "pointed at", Mode: 0o644, ModTime: fixtureTime},
		{Name: "alias", Link: "target.txt", Mode: 0o777 | fs.ModeSymlink, ModTime: fixtureTime},
	})

	stream, _ := streamArchives(t, []string{path})
	members := readStream(t, stream)
	require.Len(t, members, 2)

	link := members[1]
	assert.Equal(t, byte(tar.TypeSymlink), link.Header.Typeflag)
	assert.Equal(t, "target.txt", link.Header.Linkname)
	assert.Zero(t, link.Header.Size)
}

// --- Binary Content ---

func TestE2E_BinaryContent(t *testing.T) {
	t.Parallel()

	// Incompressible members larger than one content block, so bytes
	// cross block boundaries on their way through.
	contents := map[string]string{
		"blob1.bin": makeRandomContent(100 * 1024),
		"blob2.bin": makeRandomContent(33 * 1024),
	}
	path := testutil.ZipFile(t, "src.zip", sortedFiles(contents))
	stream, stats := streamArchives(t, []string{path})

	assertStreamContents(t, readStream(t, stream), contents)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, uint64(133*1024), stats.Bytes)
}

// --- Determinism ---

func TestE2E_DigestStable(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, sortedFiles(nestedArchive))

	first, _ := streamArchives(t, []string{path})
	second, _ := streamArchives(t, []string{path})

	assert.Equal(t,
		digest.Canonical.FromBytes(first),
		digest.Canonical.FromBytes(second),
		"identical inputs produce identical streams")
}

// --- Progress ---

func TestE2E_Progress(t *testing.T) {
	t.Parallel()

	path := testutil.TarFile(t, "src.tar", codec.None, sortedFiles(smallArchive))

	var events []tarcat.ProgressEvent
	p := tarcat.New([]string{path}, tarcat.WithProgress(func(ev tarcat.ProgressEvent) {
		events = append(events, ev)
	}))

	total, err := p.Count(context.Background())
	require.NoError(t, err, "Count")
	assert.Equal(t, len(smallArchive), total)
	require.NotEmpty(t, events)
	assert.Equal(t, tarcat.StageCounting, events[0].Stage)

	events = nil
	var buf bytes.Buffer
	stats, err := p.Run(context.Background(), &buf)
	require.NoError(t, err, "Run")

	require.Len(t, events, stats.Entries)
	for i, ev := range events {
		assert.Equal(t, tarcat.StageStreaming, ev.Stage)
		assert.Equal(t, path, ev.Archive)
		assert.Equal(t, i+1, ev.EntriesDone)
	}
	assert.Equal(t, stats.Bytes, events[len(events)-1].Bytes)
}
