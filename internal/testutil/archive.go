// Package testutil builds small archive fixtures for tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meigma/tarcat/codec"
)

// File describes one member of a fixture archive.
type File struct {
	Name    string
	Content string
	Mode    fs.FileMode
	ModTime time.Time
	Dir     bool
	Link    string
}

// WriteTar writes files as a tar stream into w, compressed with c.
func WriteTar(tb testing.TB, w io.Writer, c codec.Codec, files []File) {
	tb.Helper()

	cw, err := c.NewWriter(w)
	if err != nil {
		tb.Fatalf("create %s writer: %v", c, err)
	}
	tw := tar.NewWriter(cw)

	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.Name,
			Mode:    int64(f.Mode.Perm()),
			ModTime: f.ModTime,
		}
		switch {
		case f.Dir:
			hdr.Typeflag = tar.TypeDir
		case f.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = f.Link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(f.Content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatalf("write header %s: %v", f.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, f.Content); err != nil {
				tb.Fatalf("write content %s: %v", f.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		tb.Fatalf("close tar writer: %v", err)
	}
	if err := cw.Close(); err != nil {
		tb.Fatalf("close %s writer: %v", c, err)
	}
}

// TarFile writes a tar fixture into a temp directory and returns its path.
// The codec must match what the filename implies.
func TarFile(tb testing.TB, name string, c codec.Codec, files []File) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	WriteTar(tb, f, c, files)
	if err := f.Close(); err != nil {
		tb.Fatalf("close %s: %v", path, err)
	}
	return path
}

// ZipFile writes a zip fixture into a temp directory and returns its path.
// A zero Mode is left unset so the member reads back with no recorded mode.
func ZipFile(tb testing.TB, name string, files []File) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)

	for _, file := range files {
		hdr := &zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: file.ModTime,
		}
		if file.Dir && !strings.HasSuffix(hdr.Name, "/") {
			hdr.Name += "/"
		}
		if file.Mode != 0 {
			mode := file.Mode
			if file.Dir {
				mode |= fs.ModeDir
			}
			hdr.SetMode(mode)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			tb.Fatalf("create member %s: %v", file.Name, err)
		}
		if !file.Dir {
			if _, err := io.WriteString(w, file.Content); err != nil {
				tb.Fatalf("write member %s: %v", file.Name, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close %s: %v", path, err)
	}
	return path
}
