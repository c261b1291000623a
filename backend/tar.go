package backend

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/meigma/tarcat/blockio"
	"github.com/meigma/tarcat/codec"
)

// tarArchive streams members of a tar archive, optionally wrapped in a
// compression codec.
type tarArchive struct {
	f   *os.File
	dec io.ReadCloser
	tr  *tar.Reader
}

func openTar(archivePath string, c codec.Codec) (Archive, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open tar archive: %w", err)
	}
	dec, err := c.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s stream: %w", c, err)
	}
	return &tarArchive{f: f, dec: dec, tr: tar.NewReader(dec)}, nil
}

// Entries implements Archive.
//
// Regular files, directories, and symlinks are yielded; other member
// types are skipped. The tar stream is strictly sequential: an entry
// whose Blocks are left unconsumed is skipped by the next pull.
func (a *tarArchive) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for {
			hdr, err := a.tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Entry{}, fmt.Errorf("read tar header: %w", err))
				return
			}

			e := Entry{
				Name:    hdr.Name,
				ModTime: hdr.ModTime,
				Mode:    hdr.FileInfo().Mode(),
			}
			switch hdr.Typeflag {
			case tar.TypeReg:
				e.Size = hdr.Size
				e.Blocks = blockio.Blocks(a.tr, entryBlockSize)
			case tar.TypeDir:
			case tar.TypeSymlink:
				e.Linkname = hdr.Linkname
			default:
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (a *tarArchive) Close() error {
	err := a.dec.Close()
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	return err
}
