package backend

import (
	"archive/zip"
	"fmt"
	"iter"

	"github.com/meigma/tarcat/internal/sizing"
)

// zipArchive streams members of a zip archive.
type zipArchive struct {
	rc *zip.ReadCloser
}

func openZip(archivePath string) (Archive, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}
	return &zipArchive{rc: rc}, nil
}

// Entries implements Archive.
func (a *zipArchive) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, f := range a.rc.File {
			e := Entry{
				Name:    f.Name,
				ModTime: f.Modified,
				Mode:    f.Mode(),
			}
			if !f.Mode().IsDir() {
				size, err := sizing.ToInt64(f.UncompressedSize64, ErrSizeOverflow)
				if err != nil {
					yield(Entry{}, fmt.Errorf("zip member %s: %w", f.Name, err))
					return
				}
				e.Size = size
				e.Blocks = openBlocks(f.Open)
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (a *zipArchive) Close() error {
	return a.rc.Close()
}
