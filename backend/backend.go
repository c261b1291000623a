// Package backend opens source archives and streams their members as
// entries with lazily-read content.
//
// A backend is selected by filename: 7z, zip, and tar (plain or wrapped
// in any codec the codec package knows). All backends present the same
// Archive interface and deliver content as block sequences, so callers
// never touch format-specific types.
package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/meigma/tarcat/blockio"
	"github.com/meigma/tarcat/codec"
)

// Sentinel errors.
var (
	// ErrUnknownFormat is returned when no backend matches the archive filename.
	ErrUnknownFormat = errors.New("backend: unknown archive format")

	// ErrSizeOverflow is returned when an entry size exceeds supported limits.
	ErrSizeOverflow = errors.New("backend: entry size overflow")
)

// Entry describes one archive member and carries its content.
type Entry struct {
	// Name is the member path exactly as stored in the archive.
	Name string

	// Size is the uncompressed content size in bytes. Zero for
	// directories and links.
	Size int64

	// ModTime is the recorded modification time.
	// The zero time means the format recorded none.
	ModTime time.Time

	// Mode is the recorded file mode, including type bits.
	// Zero permission bits mean the format recorded none.
	Mode fs.FileMode

	// Linkname is the target of a symbolic link, when Mode carries
	// fs.ModeSymlink.
	Linkname string

	// Blocks yields the member content. It is nil for members without
	// content (directories, links) and single-use otherwise.
	Blocks blockio.Seq
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Mode.IsDir()
}

// Archive is an open source archive whose members stream once, in
// storage order.
type Archive interface {
	// Entries returns a single-use iterator over the members. An
	// entry's Blocks must be consumed (or abandoned) before the next
	// entry is pulled; backends share one underlying reader. Skipping
	// an entry without touching its Blocks is free.
	Entries() iter.Seq2[Entry, error]

	// Close releases the archive. Unconsumed entries and Blocks are
	// invalid afterwards.
	Close() error
}

// Open opens the archive at archivePath, selecting a backend by filename.
//
// Recognized: .7z, .zip, .tar, .tar.<ext> for every codec extension,
// and the contracted forms .tgz, .tbz2, .tbz, .txz.
func Open(archivePath string) (Archive, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(name, ".7z"):
		return openSevenZip(archivePath)
	case strings.HasSuffix(name, ".zip"):
		return openZip(archivePath)
	}
	if c, ok := tarCodec(name); ok {
		return openTar(archivePath, c)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, archivePath)
}

// tarCodec reports whether name is a tar archive and which codec wraps it.
func tarCodec(name string) (codec.Codec, bool) {
	switch {
	case strings.HasSuffix(name, ".tar"):
		return codec.None, true
	case strings.HasSuffix(name, ".tgz"):
		return codec.Gzip, true
	case strings.HasSuffix(name, ".tbz2"), strings.HasSuffix(name, ".tbz"):
		return codec.Bzip2, true
	case strings.HasSuffix(name, ".txz"):
		return codec.XZ, true
	}
	ext := path.Ext(name)
	if strings.HasSuffix(strings.TrimSuffix(name, ext), ".tar") {
		return codec.ForExtension(ext)
	}
	return codec.None, false
}
