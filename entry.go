package tarcat

import (
	"archive/tar"
	"io/fs"
	"time"

	"github.com/meigma/tarcat/backend"
)

// Destination defaults for metadata the source format did not record.
const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// defaultModTime is the timestamp written when the source recorded none.
// The tar numeric fields cannot express "absent", so the default is
// materialized explicitly.
var defaultModTime = time.Unix(0, 0).UTC()

// tarHeader maps an archive entry to its tar header.
//
// Name and size carry over verbatim. Modification time and permission
// bits carry over only when the source recorded them; a zero time or
// zero permissions mean the source had nothing to say, and the
// destination defaults apply instead. Directories become TypeDir and
// symlinks TypeSymlink, both with size zero.
func tarHeader(e *backend.Entry) *tar.Header {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     e.Name,
		Size:     e.Size,
		Mode:     defaultFileMode,
		ModTime:  defaultModTime,
	}
	if !e.ModTime.IsZero() {
		hdr.ModTime = e.ModTime
	}
	if perm := e.Mode.Perm(); perm != 0 {
		hdr.Mode = int64(perm)
	}

	switch {
	case e.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Size = 0
		if e.Mode.Perm() == 0 {
			hdr.Mode = defaultDirMode
		}
	case e.Mode&fs.ModeSymlink != 0:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.Linkname
		hdr.Size = 0
	}
	return hdr
}
