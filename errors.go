package tarcat

import (
	"errors"

	"github.com/meigma/tarcat/backend"
)

// Sentinel errors.
var (
	// ErrNoArchives is returned when a Pipeline has no source archives.
	ErrNoArchives = errors.New("tarcat: no source archives")
)

// Errors re-exported from backend.
var (
	// ErrUnknownFormat is returned when no backend matches an archive filename.
	ErrUnknownFormat = backend.ErrUnknownFormat

	// ErrSizeOverflow is returned when an entry size exceeds supported limits.
	ErrSizeOverflow = backend.ErrSizeOverflow
)
