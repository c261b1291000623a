package backend

import (
	"io"

	"github.com/meigma/tarcat/blockio"
)

// entryBlockSize is the read granularity for member content.
const entryBlockSize = blockio.DefaultBlockSize

// openBlocks returns a block sequence over content that is opened on
// first pull. The reader is closed when the sequence ends, fails, or is
// abandoned, so entries that are never consumed cost nothing.
func openBlocks(open func() (io.ReadCloser, error)) blockio.Seq {
	return func(yield func([]byte, error) bool) {
		rc, err := open()
		if err != nil {
			yield(nil, err)
			return
		}
		defer rc.Close()
		for b, err := range blockio.Blocks(rc, entryBlockSize) {
			if !yield(b, err) {
				return
			}
		}
	}
}
