// Package blockio adapts block-at-a-time content producers to the
// bounded-read interfaces consumed by streaming writers.
//
// Archive backends deliver entry content as a sequence of blocks whose
// boundaries are an artifact of decompression, not of the caller's
// requests. Container writers pull fixed-size reads. Reader bridges the
// two without re-buffering: each content byte is copied at most once on
// its way from the producer's block to the consumer's buffer, and the
// drain path (io.WriterTo) copies nothing at all.
package blockio

import (
	"io"
	"iter"
)

// Seq is a finite, single-use sequence of content blocks.
//
// The concatenation of the yielded blocks, in order, is the content.
// Blocks may be empty and may have any length. A yielded block is only
// valid until the next value is pulled: producers are free to reuse a
// single buffer across yields. A non-nil error terminates the sequence;
// no blocks follow it.
type Seq = iter.Seq2[[]byte, error]

// FromSlices returns a sequence yielding the given blocks in order.
// The blocks are not copied and must not be mutated while the sequence
// is in use.
func FromSlices(blocks ...[]byte) Seq {
	return func(yield func([]byte, error) bool) {
		for _, b := range blocks {
			if !yield(b, nil) {
				return
			}
		}
	}
}

// DefaultBlockSize is the buffer size used by Blocks when none is given.
const DefaultBlockSize = 32 * 1024

// Blocks adapts an io.Reader into a block sequence.
//
// It reads into a single buffer of blockSize bytes (DefaultBlockSize if
// blockSize <= 0) and yields each filled portion. Yielded blocks alias
// the buffer and are overwritten on the next pull, as Seq permits.
// A read error other than io.EOF is yielded after any data that
// preceded it.
func Blocks(r io.Reader, blockSize int) Seq {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, blockSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if !yield(buf[:n], nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Reader presents a block sequence as an io.Reader and io.WriterTo.
//
// Read fills the caller's buffer completely unless the sequence runs
// out first. The unread tail of a partially consumed block is retained
// by reslicing, never by copying, so consuming the same content through
// any mix of read sizes performs the same single copy per byte. WriteTo
// forwards whole blocks straight to the destination writer with no
// intermediate buffer; io.Copy selects it automatically.
//
// A Reader consumes its sequence exactly once and is not safe for
// concurrent use. After exhaustion, Read returns io.EOF and WriteTo
// writes nothing.
type Reader struct {
	next func() ([]byte, error, bool)
	stop func()
	rest []byte // unread tail of the most recently pulled block
	err  error  // first sequence error, reported once drained
	done bool
}

// Interface compliance.
var (
	_ io.Reader   = (*Reader)(nil)
	_ io.WriterTo = (*Reader)(nil)
	_ io.Closer   = (*Reader)(nil)
)

// NewReader creates a Reader over blocks.
//
// The sequence is pulled lazily: nothing is requested from it until a
// Read or WriteTo call needs data.
func NewReader(blocks Seq) *Reader {
	next, stop := iter.Pull2(blocks)
	return &Reader{next: next, stop: stop}
}

// Read implements io.Reader.
//
// It copies out of the held tail first, then pulls further blocks until
// p is full or the sequence ends. A call that gathers fewer than len(p)
// bytes returns the short count with a nil error; io.EOF (or the
// sequence error) arrives on the following call. A zero-length read
// returns (0, nil) without pulling.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		if len(r.rest) > 0 {
			c := copy(p[n:], r.rest)
			r.rest = r.rest[c:]
			n += c
			continue
		}
		if !r.pull() {
			break
		}
	}

	if n > 0 {
		return n, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, io.EOF
}

// WriteTo implements io.WriterTo, draining the remaining content into w.
//
// Blocks pass from the sequence to w without staging. It returns the
// number of bytes written and the first write or sequence error.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		if len(r.rest) > 0 {
			n, err := w.Write(r.rest)
			r.rest = r.rest[n:]
			written += int64(n)
			if err != nil {
				return written, err
			}
			continue
		}
		if !r.pull() {
			return written, r.err
		}
	}
}

// pull advances to the next non-empty block, making it the held tail.
// It reports false when no block is available: the sequence ended,
// failed, or had already been released.
func (r *Reader) pull() bool {
	if r.done {
		return false
	}
	for {
		block, err, ok := r.next()
		if !ok {
			r.release()
			return false
		}
		if err != nil {
			r.err = err
			r.release()
			return false
		}
		if len(block) == 0 {
			continue
		}
		r.rest = block
		return true
	}
}

// release stops the underlying pull iterator. Idempotent.
func (r *Reader) release() {
	r.done = true
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

// Close releases the sequence without draining it.
//
// Abandoning a Reader before exhaustion without closing it leaves the
// producer suspended; a fully drained Reader has already released it.
// Close is idempotent and always returns nil.
func (r *Reader) Close() error {
	r.rest = nil
	r.release()
	return nil
}
