// Package codec provides stream compression for container output and
// decompression for compressed archive input.
//
// The set of codecs is closed: gzip, bzip2, xz, zstd, and lz4, plus the
// pass-through None. Every codec is usable in both directions so a
// stream produced with NewWriter always reads back through NewReader.
package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// ErrUnknown is returned when a codec name or extension is not recognized.
var ErrUnknown = errors.New("codec: unknown compression")

// Codec identifies a stream compression algorithm.
type Codec uint8

const (
	None Codec = iota
	Gzip
	Bzip2
	XZ
	Zstd
	LZ4
)

// Names returns the accepted Parse names for the compressing codecs,
// in declaration order.
func Names() []string {
	return []string{"gz", "bz2", "xz", "zst", "lz4"}
}

// Parse returns the codec for name. It accepts the short names returned
// by String as well as common long forms (gzip, bzip2, zstd). An empty
// name means None.
func Parse(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "gz", "gzip":
		return Gzip, nil
	case "bz2", "bzip2":
		return Bzip2, nil
	case "xz":
		return XZ, nil
	case "zst", "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return None, fmt.Errorf("%w %q", ErrUnknown, name)
}

// ForExtension returns the codec implied by a filename extension such as
// ".gz". The extension for None is not recognized; ok reports whether
// ext named a codec.
func ForExtension(ext string) (Codec, bool) {
	for _, c := range []Codec{Gzip, Bzip2, XZ, Zstd, LZ4} {
		if strings.EqualFold(ext, c.Extension()) {
			return c, true
		}
	}
	return None, false
}

// String returns the short name of the codec.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gz"
	case Bzip2:
		return "bz2"
	case XZ:
		return "xz"
	case Zstd:
		return "zst"
	case LZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Extension returns the conventional filename extension, including the
// leading dot. None has no extension.
func (c Codec) Extension() string {
	switch c {
	case Gzip:
		return ".gz"
	case Bzip2:
		return ".bz2"
	case XZ:
		return ".xz"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

// NewWriter returns a writer that compresses into w.
//
// Closing the returned writer flushes the codec trailer but does not
// close w. Compressors run single-threaded; the surrounding pipeline is
// strictly sequential and concurrency here would only add memory.
func (c Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Bzip2:
		return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	case XZ:
		return xz.NewWriter(w)
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("%w %d", ErrUnknown, c)
}

// NewReader returns a reader that decompresses from r.
//
// Closing the returned reader releases decoder state but does not close
// r. Readers whose codec type carries no Close are wrapped so callers
// can treat every codec uniformly.
func (c Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Bzip2:
		return bzip2.NewReader(r, nil)
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{zr}, nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("%w %d", ErrUnknown, c)
}

// nopWriteCloser passes writes through and makes Close a no-op, for the
// pass-through codec.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// zstdReadCloser adapts the zstd decoder's valueless Close to io.Closer.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
