package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"gz", Gzip, false},
		{"gzip", Gzip, false},
		{"GZ", Gzip, false},
		{"bz2", Bzip2, false},
		{"bzip2", Bzip2, false},
		{"xz", XZ, false},
		{"zst", Zstd, false},
		{"zstd", Zstd, false},
		{"lz4", LZ4, false},
		{"brotli", None, true},
		{"tar", None, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknown)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoundTripsString(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		c, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
}

func TestForExtension(t *testing.T) {
	t.Parallel()

	for _, c := range []Codec{Gzip, Bzip2, XZ, Zstd, LZ4} {
		got, ok := ForExtension(c.Extension())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}

	_, ok := ForExtension(".tar")
	assert.False(t, ok)
	_, ok = ForExtension("")
	assert.False(t, ok)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()

	content := []byte(strings.Repeat("compressible content line\n", 256))

	for _, c := range []Codec{None, Gzip, Bzip2, XZ, Zstd, LZ4} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w, err := c.NewWriter(&buf)
			require.NoError(t, err)
			_, err = w.Write(content)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if c != None {
				assert.Less(t, buf.Len(), len(content))
			}

			r, err := c.NewReader(&buf)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, content, got)
		})
	}
}

func TestNoneWriterDoesNotCloseUnderlying(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := None.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// The pass-through writer stays usable downstream after Close.
	_, err = buf.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", buf.String())
}

func TestUnknownCodec(t *testing.T) {
	t.Parallel()

	bad := Codec(250)
	assert.Equal(t, "unknown", bad.String())
	assert.Empty(t, bad.Extension())

	_, err := bad.NewWriter(io.Discard)
	assert.ErrorIs(t, err, ErrUnknown)
	_, err = bad.NewReader(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnknown)
}
