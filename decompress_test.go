package artifact

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDecompressor_SniffsFormat(t *testing.T) {
	t.Parallel()

	payload := []byte("decompressor payload")

	var lz4Buf bytes.Buffer
	lzw := lz4.NewWriter(&lz4Buf)
	_, err := lzw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, lzw.Close())

	var zstdBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zstdBuf)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var gzipBuf bytes.Buffer
	gw := gzip.NewWriter(&gzipBuf)
	_, err = gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	tests := []struct {
		format string
		data   []byte
	}{
		{"lz4", lz4Buf.Bytes()},
		{"zstd", zstdBuf.Bytes()},
		{"gzip", gzipBuf.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			// The name carries no suffix, as with registry blob URLs.
			r, done, err := newDecompressor(bytes.NewReader(tt.data), "blobs/sha256:abc")
			require.NoError(t, err)
			defer done()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestNewDecompressor_Passthrough(t *testing.T) {
	t.Parallel()

	payload := []byte("plain uncompressed bytes")
	r, done, err := newDecompressor(bytes.NewReader(payload), "pkg.tar")
	require.NoError(t, err)
	defer done()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
