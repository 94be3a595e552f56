package artifact

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression frame magic numbers.
var (
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicGzip = []byte{0x1f, 0x8b}
)

// newDecompressor wraps r in the decompressor matching the stream's
// compression format. The format is sniffed from the frame magic, so
// packages fetched through locators that hide the file name, such as
// registry blob URLs, still decompress correctly; the name suffix is the
// fallback for short streams. Packages built here are always LZ4; the
// reader additionally accepts zstd and gzip packages produced elsewhere.
// An unrecognized stream passes through unchanged.
func newDecompressor(r io.Reader, name string) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && len(head) == 0 {
		return decompressorForName(br, name)
	}

	switch {
	case bytes.HasPrefix(head, magicLZ4):
		return lz4.NewReader(br), func() {}, nil
	case bytes.HasPrefix(head, magicZstd):
		return newZstdReader(br)
	case bytes.HasPrefix(head, magicGzip):
		return newGzipReader(br)
	default:
		return decompressorForName(br, name)
	}
}

// decompressorForName selects by compression suffix when the stream head
// is inconclusive.
func decompressorForName(r io.Reader, name string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".lz4"):
		return lz4.NewReader(r), func() {}, nil
	case strings.HasSuffix(name, ".zst"):
		return newZstdReader(r)
	case strings.HasSuffix(name, ".gz"), strings.HasSuffix(name, ".tgz"):
		return newGzipReader(r)
	default:
		return r, func() {}, nil
	}
}

func newZstdReader(r io.Reader) (io.Reader, func(), error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, nil, err
	}
	return dec, dec.Close, nil
}

func newGzipReader(r io.Reader) (io.Reader, func(), error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { _ = zr.Close() }, nil
}
