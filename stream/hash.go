package stream

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"
)

// ErrHashMismatch is returned when stream content does not match the
// expected SHA-256 digest.
var ErrHashMismatch = errors.New("stream: hash verification failed")

// NormalizeSHA256 validates an expected digest string and returns its
// lowercase hex encoding. Both bare hex and "sha256:<hex>" forms are
// accepted.
func NormalizeSHA256(s string) (string, error) {
	var d digest.Digest
	if strings.Contains(s, ":") {
		var err error
		d, err = digest.Parse(strings.ToLower(s))
		if err != nil {
			return "", fmt.Errorf("parse digest %q: %w", s, err)
		}
		if d.Algorithm() != digest.SHA256 {
			return "", fmt.Errorf("unsupported digest algorithm %q", d.Algorithm())
		}
	} else {
		d = digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(s))
		if err := d.Validate(); err != nil {
			return "", fmt.Errorf("parse digest %q: %w", s, err)
		}
	}
	return d.Encoded(), nil
}

// HashReader wraps a reader and maintains a running SHA-256 hash of all
// data read through it. If an expected digest is supplied, Close verifies
// the accumulated digest against it.
type HashReader struct {
	r        io.ReadCloser
	hash     hash.Hash
	expected string
	closed   bool
}

// NewHashReader creates a HashReader. expected may be empty, bare hex, or
// a "sha256:<hex>" digest; comparison is case-insensitive.
func NewHashReader(r io.ReadCloser, expected string) (*HashReader, error) {
	h := &HashReader{r: r, hash: sha256.New()}
	if expected != "" {
		normalized, err := NormalizeSHA256(expected)
		if err != nil {
			return nil, err
		}
		h.expected = normalized
	}
	return h, nil
}

// Read reads from the underlying stream, updating the hash with every
// chunk that passes through.
func (h *HashReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		h.hash.Write(p[:n])
	}
	return n, err
}

// Hexdigest returns the hex encoding of the hash accumulated so far.
func (h *HashReader) Hexdigest() string {
	return hex.EncodeToString(h.hash.Sum(nil))
}

// Close closes the underlying stream and, if an expected digest was
// supplied, verifies it against the accumulated digest.
func (h *HashReader) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.r.Close(); err != nil {
		return err
	}
	if h.expected != "" {
		if got := h.Hexdigest(); got != h.expected {
			return fmt.Errorf("%w: expected sha256 %s, found %s", ErrHashMismatch, h.expected, got)
		}
	}
	return nil
}

// HashWriter wraps a writer and maintains a running SHA-256 hash of all
// data written through it.
type HashWriter struct {
	w    io.Writer
	hash hash.Hash
}

// NewHashWriter creates a HashWriter around w.
func NewHashWriter(w io.Writer) *HashWriter {
	return &HashWriter{w: w, hash: sha256.New()}
}

// Write writes to the underlying writer, updating the hash.
func (h *HashWriter) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	if n > 0 {
		h.hash.Write(p[:n])
	}
	return n, err
}

// Hexdigest returns the hex encoding of the hash accumulated so far.
func (h *HashWriter) Hexdigest() string {
	return hex.EncodeToString(h.hash.Sum(nil))
}
