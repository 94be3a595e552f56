package stream

import "io"

// CallbackReader invokes a callback after every chunk read. The data is
// passed through unchanged. A callback error aborts the read.
//
// The package writer uses this to drive segment rotation without coupling
// the archiver to the output target.
type CallbackReader struct {
	r  io.Reader
	fn func(chunk []byte) error
}

// NewCallbackReader creates a CallbackReader around r.
func NewCallbackReader(r io.Reader, fn func(chunk []byte) error) *CallbackReader {
	return &CallbackReader{r: r, fn: fn}
}

// Read reads a chunk from the underlying reader and invokes the callback
// with it before returning.
func (c *CallbackReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.fn != nil {
		if cbErr := c.fn(p[:n]); cbErr != nil {
			return n, cbErr
		}
	}
	return n, err
}
