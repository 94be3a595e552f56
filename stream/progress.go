package stream

import "io"

// ProgressReader reports cumulative bytes read to a sink callback. The
// data is passed through unchanged.
type ProgressReader struct {
	r    io.ReadCloser
	fn   func(total int64)
	read int64
}

// NewProgressReader creates a ProgressReader around r. fn receives the
// cumulative byte count after each read.
func NewProgressReader(r io.ReadCloser, fn func(total int64)) *ProgressReader {
	return &ProgressReader{r: r, fn: fn}
}

// Read reads from the underlying stream and reports the new total.
func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.fn != nil {
			p.fn(p.read)
		}
	}
	return n, err
}

// Close closes the underlying stream.
func (p *ProgressReader) Close() error {
	return p.r.Close()
}
