package stream

import (
	"fmt"
	"io"
)

// Opener produces one sub-stream of a segmented package. Openers are
// invoked lazily, in order, as the preceding sub-stream is exhausted.
type Opener func() (io.ReadCloser, error)

// MultiReader concatenates a sequence of individually-opened streams into
// one continuous logical stream. When a sub-stream is exhausted it is
// closed and the next one is opened transparently. Reads past the final
// segment return io.EOF. A failure opening segment N aborts the whole
// read with the underlying error.
type MultiReader struct {
	openers []Opener
	next    int
	cur     io.ReadCloser
	closed  bool
}

// NewMultiReader creates a MultiReader over the given openers.
func NewMultiReader(openers ...Opener) *MultiReader {
	return &MultiReader{openers: openers}
}

// Read reads from the current sub-stream, advancing to the next one on
// exhaustion.
func (m *MultiReader) Read(p []byte) (int, error) {
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	for {
		if m.cur == nil {
			if m.next >= len(m.openers) {
				return 0, io.EOF
			}
			r, err := m.openers[m.next]()
			if err != nil {
				return 0, fmt.Errorf("open segment %d: %w", m.next, err)
			}
			m.cur = r
			m.next++
		}

		n, err := m.cur.Read(p)
		if err == io.EOF {
			if closeErr := m.cur.Close(); closeErr != nil {
				return n, closeErr
			}
			m.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close closes the currently open sub-stream, if any. Sub-streams not yet
// opened are never opened.
func (m *MultiReader) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.cur != nil {
		err := m.cur.Close()
		m.cur = nil
		return err
	}
	return nil
}
