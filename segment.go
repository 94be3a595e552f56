package artifact

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/terrierteam/artifact/atomicfile"
)

// segmentState tracks the rotation state machine of a segmented package
// write. Rotation is a transition triggered by the byte-count threshold,
// never a mutable writer swap.
type segmentState uint8

const (
	segWriting segmentState = iota
	segRotating
	segDone
)

// segmentWriter writes the raw package byte stream across one or more
// size-bounded segment files. Segment i is staged at "<base>.<i>"; all
// staged files commit together on success and abort together on failure,
// so no partial package is ever visible at the final paths.
//
// The hash and compression layers sit above this writer, so hash state
// and the compressed stream are continuous across segment boundaries.
type segmentWriter struct {
	base    string
	maxSize int64
	logger  *slog.Logger

	state    segmentState
	idx      int
	cur      *atomicfile.File
	curSize  int64
	total    int64
	pending  []*atomicfile.File
	segments []Segment
}

func newSegmentWriter(base string, maxSize int64, logger *slog.Logger) (*segmentWriter, error) {
	f, err := atomicfile.Create(base + ".0")
	if err != nil {
		return nil, err
	}
	return &segmentWriter{
		base:    base,
		maxSize: maxSize,
		logger:  logger,
		cur:     f,
		pending: []*atomicfile.File{f},
	}, nil
}

func (s *segmentWriter) Write(p []byte) (int, error) {
	if s.state != segWriting {
		return 0, fmt.Errorf("segment writer: write in state %d", s.state)
	}
	n, err := s.cur.Write(p)
	s.curSize += int64(n)
	s.total += int64(n)
	return n, err
}

// tell returns the cumulative raw byte offset across all segments.
func (s *segmentWriter) tell() int64 {
	return s.total
}

// maybeRotate closes out the current segment and opens the next one when
// the size threshold has been reached. The first rotation retroactively
// records segment 0 at offset 0.
func (s *segmentWriter) maybeRotate() error {
	if s.maxSize <= 0 || s.curSize < s.maxSize {
		return nil
	}
	s.state = segRotating
	if err := s.cur.Sync(); err != nil {
		return err
	}
	if s.idx == 0 {
		s.segments = append(s.segments, Segment{Idx: 0, Offset: 0})
	}
	s.idx++
	s.segments = append(s.segments, Segment{Idx: s.idx, Offset: s.total})

	f, err := atomicfile.Create(fmt.Sprintf("%s.%d", s.base, s.idx))
	if err != nil {
		return err
	}
	s.pending = append(s.pending, f)
	s.cur = f
	s.curSize = 0
	s.state = segWriting
	s.logger.Debug("starting segment", "idx", s.idx, "offset", s.total)
	return nil
}

// rotated reports whether any rotation occurred.
func (s *segmentWriter) rotated() bool {
	return s.idx > 0
}

// commit makes all staged segment files visible. When no rotation
// occurred the single implicit segment is renamed to the exact requested
// output name, dropping the ".0" suffix used during writing.
func (s *segmentWriter) commit() error {
	s.state = segDone
	for i, f := range s.pending {
		if err := f.Commit(); err != nil {
			for _, rest := range s.pending[i+1:] {
				_ = rest.Abort()
			}
			s.removeCommitted(i)
			return err
		}
	}
	if !s.rotated() {
		if err := renameSingleSegment(s.base); err != nil {
			return err
		}
	}
	return nil
}

// abort reverts every staged segment file.
func (s *segmentWriter) abort() {
	s.state = segDone
	for _, f := range s.pending {
		_ = f.Abort()
	}
}

func (s *segmentWriter) removeCommitted(n int) {
	for i := range n {
		_ = os.Remove(fmt.Sprintf("%s.%d", s.base, i))
	}
}

func renameSingleSegment(base string) error {
	return os.Rename(base+".0", base)
}
