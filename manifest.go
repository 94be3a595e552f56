package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/terrierteam/artifact/atomicfile"
)

// ContentEntry describes one file inside a package. Offset is the byte
// offset within the (possibly segmented) package stream where the entry's
// archive header begins, enabling direct seeks.
type ContentEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Offset int64  `json:"offset"`
}

// Segment maps a segment index to its cumulative starting offset in the
// logical concatenated package stream.
type Segment struct {
	Idx    int   `json:"idx"`
	Offset int64 `json:"offset"`
}

// Manifest is the JSON sidecar written alongside every package. Contents
// is ordered by directory-then-filename traversal order and is stable
// across writer runs for the same input tree.
type Manifest struct {
	ExpectedSHA256 string         `json:"expected_sha256"`
	TotalSize      int64          `json:"total_size"`
	Contents       []ContentEntry `json:"contents"`
	Segments       []Segment      `json:"segments,omitempty"`
}

// ReadManifest decodes a manifest from r.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads the manifest file at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadManifest(f)
}

// Save atomically writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, append(data, '\n'))
}
