package artifact

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact is a directory on disk representing a self-describing unit,
// such as a search index. Implementations usually act as factories for
// the components that use them.
type Artifact interface {
	// Path returns the artifact's directory on disk.
	Path() string
}

// Dir is a minimal Artifact backed by a directory. Concrete
// implementations typically embed it.
type Dir struct {
	path string
}

// NewDir creates a Dir artifact rooted at path.
func NewDir(path string) Dir {
	return Dir{path: path}
}

// Path returns the artifact's directory on disk.
func (d Dir) Path() string {
	return d.path
}

// provenance is the sidecar written next to a fetched artifact directory,
// recording where it came from.
type provenance struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// DescribePath returns a display string for an artifact path, including
// its recorded provenance when a sidecar is present.
func DescribePath(path string) string {
	data, err := os.ReadFile(path + ".json")
	if err != nil {
		return fmt.Sprintf("%q", path)
	}
	var p provenance
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Sprintf("%q", path)
	}
	switch {
	case p.URL != "":
		return fmt.Sprintf("%q <from %q>", path, p.URL)
	case p.Path != "":
		return fmt.Sprintf("%q <from %q>", path, p.Path)
	}
	return fmt.Sprintf("%q", path)
}
