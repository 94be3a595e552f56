package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terrierteam/artifact/atomicfile"
)

// MetadataFile is the self-describing metadata file written inside every
// artifact directory.
const MetadataFile = "pt_meta.json"

// Metadata identifies which concrete implementation can load an artifact
// directory. It is written once when the directory is finalized and never
// mutated afterward except by rebuilding.
type Metadata struct {
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	PackageHint string `json:"package_hint,omitempty"`
}

// Key returns the implementation registry key for this metadata.
func (m Metadata) Key() string {
	return m.Type + "." + m.Format
}

// Complete reports whether both type and format are known.
func (m Metadata) Complete() bool {
	return m.Type != "" && m.Format != ""
}

// merge fills empty fields from other.
func (m Metadata) merge(other Metadata) Metadata {
	if m.Type == "" {
		m.Type = other.Type
	}
	if m.Format == "" {
		m.Format = other.Format
	}
	if m.PackageHint == "" {
		m.PackageHint = other.PackageHint
	}
	return m
}

// LoadMetadata reads the metadata file for the artifact at path. A
// directory without a metadata file yields zero Metadata; a missing path
// is an error.
func LoadMetadata(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("artifact %s: %w", path, err)
	}
	if !info.IsDir() {
		return Metadata{}, nil
	}

	data, err := os.ReadFile(filepath.Join(path, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, nil
		}
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}
	return meta, nil
}

// WriteMetadata atomically writes the metadata file into dir. This is the
// finalize step of artifact construction; the file is never partially
// visible.
func WriteMetadata(dir string, meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(filepath.Join(dir, MetadataFile), append(data, '\n'))
}
