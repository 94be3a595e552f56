package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/terrierteam/artifact/atomicfile"
)

// Builder stages construction of a new artifact directory. Build into
// Dir(), then Commit to finalize: the metadata file is written into the
// staged tree and the whole directory becomes visible atomically. Abort
// reverts everything.
type Builder struct {
	dir  *atomicfile.Dir
	meta Metadata
}

// NewBuilder stages an artifact directory at path. The path must not
// already exist.
func NewBuilder(path string, meta Metadata) (*Builder, error) {
	if _, err := os.Lstat(path); err == nil {
		return nil, &os.PathError{Op: "create", Path: path, Err: os.ErrExist}
	}
	d, err := atomicfile.CreateDir(path)
	if err != nil {
		return nil, err
	}
	return &Builder{dir: d, meta: meta}, nil
}

// Dir returns the staged directory to build into.
func (b *Builder) Dir() string {
	return b.dir.Path()
}

// Commit writes the metadata file and makes the directory visible at the
// target path.
func (b *Builder) Commit() error {
	data, err := json.Marshal(b.meta)
	if err != nil {
		_ = b.dir.Abort()
		return err
	}
	metaPath := filepath.Join(b.dir.Path(), MetadataFile)
	if err := os.WriteFile(metaPath, append(data, '\n'), 0o644); err != nil {
		_ = b.dir.Abort()
		return err
	}
	return b.dir.Commit()
}

// Abort removes the staged directory.
func (b *Builder) Abort() error {
	return b.dir.Abort()
}
