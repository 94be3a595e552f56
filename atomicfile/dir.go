package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir stages an atomic directory write. Populate Path, then Commit to
// rename the staged directory onto the target, or Abort to remove it
// recursively.
//
// Commit never replaces an existing target: a destination that already
// exists fails with ErrAlreadyExists rather than being merged into.
type Dir struct {
	tmp    string
	target string
	done   bool
}

// CreateDir stages a directory write to target. The temporary directory
// is created as a sibling of the target.
func CreateDir(target string) (*Dir, error) {
	dir, base := filepath.Split(target)
	tmp, err := os.MkdirTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &Dir{tmp: tmp, target: target}, nil
}

// Path returns the staged directory path.
func (d *Dir) Path() string {
	return d.tmp
}

// Commit sets conventional permissions and atomically renames the staged
// directory onto the target. On any error the staged directory is removed.
func (d *Dir) Commit() error {
	if d.done {
		return nil
	}
	d.done = true
	if err := os.Chmod(d.tmp, dirPerm); err != nil {
		_ = os.RemoveAll(d.tmp)
		return err
	}
	if _, err := os.Lstat(d.target); err == nil {
		_ = os.RemoveAll(d.tmp)
		return fmt.Errorf("%w: %s", ErrAlreadyExists, d.target)
	}
	if err := os.Rename(d.tmp, d.target); err != nil {
		_ = os.RemoveAll(d.tmp)
		return err
	}
	return nil
}

// Abort recursively removes the staged directory. It is a no-op after
// Commit.
func (d *Dir) Abort() error {
	if d.done {
		return nil
	}
	d.done = true
	return os.RemoveAll(d.tmp)
}
