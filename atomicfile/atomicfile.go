// Package atomicfile provides create-or-revert semantics for files and
// directories. Content is staged in a uniquely-named temporary sibling of
// the target (same filesystem, so the final rename is atomic) and becomes
// visible only on Commit. Abort removes the staged content and leaves the
// target untouched.
package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAlreadyExists is returned by Commit when the target already exists
// and replacement was disabled.
var ErrAlreadyExists = errors.New("atomicfile: target already exists")

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// File stages an atomic file write. Write through it, then Commit to make
// the content visible at the target path, or Abort to revert.
type File struct {
	f         *os.File
	tmp       string
	target    string
	noReplace bool
	done      bool
}

// Option configures an atomic file.
type Option func(*File)

// WithNoReplace makes Commit fail with ErrAlreadyExists when the target
// path exists. The default is to replace it; replacement of an existing
// target is otherwise platform-defined rename behavior, so callers that
// care must choose explicitly.
func WithNoReplace() Option {
	return func(f *File) {
		f.noReplace = true
	}
}

// Create stages a write to target. The temporary file is created in the
// target's directory.
func Create(target string, opts ...Option) (*File, error) {
	dir, base := filepath.Split(target)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, err
	}
	f := &File{f: tmp, tmp: tmp.Name(), target: target}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Write writes to the staged file.
func (f *File) Write(p []byte) (int, error) {
	return f.f.Write(p)
}

// Sync flushes staged content to stable storage without committing.
func (f *File) Sync() error {
	return f.f.Sync()
}

// Commit closes the staged file, sets conventional permissions, and
// atomically renames it onto the target. On any error the staged file is
// removed and the target is left untouched.
func (f *File) Commit() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.f.Close(); err != nil {
		_ = os.Remove(f.tmp)
		return err
	}
	if err := os.Chmod(f.tmp, filePerm); err != nil {
		_ = os.Remove(f.tmp)
		return err
	}
	if f.noReplace {
		if _, err := os.Lstat(f.target); err == nil {
			_ = os.Remove(f.tmp)
			return fmt.Errorf("%w: %s", ErrAlreadyExists, f.target)
		}
	}
	if err := os.Rename(f.tmp, f.target); err != nil {
		_ = os.Remove(f.tmp)
		return err
	}
	return nil
}

// Abort removes the staged file. It is a no-op after Commit.
func (f *File) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	_ = f.f.Close()
	return os.Remove(f.tmp)
}

// WriteFile atomically writes data to target.
func WriteFile(target string, data []byte) error {
	f, err := Create(target)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Abort()
		return err
	}
	return f.Commit()
}
