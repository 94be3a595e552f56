package artifact

import (
	"errors"
	"fmt"

	"github.com/terrierteam/artifact/atomicfile"
	"github.com/terrierteam/artifact/stream"
)

// Errors re-exported from subpackages.
var (
	// ErrHashMismatch is returned when package content does not match the
	// expected SHA-256 digest.
	ErrHashMismatch = stream.ErrHashMismatch

	// ErrAlreadyExists is returned when an atomic commit target is
	// already present.
	ErrAlreadyExists = atomicfile.ErrAlreadyExists
)

var (
	// ErrPathEscape is returned when an archive entry path would resolve
	// outside the destination directory.
	ErrPathEscape = errors.New("artifact: entry path escapes destination")

	// ErrNotFound is returned when a locator is neither a readable local
	// file nor a URL.
	ErrNotFound = errors.New("artifact: not found")
)

// TransportError reports a failed fetch: either a non-200 status code or
// an I/O failure on the underlying connection. The operation is not
// retried internally.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unhandled status code %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnresolvedError is returned when no registered implementation matches
// an artifact's discovered type and format.
type UnresolvedError struct {
	Path        string
	Type        string
	Format      string
	PackageHint string
}

func (e *UnresolvedError) Error() string {
	typ, format := e.Type, e.Format
	if typ == "" {
		typ = "(unknown)"
	}
	if format == "" {
		format = "(unknown)"
	}
	msg := fmt.Sprintf("no implementation found that supports the artifact at %s: type=%s, format=%s", e.Path, typ, format)
	if e.PackageHint != "" {
		msg += fmt.Sprintf(" (do you need to import %q?)", e.PackageHint)
	}
	return msg
}
