package artifact

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const (
	extractFilePerm = 0o644
	extractDirPerm  = 0o755
)

// extractArchive stream-extracts tar entries into dest. Every entry path
// must resolve strictly under dest; an escaping path fails the whole
// extraction with ErrPathEscape. Attribute bits from the archive are not
// applied, so untrusted archives cannot smuggle setuid bits or strange
// ownership. Entry types other than regular files and directories are
// skipped.
func extractArchive(ctx context.Context, tr *tar.Reader, dest string, logger *slog.Logger) error {
	buf := make([]byte, 32*1024)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := entryTarget(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, extractDirPerm); err != nil {
				return err
			}
		case tar.TypeReg:
			logger.Info("extracting", "path", hdr.Name, "size", humanize.Bytes(uint64(max(hdr.Size, 0))))
			if err := extractFile(target, tr, buf); err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
		default:
			logger.Debug("skipping entry", "path", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

// entryTarget validates an archive entry name and returns its extraction
// path under dest.
func entryTarget(dest, name string) (string, error) {
	name = filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	return filepath.Join(dest, name), nil
}

func extractFile(target string, r io.Reader, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), extractDirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, extractFilePerm)
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
