package artifact

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/terrierteam/artifact/atomicfile"
	"github.com/terrierteam/artifact/stream"
)

// FromURL fetches the package identified by locator, verifies and
// extracts it, and returns the local artifact directory.
//
// The locator may be a local path, an http(s) URL, or a symbolic alias
// expanded through the registry's protocol table. A locator that already
// names a local directory is returned as-is. Fetched packages land in a
// content-addressed cache keyed by the resolved locator, so a second
// fetch of the same locator performs no network I/O.
//
// A sidecar manifest at <url>.json, when present, supplies the expected
// digest and segment layout; its absence is tolerated. Any failure, be it
// a transport error, digest mismatch, or path escape, reverts the atomic
// destination directory and leaves the cache unchanged.
func FromURL(ctx context.Context, locator string, opts ...FetchOption) (string, error) {
	cfg := fetchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.client == nil {
		cfg.client = http.DefaultClient
	}
	if cfg.cacheDir == "" {
		cfg.cacheDir = DefaultCacheDir()
	}
	if cfg.registry == nil {
		cfg.registry = NewRegistry()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	resolved, parsed, err := resolveLocator(ctx, locator, cfg.registry.protocols)
	if err != nil {
		return "", err
	}

	// Already a local directory: nothing to fetch.
	if parsed.Scheme == "" {
		if info, statErr := os.Stat(resolved); statErr == nil && info.IsDir() {
			return resolved, nil
		}
	}

	base := filepath.Join(cfg.cacheDir, "artifacts")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(resolved))
	cachePath := filepath.Join(base, hex.EncodeToString(sum[:]))
	if _, err := os.Stat(cachePath); err == nil {
		logger.Debug("cache hit", "locator", resolved, "path", cachePath)
		return cachePath, nil
	}

	expected := cfg.expected
	if expected != "" {
		normalized, err := stream.NormalizeSHA256(expected)
		if err != nil {
			return "", err
		}
		expected = normalized
	}

	manifest := fetchSidecarManifest(ctx, cfg.client, resolved, logger)
	if manifest != nil && manifest.ExpectedSHA256 != "" {
		fromManifest, err := stream.NormalizeSHA256(manifest.ExpectedSHA256)
		if err != nil {
			return "", fmt.Errorf("package manifest for %q: %w", resolved, err)
		}
		if expected != "" && expected != fromManifest {
			return "", fmt.Errorf("expected sha256 %s conflicts with %s declared by the package manifest for %q", expected, fromManifest, resolved)
		}
		expected = fromManifest
	}

	if err := fetchAndExtract(ctx, &cfg, logger, resolved, parsed, cachePath, expected, manifest); err != nil {
		return "", err
	}
	return cachePath, nil
}

// fetchSidecarManifest fetches <url>.json. Absence or unreadability is
// not an error, just the loss of segment and digest information.
func fetchSidecarManifest(ctx context.Context, client *http.Client, resolved string, logger *slog.Logger) *Manifest {
	rc, _, err := openOrDownload(ctx, client, resolved+".json")
	if err != nil {
		return nil
	}
	defer rc.Close()
	m, err := ReadManifest(rc)
	if err != nil {
		logger.Debug("ignoring unreadable package manifest", "locator", resolved, "error", err)
		return nil
	}
	return m
}

func fetchAndExtract(ctx context.Context, cfg *fetchConfig, logger *slog.Logger, resolved string, parsed *url.URL, cachePath, expected string, manifest *Manifest) (err error) {
	dout, err := atomicfile.CreateDir(cachePath)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = dout.Abort()
		}
	}()

	// Provenance is staged and flushed before archive reading starts.
	prov, err := writeProvenance(cachePath, resolved, parsed)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = prov.Abort()
		}
	}()

	src, err := openPackageStream(ctx, cfg, resolved, expected, manifest)
	if err != nil {
		return err
	}
	defer func() {
		if src != nil {
			_ = src.Close()
		}
	}()

	cin, closeDecomp, err := newDecompressor(src, packageName(parsed, resolved))
	if err != nil {
		return err
	}
	defer closeDecomp()

	logger.Info("extracting package", "locator", resolved, "dest", cachePath)
	if err := extractArchive(ctx, tar.NewReader(cin), dout.Path(), logger); err != nil {
		return err
	}

	// Drain trailing raw bytes so the digest covers the full stream,
	// then let Close verify it.
	if _, err := io.Copy(io.Discard, src); err != nil {
		return err
	}
	closeErr := src.Close()
	src = nil
	if closeErr != nil {
		return closeErr
	}

	if err := prov.Commit(); err != nil {
		return err
	}
	return dout.Commit()
}

// openPackageStream opens the package bytes: each declared segment in
// order through a MultiReader, or a single stream when unsegmented. When
// an expected digest is known the outermost wrapper verifies it on close.
func openPackageStream(ctx context.Context, cfg *fetchConfig, resolved, expected string, manifest *Manifest) (io.ReadCloser, error) {
	var src io.ReadCloser
	if manifest != nil && len(manifest.Segments) > 0 {
		openers := make([]stream.Opener, len(manifest.Segments))
		for i := range manifest.Segments {
			segURL := fmt.Sprintf("%s.%d", resolved, i)
			openers[i] = func() (io.ReadCloser, error) {
				rc, size, err := openOrDownload(ctx, cfg.client, segURL)
				if err != nil {
					return nil, err
				}
				return wrapProgress(rc, size, segURL, cfg.progress), nil
			}
		}
		src = stream.NewMultiReader(openers...)
	} else {
		rc, size, err := openOrDownload(ctx, cfg.client, resolved)
		if err != nil {
			return nil, err
		}
		src = wrapProgress(rc, size, resolved, cfg.progress)
	}

	if expected != "" {
		hr, err := stream.NewHashReader(src, expected)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		return hr, nil
	}
	return src, nil
}

func wrapProgress(rc io.ReadCloser, total int64, path string, fn ProgressFunc) io.ReadCloser {
	if fn == nil {
		return rc
	}
	return stream.NewProgressReader(rc, func(read int64) {
		fn(ProgressEvent{Path: path, Bytes: read, Total: total})
	})
}

// writeProvenance stages the {url} or {path} sidecar next to the cache
// destination and flushes it, so provenance is recoverable even if
// extraction later fails.
func writeProvenance(cachePath, resolved string, parsed *url.URL) (*atomicfile.File, error) {
	p := provenance{}
	if parsed.Scheme == "" {
		p.Path = resolved
	} else {
		p.URL = resolved
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	f, err := atomicfile.Create(cachePath + ".json")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Abort()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Abort()
		return nil, err
	}
	return f, nil
}

// packageName returns the file name used for compression-suffix
// detection.
func packageName(parsed *url.URL, resolved string) string {
	if parsed.Scheme != "" {
		return parsed.Path
	}
	return resolved
}
