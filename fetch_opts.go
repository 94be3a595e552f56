package artifact

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultCacheDir returns the artifact cache home: $PT_ARTIFACT_HOME if
// set, otherwise a pt-artifact directory under the user cache dir.
func DefaultCacheDir() string {
	if home := os.Getenv("PT_ARTIFACT_HOME"); home != "" {
		return home
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "pt-artifact")
}

// fetchConfig holds configuration for fetch and extract.
type fetchConfig struct {
	expected string
	cacheDir string
	client   *http.Client
	registry *Registry
	logger   *slog.Logger
	progress ProgressFunc
}

// FetchOption configures a fetch.
type FetchOption func(*fetchConfig)

// FetchWithExpectedSHA256 sets the expected package digest, as bare hex
// or a "sha256:<hex>" string. The caller-supplied value is authoritative:
// a conflicting digest in the package's sidecar manifest is a hard error.
func FetchWithExpectedSHA256(digest string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.expected = digest
	}
}

// FetchWithCacheDir sets the cache home directory. Defaults to
// DefaultCacheDir().
func FetchWithCacheDir(dir string) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.cacheDir = dir
	}
}

// FetchWithClient sets the HTTP client used for downloads.
func FetchWithClient(client *http.Client) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.client = client
	}
}

// FetchWithRegistry sets the registry whose protocol resolvers expand
// symbolic locators. Defaults to a fresh NewRegistry().
func FetchWithRegistry(r *Registry) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.registry = r
	}
}

// FetchWithLogger sets the logger for fetch progress. Nil discards.
func FetchWithLogger(logger *slog.Logger) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.logger = logger
	}
}

// FetchWithProgress sets a callback receiving download progress events.
func FetchWithProgress(fn ProgressFunc) FetchOption {
	return func(cfg *fetchConfig) {
		cfg.progress = fn
	}
}
