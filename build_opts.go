package artifact

import "log/slog"

// buildConfig holds configuration for package creation.
type buildConfig struct {
	maxSegmentSize int64
	metadata       Metadata
	registry       *Registry
	logger         *slog.Logger
	progress       ProgressFunc
}

// BuildOption configures package creation.
type BuildOption func(*buildConfig)

// BuildWithMaxSegmentSize splits the package into segments of at most
// approximately n raw bytes. Zero or negative disables segmentation.
func BuildWithMaxSegmentSize(n int64) BuildOption {
	return func(cfg *buildConfig) {
		cfg.maxSegmentSize = n
	}
}

// BuildWithMetadata supplies the metadata synthesized into the package
// when the source directory has no metadata file of its own.
func BuildWithMetadata(meta Metadata) BuildOption {
	return func(cfg *buildConfig) {
		cfg.metadata = meta
	}
}

// BuildWithRegistry supplies a registry whose metadata adapters are used
// to infer metadata for directories that lack a metadata file.
func BuildWithRegistry(r *Registry) BuildOption {
	return func(cfg *buildConfig) {
		cfg.registry = r
	}
}

// BuildWithLogger sets the logger for build progress. Nil discards.
func BuildWithLogger(logger *slog.Logger) BuildOption {
	return func(cfg *buildConfig) {
		cfg.logger = logger
	}
}

// BuildWithProgress sets a callback receiving per-entry progress events.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(cfg *buildConfig) {
		cfg.progress = fn
	}
}
