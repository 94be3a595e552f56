// Package stream provides composable reader and writer decorators used by
// the package writer and fetcher: hash accumulation with verification on
// close, progress reporting, per-chunk callbacks, and transparent
// concatenation of segmented streams.
//
// Each wrapper exclusively owns the stream it decorates and propagates
// Close to it. Wrappers are single-threaded and not reentrant; only one
// composition is active per operation.
package stream
