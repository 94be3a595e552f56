// Package artifact packages on-disk artifact directories into portable,
// integrity-verified archives and reconstructs them from local paths,
// URLs, or symbolic aliases.
//
// A package is a .tar.lz4 serialization of an artifact directory,
// optionally split into size-bounded segments, accompanied by a JSON
// manifest describing its contents, byte offsets, and SHA-256 digest.
// BuildPackage produces one; FromURL fetches and extracts one into a
// content-addressed local cache. A Registry maps an extracted directory
// to a typed artifact implementation via its pt_meta.json metadata and a
// pluggable set of probes and constructors.
package artifact
