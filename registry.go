package artifact

import (
	"context"
	"os"
	"sort"
)

// Constructor instantiates a concrete artifact implementation against a
// directory.
type Constructor func(path string) (Artifact, error)

// MetadataAdapter probes a directory whose metadata file is missing or
// incomplete. It receives the artifact path and its directory listing and
// reports the metadata it recognized, if any.
type MetadataAdapter func(path string, listing []string) (Metadata, bool)

// Registry resolves artifact directories to typed implementations. All
// registration is explicit; there are no import-time side effects.
//
// A Registry is not safe for concurrent mutation; register everything
// up front, then share freely for lookups.
type Registry struct {
	constructors map[string]Constructor
	adapters     []MetadataAdapter
	protocols    map[string]ProtocolResolver
}

// NewRegistry creates a Registry with the built-in hf: protocol resolver
// and nothing else.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		protocols:    make(map[string]ProtocolResolver),
	}
	r.RegisterProtocol("hf", resolveHF)
	return r
}

// RegisterType registers a constructor for the given "type.format" key,
// replacing any previous registration.
func (r *Registry) RegisterType(key string, fn Constructor) {
	r.constructors[key] = fn
}

// RegisterMetadataAdapter appends a probe to the ordered adapter list.
// Adapters are consulted in registration order until one returns a result.
func (r *Registry) RegisterMetadataAdapter(fn MetadataAdapter) {
	r.adapters = append(r.adapters, fn)
}

// RegisterProtocol registers a locator resolver for a URL scheme,
// replacing any previous registration.
func (r *Registry) RegisterProtocol(scheme string, fn ProtocolResolver) {
	r.protocols[scheme] = fn
}

// InferMetadata determines the metadata for the artifact at path, reading
// its metadata file and filling missing fields through the adapter probes.
func (r *Registry) InferMetadata(path string) Metadata {
	meta, err := LoadMetadata(path)
	if err != nil {
		meta = Metadata{}
	}
	if !meta.Complete() {
		listing := directoryListing(path)
		for _, adapter := range r.adapters {
			probed, ok := adapter(path, listing)
			if !ok {
				continue
			}
			meta = meta.merge(probed)
			if meta.Complete() {
				break
			}
		}
	}
	return meta
}

// Load resolves the artifact directory at path to a typed implementation.
// It fails with *UnresolvedError when no registered constructor matches
// the discovered type and format.
func (r *Registry) Load(path string) (Artifact, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	meta := r.InferMetadata(path)
	if meta.Complete() {
		if ctor, ok := r.constructors[meta.Key()]; ok {
			return ctor(path)
		}
	}
	return nil, &UnresolvedError{
		Path:        DescribePath(path),
		Type:        meta.Type,
		Format:      meta.Format,
		PackageHint: meta.PackageHint,
	}
}

// FromURL fetches and extracts the package identified by locator, then
// resolves the resulting directory to a typed artifact.
func (r *Registry) FromURL(ctx context.Context, locator string, opts ...FetchOption) (Artifact, error) {
	opts = append([]FetchOption{FetchWithRegistry(r)}, opts...)
	path, err := FromURL(ctx, locator, opts...)
	if err != nil {
		return nil, err
	}
	return r.Load(path)
}

func directoryListing(path string) []string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
