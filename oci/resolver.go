// Package oci resolves oci: locators against OCI registries. The
// resolver maps a tagged reference to the registry blob URL of the
// package layer, which the fetcher then downloads like any other URL.
package oci

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/terrierteam/artifact"
)

// config holds resolver configuration.
type config struct {
	plainHTTP bool
	client    remote.Client
}

// Option configures the resolver.
type Option func(*config)

// WithPlainHTTP uses http instead of https for registry access, for
// local and test registries.
func WithPlainHTTP() Option {
	return func(cfg *config) {
		cfg.plainHTTP = true
	}
}

// WithClient sets the HTTP client used for registry requests.
func WithClient(client *http.Client) Option {
	return func(cfg *config) {
		cfg.client = client
	}
}

// Resolver returns a protocol resolver for locators of the form
// oci:registry/repository:tag. Register it with
// RegisterProtocol("oci", oci.Resolver()).
func Resolver(opts ...Option) artifact.ProtocolResolver {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(ctx context.Context, u *url.URL) (string, error) {
		return resolve(ctx, &cfg, u)
	}
}

func resolve(ctx context.Context, cfg *config, u *url.URL) (string, error) {
	refStr := u.Opaque
	if refStr == "" {
		refStr = strings.TrimPrefix(u.Path, "//")
	}
	ref, err := registry.ParseReference(refStr)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", refStr, err)
	}
	if ref.Reference == "" {
		return "", fmt.Errorf("reference %q has no tag or digest", refStr)
	}

	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		return "", err
	}
	repo.PlainHTTP = cfg.plainHTTP
	if cfg.client != nil {
		repo.Client = cfg.client
	}

	desc, err := repo.Resolve(ctx, ref.Reference)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", refStr, err)
	}

	layer, err := packageLayer(ctx, repo, desc)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", refStr, err)
	}

	scheme := "https"
	if cfg.plainHTTP {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/v2/%s/blobs/%s", scheme, ref.Registry, ref.Repository, layer.Digest), nil
}

// packageLayer fetches the manifest and returns the descriptor of the
// package layer, the manifest's first layer.
func packageLayer(ctx context.Context, fetcher content.Fetcher, desc ocispec.Descriptor) (ocispec.Descriptor, error) {
	if desc.MediaType != ocispec.MediaTypeImageManifest {
		return ocispec.Descriptor{}, fmt.Errorf("unsupported media type %q", desc.MediaType)
	}
	data, err := content.FetchAll(ctx, fetcher, desc)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("parse manifest: %w", err)
	}
	if len(manifest.Layers) == 0 {
		return ocispec.Descriptor{}, fmt.Errorf("manifest has no layers")
	}
	layer := manifest.Layers[0]
	if err := layer.Digest.Validate(); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("layer digest: %w", err)
	}
	if layer.Digest.Algorithm() != digest.SHA256 {
		return ocispec.Descriptor{}, fmt.Errorf("unsupported layer digest algorithm %q", layer.Digest.Algorithm())
	}
	return layer, nil
}
