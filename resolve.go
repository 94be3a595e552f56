package artifact

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strings"
)

// ProtocolResolver expands a locator with a symbolic scheme into another
// locator, typically a concrete URL. Returning an empty string leaves the
// locator unchanged.
type ProtocolResolver func(ctx context.Context, u *url.URL) (string, error)

// resolveLocator expands locator through the protocol table until its
// scheme is no longer registered. Each scheme is consulted at most once
// per resolution, bounding the iteration even when resolvers map to each
// other.
func resolveLocator(ctx context.Context, locator string, protocols map[string]ProtocolResolver) (string, *url.URL, error) {
	parsed, err := url.Parse(locator)
	if err != nil {
		// Not URL-shaped; treat as a local path.
		return locator, &url.URL{Path: locator}, nil
	}

	remaining := maps.Clone(protocols)
	for {
		resolver, ok := remaining[parsed.Scheme]
		if !ok {
			return locator, parsed, nil
		}
		delete(remaining, parsed.Scheme)

		next, err := resolver(ctx, parsed)
		if err != nil {
			return "", nil, fmt.Errorf("resolve %s locator %q: %w", parsed.Scheme, locator, err)
		}
		if next == "" {
			continue
		}
		nextParsed, err := url.Parse(next)
		if err != nil {
			return "", nil, fmt.Errorf("resolve %s locator %q: bad result %q: %w", parsed.Scheme, locator, next, err)
		}
		locator = next
		parsed = nextParsed
	}
}

// resolveHF expands hf:owner/repo[@ref] locators to the Hugging Face
// dataset resolve URL for the packaged artifact.
func resolveHF(_ context.Context, u *url.URL) (string, error) {
	repo := u.Opaque
	if repo == "" {
		// hf://owner/repo puts the owner in the host portion.
		repo = strings.TrimPrefix(u.Host+u.Path, "/")
	}
	if repo == "" {
		return "", fmt.Errorf("empty repository in %q", u.String())
	}
	ref := "main"
	if at := strings.LastIndex(repo, "@"); at >= 0 {
		repo, ref = repo[:at], repo[at+1:]
	}
	return fmt.Sprintf("https://huggingface.co/datasets/%s/resolve/%s/artifact.tar.lz4", repo, ref), nil
}
