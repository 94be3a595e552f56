package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// openStream opens a URL for reading, failing with *TransportError on
// connection errors or any status other than 200. The returned size is
// the Content-Length, or 0 when unknown.
func openStream(ctx context.Context, client *http.Client, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, &TransportError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, 0, &TransportError{URL: url, Status: resp.StatusCode}
	}
	size := resp.ContentLength
	if size < 0 {
		size = 0
	}
	return resp.Body, size, nil
}

// openOrDownload opens a local file or downloads a URL as a stream.
func openOrDownload(ctx context.Context, client *http.Client, pathOrURL string) (io.ReadCloser, int64, error) {
	if isHTTP(pathOrURL) {
		return openStream(ctx, client, pathOrURL)
	}
	info, err := os.Stat(pathOrURL)
	if err != nil || info.IsDir() {
		return nil, 0, fmt.Errorf("%w: path or url %q", ErrNotFound, pathOrURL)
	}
	f, err := os.Open(pathOrURL)
	if err != nil {
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
