package artifact

import (
	"archive/tar"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPackage builds a package from files and returns the directory
// holding the package and its manifest sidecar.
func buildTestPackage(t *testing.T, files map[string]string, opts ...BuildOption) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.MkdirAll(src, 0o755))
	createTestTree(t, src, files)

	served := t.TempDir()
	_, err := BuildPackage(context.Background(), src, filepath.Join(served, "pkg.tar.lz4"), opts...)
	require.NoError(t, err)
	return served
}

// countingHandler serves files while recording every request path.
type countingHandler struct {
	h http.Handler

	mu       sync.Mutex
	requests []string
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests = append(c.requests, r.URL.Path)
	c.mu.Unlock()
	c.h.ServeHTTP(w, r)
}

func (c *countingHandler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func TestFromURL_HTTPFetchAndCache(t *testing.T) {
	t.Parallel()

	served := buildTestPackage(t, testFiles)
	handler := &countingHandler{h: http.FileServer(http.Dir(served))}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	cacheDir := t.TempDir()
	locator := srv.URL + "/pkg.tar.lz4"

	dest, err := FromURL(context.Background(), locator, FetchWithCacheDir(cacheDir))
	require.NoError(t, err)
	for rel, content := range testFiles {
		extracted, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, content, string(extracted))
	}

	// Provenance records the source URL.
	prov, err := os.ReadFile(dest + ".json")
	require.NoError(t, err)
	assert.Contains(t, string(prov), locator)
	assert.Contains(t, DescribePath(dest), "<from")

	// A second fetch of the same locator is served from cache.
	before := handler.count()
	again, err := FromURL(context.Background(), locator, FetchWithCacheDir(cacheDir))
	require.NoError(t, err)
	assert.Equal(t, dest, again)
	assert.Equal(t, before, handler.count())
}

func TestFromURL_SegmentedHTTP(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.bin": incompressibleData("a", 1500),
		"b.bin": incompressibleData("b", 1500),
		"c.bin": incompressibleData("c", 1500),
	}
	served := buildTestPackage(t, files, BuildWithMaxSegmentSize(600))

	manifest, err := LoadManifest(filepath.Join(served, "pkg.tar.lz4.json"))
	require.NoError(t, err)
	require.Greater(t, len(manifest.Segments), 1)

	srv := httptest.NewServer(http.FileServer(http.Dir(served)))
	defer srv.Close()

	var events []ProgressEvent
	dest, err := FromURL(context.Background(), srv.URL+"/pkg.tar.lz4",
		FetchWithCacheDir(t.TempDir()),
		FetchWithProgress(func(ev ProgressEvent) {
			events = append(events, ev)
		}))
	require.NoError(t, err)
	for rel, content := range files {
		extracted, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		assert.Equal(t, content, string(extracted))
	}
	assert.NotEmpty(t, events)
}

func TestFromURL_ExpectedDigestAccepted(t *testing.T) {
	t.Parallel()

	served := buildTestPackage(t, testFiles)
	manifest, err := LoadManifest(filepath.Join(served, "pkg.tar.lz4.json"))
	require.NoError(t, err)

	// Serve only the package; the expected digest comes from the caller.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pkg.tar.lz4" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(served, "pkg.tar.lz4"))
	}))
	defer srv.Close()

	_, err = FromURL(context.Background(), srv.URL+"/pkg.tar.lz4",
		FetchWithCacheDir(t.TempDir()),
		FetchWithExpectedSHA256("sha256:"+manifest.ExpectedSHA256))
	require.NoError(t, err)
}

func TestFromURL_HashMismatch(t *testing.T) {
	t.Parallel()

	served := buildTestPackage(t, testFiles)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pkg.tar.lz4" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(served, "pkg.tar.lz4"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	_, err := FromURL(context.Background(), srv.URL+"/pkg.tar.lz4",
		FetchWithCacheDir(cacheDir),
		FetchWithExpectedSHA256(strings.Repeat("ab", 32)))
	require.ErrorIs(t, err, ErrHashMismatch)

	assertEmptyCache(t, cacheDir)
}

func TestFromURL_ConflictingDigests(t *testing.T) {
	t.Parallel()

	served := buildTestPackage(t, testFiles)
	srv := httptest.NewServer(http.FileServer(http.Dir(served)))
	defer srv.Close()

	_, err := FromURL(context.Background(), srv.URL+"/pkg.tar.lz4",
		FetchWithCacheDir(t.TempDir()),
		FetchWithExpectedSHA256(strings.Repeat("ab", 32)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with")
}

func TestFromURL_CorruptedPackage(t *testing.T) {
	t.Parallel()

	served := buildTestPackage(t, testFiles)
	pkg := filepath.Join(served, "pkg.tar.lz4")
	data, err := os.ReadFile(pkg)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(pkg, data, 0o644))

	srv := httptest.NewServer(http.FileServer(http.Dir(served)))
	defer srv.Close()

	cacheDir := t.TempDir()
	_, err = FromURL(context.Background(), srv.URL+"/pkg.tar.lz4",
		FetchWithCacheDir(cacheDir))
	require.Error(t, err)

	assertEmptyCache(t, cacheDir)
}

func TestFromURL_HTTPStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := FromURL(context.Background(), srv.URL+"/missing.tar.lz4",
		FetchWithCacheDir(t.TempDir()))
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.Status)
}

func TestFromURL_LocalNotFound(t *testing.T) {
	t.Parallel()

	_, err := FromURL(context.Background(), filepath.Join(t.TempDir(), "nope.tar.lz4"),
		FetchWithCacheDir(t.TempDir()))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFromURL_LocalDirectoryShortCircuit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	got, err := FromURL(context.Background(), dir, FetchWithCacheDir(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestFromURL_PathEscape(t *testing.T) {
	t.Parallel()

	// A hand-built package whose only entry climbs out of the
	// destination.
	served := t.TempDir()
	pkg := filepath.Join(served, "evil.tar.lz4")
	f, err := os.Create(pkg)
	require.NoError(t, err)
	lzw := lz4.NewWriter(f)
	tw := tar.NewWriter(lzw)
	content := []byte("gotcha")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "../evil.txt",
		Size:     int64(len(content)),
		Mode:     0o644,
	}))
	_, err = tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, lzw.Close())
	require.NoError(t, f.Close())

	cacheDir := t.TempDir()
	_, err = FromURL(context.Background(), pkg, FetchWithCacheDir(cacheDir))
	require.ErrorIs(t, err, ErrPathEscape)

	// Nothing escaped and nothing was committed.
	_, err = os.Stat(filepath.Join(cacheDir, "evil.txt"))
	require.True(t, os.IsNotExist(err))
	assertEmptyCache(t, cacheDir)
}

// assertEmptyCache asserts that no artifact was committed to the cache.
func assertEmptyCache(t *testing.T, cacheDir string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(cacheDir, "artifacts"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
