package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := Metadata{Type: "sparse_index", Format: "pisa", PackageHint: "example-pisa"}
	require.NoError(t, WriteMetadata(dir, want))

	got, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMetadata_NoFile(t *testing.T) {
	t.Parallel()

	meta, err := LoadMetadata(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, meta)
	assert.False(t, meta.Complete())
}

func TestLoadMetadata_FilePath(t *testing.T) {
	t.Parallel()

	// A single-file artifact has no metadata file by definition.
	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	meta, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, meta)
}

func TestLoadMetadata_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := LoadMetadata(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadMetadata_MalformedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte("{not json"), 0o644))

	_, err := LoadMetadata(dir)
	require.Error(t, err)
}

func TestMetadata_Key(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sparse_index.pisa", Metadata{Type: "sparse_index", Format: "pisa"}.Key())
}

func TestMetadata_Merge(t *testing.T) {
	t.Parallel()

	base := Metadata{Type: "sparse_index"}
	merged := base.merge(Metadata{Type: "other", Format: "pisa", PackageHint: "hint"})
	assert.Equal(t, Metadata{Type: "sparse_index", Format: "pisa", PackageHint: "hint"}, merged)
}

func TestManifest_SaveLoad(t *testing.T) {
	t.Parallel()

	want := &Manifest{
		ExpectedSHA256: "abc",
		TotalSize:      42,
		Contents: []ContentEntry{
			{Path: "a.bin", Size: 40, Offset: 0},
			{Path: "b.bin", Size: 2, Offset: 512},
		},
		Segments: []Segment{{Idx: 0, Offset: 0}, {Idx: 1, Offset: 300}},
	}

	path := filepath.Join(t.TempDir(), "pkg.tar.lz4.json")
	require.NoError(t, want.Save(path))

	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBuilder_Commit(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "new-artifact")
	b, err := NewBuilder(target, Metadata{Type: "sparse_index", Format: "pisa"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(b.Dir(), "index.bin"), []byte("x"), 0o644))

	// Not visible before Commit.
	_, err = os.Stat(target)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, b.Commit())

	meta, err := LoadMetadata(target)
	require.NoError(t, err)
	assert.Equal(t, "sparse_index.pisa", meta.Key())
	_, err = os.Stat(filepath.Join(target, "index.bin"))
	require.NoError(t, err)
}

func TestBuilder_ExistingTarget(t *testing.T) {
	t.Parallel()

	target := t.TempDir()
	_, err := NewBuilder(target, Metadata{})
	require.ErrorIs(t, err, os.ErrExist)
}

func TestBuilder_Abort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "new-artifact")
	b, err := NewBuilder(target, Metadata{})
	require.NoError(t, err)
	require.NoError(t, b.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDescribePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	require.NoError(t, os.MkdirAll(path, 0o755))

	// No sidecar: just the quoted path.
	assert.Equal(t, `"`+path+`"`, DescribePath(path))

	require.NoError(t, os.WriteFile(path+".json", []byte(`{"url":"https://example.com/pkg.tar.lz4"}`), 0o644))
	desc := DescribePath(path)
	assert.Contains(t, desc, path)
	assert.Contains(t, desc, `<from "https://example.com/pkg.tar.lz4">`)
}
