package artifact

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"

	"github.com/terrierteam/artifact/stream"
)

// PackageExt is the file extension of a built package: a tar archive
// compressed with the LZ4 frame format.
const PackageExt = ".tar.lz4"

// buildEntry is one file scheduled for packaging. Data is non-nil only
// for the synthesized metadata entry.
type buildEntry struct {
	rel  string
	size int64
	data []byte
}

// BuildPackage serializes the artifact directory dir into a compressed,
// hashed, optionally-segmented package at out, plus a JSON manifest at
// out+".json" describing the byte offset and size of each entry.
//
// Files are enumerated in deterministic traversal order (files sorted by
// name within each directory), so the manifest and package hash are
// stable across runs for the same input tree. If the directory has no
// pt_meta.json, one is synthesized from the build metadata (or inferred
// through a registry's adapters) and included as a package entry, so
// every package is self-describing.
//
// When a maximum segment size is configured and reached, output rotates
// to numbered segment files; the hash covers the logical concatenation.
// If no segmentation occurred, the single segment is renamed to out.
// Any failure reverts all staged output; no partial package is left at
// the final paths.
//
// If out is empty it defaults to dir + ".tar.lz4". Returns the package
// path.
func BuildPackage(ctx context.Context, dir, out string, opts ...BuildOption) (string, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if out == "" {
		out = dir + PackageExt
	}

	fsys := os.DirFS(dir)
	entries, err := enumerateEntries(ctx, fsys, dir, &cfg)
	if err != nil {
		return "", err
	}

	seg, err := newSegmentWriter(out, cfg.maxSegmentSize, logger)
	if err != nil {
		return "", err
	}
	fail := func(err error) (string, error) {
		seg.abort()
		return "", err
	}

	hw := stream.NewHashWriter(seg)
	lzw := lz4.NewWriter(hw)
	tw := tar.NewWriter(lzw)

	manifest := &Manifest{Contents: make([]ContentEntry, 0, len(entries))}
	logger.Info("building package", "dir", dir, "out", out, "entries", len(entries))

	addedDirs := make(map[string]bool)
	buf := make([]byte, 32*1024)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := writeEntry(fsys, entry, tw, lzw, seg, manifest, addedDirs, buf, logger); err != nil {
			return fail(err)
		}
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{Path: entry.rel, Bytes: manifest.TotalSize})
		}
	}

	if err := tw.Close(); err != nil {
		return fail(err)
	}
	if err := lzw.Close(); err != nil {
		return fail(err)
	}

	manifest.ExpectedSHA256 = hw.Hexdigest()
	manifest.Segments = seg.segments
	if err := manifest.Save(out + ".json"); err != nil {
		return fail(err)
	}
	if err := seg.commit(); err != nil {
		return "", err
	}

	logger.Info("package built",
		"out", out,
		"total_size", humanize.Bytes(uint64(manifest.TotalSize)),
		"segments", max(seg.idx+1, 1),
		"sha256", manifest.ExpectedSHA256)
	return out, nil
}

// enumerateEntries walks dir in deterministic order and schedules every
// regular file, appending a synthesized metadata entry when the tree has
// none of its own.
func enumerateEntries(ctx context.Context, fsys fs.FS, dir string, cfg *buildConfig) ([]buildEntry, error) {
	entries := make([]buildEntry, 0, 64)
	hasMeta := false

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if p == MetadataFile {
			hasMeta = true
		}
		entries = append(entries, buildEntry{rel: p, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !hasMeta {
		meta := cfg.metadata
		if meta == (Metadata{}) && cfg.registry != nil {
			meta = cfg.registry.InferMetadata(dir)
		}
		if meta != (Metadata{}) {
			data, err := json.Marshal(meta)
			if err != nil {
				return nil, err
			}
			entries = append(entries, buildEntry{rel: MetadataFile, size: int64(len(data)), data: data})
		}
	}
	return entries, nil
}

// writeEntry streams one entry into the archive, recording its manifest
// row at the current raw stream position.
func writeEntry(fsys fs.FS, entry buildEntry, tw *tar.Writer, lzw *lz4.Writer, seg *segmentWriter, manifest *Manifest, addedDirs map[string]bool, buf []byte, logger *slog.Logger) error {
	// Directory entries precede their contents.
	for _, parent := range parentDirs(entry.rel) {
		if addedDirs[parent] {
			continue
		}
		hdr := &tar.Header{Typeflag: tar.TypeDir, Name: parent + "/", Mode: 0o755, ModTime: time.Unix(0, 0)}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		addedDirs[parent] = true
	}

	// Flush both layers so the recorded offset lands exactly on this
	// entry's header, allowing direct seeks without decompressing the
	// whole package.
	if err := tw.Flush(); err != nil {
		return err
	}
	if err := lzw.Flush(); err != nil {
		return err
	}

	manifest.Contents = append(manifest.Contents, ContentEntry{
		Path:   entry.rel,
		Size:   entry.size,
		Offset: seg.tell(),
	})
	manifest.TotalSize += entry.size
	logger.Debug("adding entry", "path", entry.rel, "size", humanize.Bytes(uint64(entry.size)))

	// Fixed timestamps keep the package hash stable across writer runs
	// for the same input tree.
	hdr := &tar.Header{Typeflag: tar.TypeReg, Name: entry.rel, Size: entry.size, Mode: 0o644, ModTime: time.Unix(0, 0)}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	var src io.Reader
	if entry.data != nil {
		src = bytes.NewReader(entry.data)
	} else {
		f, err := fsys.Open(entry.rel)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	// The rotation check runs after every chunk of the current entry.
	cr := stream.NewCallbackReader(src, func([]byte) error {
		return seg.maybeRotate()
	})
	n, err := io.CopyBuffer(tw, cr, buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", entry.rel, err)
	}
	if n != entry.size {
		return fmt.Errorf("write %s: file changed during packaging (expected %d bytes, copied %d)", entry.rel, entry.size, n)
	}
	return nil
}

// parentDirs returns the ancestor directories of rel, outermost first.
func parentDirs(rel string) []string {
	parent := path.Dir(rel)
	if parent == "." {
		return nil
	}
	var dirs []string
	for p := parent; p != "."; p = path.Dir(p) {
		dirs = append(dirs, p)
	}
	for i, j := 0, len(dirs)-1; i < j; i, j = i+1, j-1 {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	}
	return dirs
}
