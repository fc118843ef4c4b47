package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// DefaultSourceDir is the default image archive root.
const DefaultSourceDir = "archive"

// RebuildRequest regenerates the manifest from an image archive.
type RebuildRequest struct {
	// SourceDir is walked recursively for images (default "archive").
	SourceDir string
	// RelativeTo is the base directory manifest paths are relative to
	// (default: the current working directory).
	RelativeTo string
	// FPS sets the playback rate (default Config.DefaultFPS).
	FPS *float64
}

// Rebuild ignores any existing manifest and writes a new one listing every
// supported image under SourceDir whose filename encodes a capture instant
// inside the window. A missing SourceDir is an error.
func (b *Builder) Rebuild(ctx context.Context, req RebuildRequest) (Result, error) {
	if req.FPS != nil && !validFPS(*req.FPS) {
		return Result{}, ErrInvalidFPS
	}
	if req.SourceDir == "" {
		req.SourceDir = DefaultSourceDir
	}
	if req.RelativeTo == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Result{}, fmt.Errorf("resolve working directory: %w", err)
		}
		req.RelativeTo = wd
	}

	lock, err := b.lock()
	if err != nil {
		return Result{}, err
	}
	defer releaseLock(lock, b.logger)

	paths, err := b.scan(ctx, req.SourceDir, req.RelativeTo)
	if err != nil {
		return Result{}, err
	}

	images := make([]any, len(paths))
	for i, p := range paths {
		images[i] = types.FrameRecord{Path: p}
	}
	raw := manifest.RawManifest{"images": images}
	if req.FPS != nil {
		raw["fps"] = *req.FPS
	}

	m, stats := b.canonicalizer().BuildWithStats(raw)
	return b.commit(ctx, ModeRebuild, m, stats)
}

// scan walks root and returns supported image paths relative to base, with
// forward slashes.
func (b *Builder) scan(ctx context.Context, root, base string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory: %w", err)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !b.cfg.supportsExtension(filepath.Ext(path)) {
			return nil
		}
		b.collector.IncFilesScanned()

		rel, err := filepath.Rel(absBase, path)
		if err != nil {
			rel = path
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, lode.WrapReadError(err, root)
	}

	b.logger.Info("source scanned", map[string]any{
		"source": root,
		"images": len(paths),
	})
	return paths, nil
}
