package pipeline

import (
	"context"
	"slices"

	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// Skip reasons reported by Append.
const (
	SkipInvalidTimestamp = "invalid_timestamp"
	SkipOutsideWindow    = "outside_window"
)

// AppendRequest adds one captured frame to the manifest.
type AppendRequest struct {
	// ImagePath is the frame path as it should appear in the manifest.
	// Its filename must encode the capture instant.
	ImagePath string
	// FPS overrides the manifest's playback rate when set.
	FPS *float64
}

// Append adds one frame to the manifest and rewrites both files.
//
// A frame whose filename has no parseable timestamp, or whose capture time
// is outside the window, is skipped with a warning: the result has Skipped
// set and nothing is written. A missing manifest starts empty. An existing
// record with the same path is replaced.
func (b *Builder) Append(ctx context.Context, req AppendRequest) (Result, error) {
	if req.FPS != nil && !validFPS(*req.FPS) {
		return Result{}, ErrInvalidFPS
	}

	path := manifest.NormalizePath(req.ImagePath)
	ts, ok := manifest.ParseFilenameTimestamp(path)
	if !ok {
		b.logger.Warn("skipping frame: timestamp could not be parsed", map[string]any{"path": path})
		return Result{Mode: ModeAppend, Skipped: true, SkipReason: SkipInvalidTimestamp}, nil
	}
	if !b.cfg.Window.Contains(ts) {
		b.logger.Info("skipping frame: outside capture window", map[string]any{
			"path":       path,
			"timestamp":  manifest.FormatTimestamp(ts),
			"start_hour": b.cfg.Window.StartHour,
			"end_hour":   b.cfg.Window.EndHour,
		})
		return Result{Mode: ModeAppend, Skipped: true, SkipReason: SkipOutsideWindow}, nil
	}

	lock, err := b.lock()
	if err != nil {
		return Result{}, err
	}
	defer releaseLock(lock, b.logger)

	existing, _, err := b.readRaw(ctx)
	if err != nil {
		return Result{}, err
	}

	images := append(slices.Clone(existing.Images()), types.FrameRecord{Path: path, Timestamp: ts})
	raw := manifest.RawManifest{"images": images}
	if req.FPS != nil {
		raw["fps"] = *req.FPS
	} else if fps, ok := existing.FPS(); ok {
		raw["fps"] = fps
	}

	m, stats := b.canonicalizer().BuildWithStats(raw)
	return b.commit(ctx, ModeAppend, m, stats)
}
