package manifest

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/pithecene-io/lapse/types"
)

// RawManifest is a decoded manifest document before canonicalization.
// It preserves whatever keys the writer used, including the legacy
// single-letter aliases "i" (images) and "f" (fps).
type RawManifest map[string]any

// Images returns the raw image entries, preferring "images" over "i".
// A key whose value is not a list is ignored.
func (r RawManifest) Images() []any {
	for _, key := range []string{"images", "i"} {
		if list, ok := r[key].([]any); ok {
			return list
		}
	}
	return nil
}

// FPS returns the playback rate, preferring "fps" over "f".
// Only finite positive numbers are accepted.
func (r RawManifest) FPS() (float64, bool) {
	for _, key := range []string{"fps", "f"} {
		if f, ok := toPositiveFloat(r[key]); ok {
			return f, true
		}
	}
	return 0, false
}

// GeneratedAt returns the document's generation instant, if it has one.
func (r RawManifest) GeneratedAt() (time.Time, bool) {
	return NormalizeTimestamp(r["generated_at"])
}

func toPositiveFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// RejectFunc observes records dropped during canonicalization.
type RejectFunc func(raw any, err *RejectError)

// Options configures a Canonicalizer. Zero values select defaults.
type Options struct {
	// DefaultFPS is used when the raw manifest carries no usable rate.
	DefaultFPS float64
	// Window filters frames by UTC hour of capture.
	Window Window
	// Now stamps GeneratedAt.
	Now func() time.Time
	// OnReject is called for every rejected record.
	OnReject RejectFunc
}

// Stats summarizes one canonicalization pass.
type Stats struct {
	Seen          int
	Rejected      int
	OutsideWindow int
	Duplicates    int
	Kept          int
}

// Removed is the number of input records absent from the output.
func (s Stats) Removed() int {
	return s.Seen - s.Kept
}

// Canonicalizer turns raw manifests into canonical ones: normalized,
// windowed, deduplicated by path (last occurrence wins) and sorted by path.
type Canonicalizer struct {
	opts Options
}

// NewCanonicalizer creates a Canonicalizer, filling unset options.
func NewCanonicalizer(opts Options) *Canonicalizer {
	if opts.DefaultFPS <= 0 || math.IsNaN(opts.DefaultFPS) || math.IsInf(opts.DefaultFPS, 0) {
		opts.DefaultFPS = types.DefaultFPS
	}
	if opts.Window.IsZero() {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Canonicalizer{opts: opts}
}

// Window returns the configured window.
func (c *Canonicalizer) Window() Window {
	return c.opts.Window
}

// DefaultFPS returns the configured fallback rate.
func (c *Canonicalizer) DefaultFPS() float64 {
	return c.opts.DefaultFPS
}

// Build canonicalizes a raw manifest.
func (c *Canonicalizer) Build(raw RawManifest) types.Manifest {
	m, _ := c.BuildWithStats(raw)
	return m
}

// BuildWithStats canonicalizes a raw manifest and reports what was dropped.
func (c *Canonicalizer) BuildWithStats(raw RawManifest) (types.Manifest, Stats) {
	entries := raw.Images()
	stats := Stats{Seen: len(entries)}

	// Window filtering runs before dedup.
	records := make([]types.FrameRecord, 0, len(entries))
	for _, entry := range entries {
		rec, err := NormalizeEntry(entry)
		if err != nil {
			stats.Rejected++
			var rejErr *RejectError
			if c.opts.OnReject != nil && errors.As(err, &rejErr) {
				c.opts.OnReject(entry, rejErr)
			}
			continue
		}
		if !c.opts.Window.Contains(rec.Timestamp) {
			stats.OutsideWindow++
			continue
		}
		records = append(records, rec)
	}

	images := dedupLastWins(records)
	stats.Duplicates = len(records) - len(images)
	sortByPath(images)
	stats.Kept = len(images)

	fps, ok := raw.FPS()
	if !ok {
		fps = c.opts.DefaultFPS
	}

	return types.Manifest{
		Version:     types.ManifestVersion,
		GeneratedAt: c.opts.Now().UTC(),
		FPS:         fps,
		Images:      images,
	}, stats
}

// dedupLastWins keeps the last record for each path, at the position of
// its first occurrence.
func dedupLastWins(records []types.FrameRecord) []types.FrameRecord {
	index := make(map[string]int, len(records))
	out := make([]types.FrameRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.Path]; ok {
			out[i] = rec
			continue
		}
		index[rec.Path] = len(out)
		out = append(out, rec)
	}
	return out
}

func sortByPath(images []types.FrameRecord) {
	slices.SortStableFunc(images, func(a, b types.FrameRecord) int {
		return strings.Compare(a.Path, b.Path)
	})
}
