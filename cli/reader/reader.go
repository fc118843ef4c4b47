package reader

import (
	"time"

	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// InspectManifest summarizes m, loaded from source.
func InspectManifest(source string, m types.Manifest) *InspectManifestResponse {
	resp := &InspectManifestResponse{
		Source:  source,
		Version: m.Version,
		FPS:     m.FPS,
		Count:   m.Count(),
	}
	if !m.GeneratedAt.IsZero() {
		resp.GeneratedAt = manifest.FormatTimestamp(m.GeneratedAt)
	}
	if m.FPS > 0 {
		resp.DurationSeconds = float64(m.Count()) / m.FPS
	}

	first, ok := m.First()
	if !ok {
		return resp
	}
	last, _ := m.Last()

	resp.First = summarize(first)
	resp.Last = summarize(last)
	resp.DateFrom, resp.DateTo, resp.Days = dateRange(m.Images)
	return resp
}

func summarize(f types.FrameRecord) *FrameSummary {
	return &FrameSummary{Path: f.Path, Timestamp: manifest.FormatTimestamp(f.Timestamp)}
}

// dateRange returns the earliest and latest UTC capture dates and the
// number of distinct dates. Frames are ordered by path, not time.
func dateRange(frames []types.FrameRecord) (from, to string, days int) {
	seen := make(map[string]struct{})
	for _, f := range frames {
		d := f.Date()
		seen[d] = struct{}{}
		if from == "" || d < from {
			from = d
		}
		if d > to {
			to = d
		}
	}
	return from, to, len(seen)
}

// ListFrames lists m's frames in manifest order, restricted to one UTC
// capture date (YYYY-MM-DD) when date is non-empty.
func ListFrames(m types.Manifest, date string) []FrameSummary {
	out := make([]FrameSummary, 0, len(m.Images))
	for _, f := range m.Images {
		if date != "" && f.Date() != date {
			continue
		}
		out = append(out, *summarize(f))
	}
	return out
}

// ListRuns converts history records, newest first, to list items.
func ListRuns(records []lode.HistoryRecord) []ListRunItem {
	items := make([]ListRunItem, len(records))
	for i, r := range records {
		items[i] = ListRunItem{
			RunID:       r.RunID,
			Mode:        r.Mode,
			CompletedAt: r.CompletedAt,
			Kept:        r.RecordsKept,
			Removed:     r.Removed,
			Rejected:    r.RecordsRejected,
			GzipBytes:   r.GzipBytes,
		}
	}
	return items
}

// SummarizeRuns aggregates history records ordered newest first.
func SummarizeRuns(records []lode.HistoryRecord) *RunStats {
	stats := &RunStats{Total: len(records)}
	for _, r := range records {
		switch r.Mode {
		case "append":
			stats.Append++
		case "rebuild":
			stats.Rebuild++
		case "clean":
			stats.Clean++
		}
		stats.Rejected += r.RecordsRejected
		stats.Removed += r.Removed
		stats.StoreFailures += r.StoreFailures
	}
	if len(records) > 0 {
		latest := records[0]
		at := latest.CompletedAt.UTC().Truncate(time.Second)
		stats.LastRunAt = &at
		stats.LastKept = latest.RecordsKept
	}
	return stats
}
