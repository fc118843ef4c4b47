package reader

import (
	"testing"
	"time"

	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/types"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestInspectManifest(t *testing.T) {
	m := types.Manifest{
		Version:     types.ManifestVersion,
		GeneratedAt: at("2024-06-01T12:00:00Z"),
		FPS:         2,
		Images: []types.FrameRecord{
			{Path: "a/2024-01-03_08-00-00.png", Timestamp: at("2024-01-03T08:00:00Z")},
			{Path: "b/2024-01-01_09-00-00.png", Timestamp: at("2024-01-01T09:00:00Z")},
			{Path: "c/2024-01-01_10-00-00.png", Timestamp: at("2024-01-01T10:00:00Z")},
			{Path: "d/2024-01-02_10-00-00.png", Timestamp: at("2024-01-02T10:00:00Z")},
		},
	}

	resp := InspectManifest("site/manifest.json", m)

	if resp.Source != "site/manifest.json" || resp.Count != 4 || resp.FPS != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.GeneratedAt != "2024-06-01T12:00:00.000Z" {
		t.Errorf("GeneratedAt = %q", resp.GeneratedAt)
	}
	if resp.First == nil || resp.First.Path != "a/2024-01-03_08-00-00.png" {
		t.Errorf("First = %+v", resp.First)
	}
	if resp.Last == nil || resp.Last.Timestamp != "2024-01-02T10:00:00.000Z" {
		t.Errorf("Last = %+v", resp.Last)
	}
	if resp.DateFrom != "2024-01-01" || resp.DateTo != "2024-01-03" {
		t.Errorf("date range = %s..%s", resp.DateFrom, resp.DateTo)
	}
	if resp.Days != 3 {
		t.Errorf("Days = %d, want 3", resp.Days)
	}
	if resp.DurationSeconds != 2 {
		t.Errorf("DurationSeconds = %v, want 2", resp.DurationSeconds)
	}
}

func TestInspectManifest_Empty(t *testing.T) {
	resp := InspectManifest("manifest.json", types.Manifest{FPS: 30})

	if resp.Count != 0 || resp.First != nil || resp.Last != nil || resp.Days != 0 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.GeneratedAt != "" {
		t.Errorf("GeneratedAt = %q, want empty", resp.GeneratedAt)
	}
}

func TestSummarizeRuns(t *testing.T) {
	records := []lode.HistoryRecord{
		{RunID: "r3", Mode: "clean", CompletedAt: at("2024-01-03T00:00:00Z"), RecordsKept: 10, Removed: 2, RecordsRejected: 1},
		{RunID: "r2", Mode: "append", CompletedAt: at("2024-01-02T00:00:00Z"), RecordsKept: 12, StoreFailures: 1},
		{RunID: "r1", Mode: "append", CompletedAt: at("2024-01-01T00:00:00Z"), RecordsKept: 11},
	}

	stats := SummarizeRuns(records)

	if stats.Total != 3 || stats.Append != 2 || stats.Clean != 1 || stats.Rebuild != 0 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.Removed != 2 || stats.Rejected != 1 || stats.StoreFailures != 1 {
		t.Errorf("totals = %+v", stats)
	}
	if stats.LastRunAt == nil || !stats.LastRunAt.Equal(at("2024-01-03T00:00:00Z")) || stats.LastKept != 10 {
		t.Errorf("latest = %v kept=%d", stats.LastRunAt, stats.LastKept)
	}

	if empty := SummarizeRuns(nil); empty.Total != 0 || empty.LastRunAt != nil {
		t.Errorf("empty = %+v", empty)
	}
}

func TestListRuns(t *testing.T) {
	items := ListRuns([]lode.HistoryRecord{
		{RunID: "r1", Mode: "rebuild", RecordsKept: 5, Removed: 1, RecordsRejected: 1, GzipBytes: 99},
	})
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	got := items[0]
	if got.RunID != "r1" || got.Mode != "rebuild" || got.Kept != 5 || got.Removed != 1 || got.Rejected != 1 || got.GzipBytes != 99 {
		t.Errorf("item = %+v", got)
	}
}

func TestListFrames(t *testing.T) {
	m := types.Manifest{Images: []types.FrameRecord{
		{Path: "a/2024-01-01_08-00-00.png", Timestamp: at("2024-01-01T08:00:00Z")},
		{Path: "a/2024-01-02_08-00-00.png", Timestamp: at("2024-01-02T08:00:00Z")},
		{Path: "a/2024-01-02_09-30-00.png", Timestamp: at("2024-01-02T09:30:00Z")},
	}}

	all := ListFrames(m, "")
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Timestamp != "2024-01-01T08:00:00.000Z" {
		t.Errorf("Timestamp = %q", all[0].Timestamp)
	}

	day := ListFrames(m, "2024-01-02")
	if len(day) != 2 || day[1].Path != "a/2024-01-02_09-30-00.png" {
		t.Errorf("ListFrames(2024-01-02) = %+v", day)
	}

	if got := ListFrames(m, "2023-12-31"); len(got) != 0 {
		t.Errorf("ListFrames(miss) = %+v, want empty", got)
	}
}
