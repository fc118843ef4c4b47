package lode

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lapse/metrics"
)

func recordRun(t *testing.T, h *History, mode, runID string, seen, kept int64, at time.Time) {
	t.Helper()
	c := metrics.NewCollector(mode, BackendFS, runID)
	c.IncRejected("invalid_timestamp")
	c.AbsorbBuildStats(seen, kept, 0, 0)
	c.SetPersisted(400, 120)
	if err := h.Record(t.Context(), c.Snapshot(), at); err != nil {
		t.Fatalf("Record(%s) failed: %v", runID, err)
	}
}

func TestHistory_RecordAndLatest(t *testing.T) {
	h, err := NewHistory(sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}

	base := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	recordRun(t, h, "append", "run-001", 5, 5, base)
	recordRun(t, h, "clean", "run-002", 10, 8, base.Add(time.Minute))
	recordRun(t, h, "append", "run-003", 6, 6, base.Add(2*time.Minute))

	latest, err := h.Latest(t.Context(), "")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.RunID != "run-003" {
		t.Errorf("RunID = %q, want run-003", latest.RunID)
	}
	if !latest.CompletedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CompletedAt = %v", latest.CompletedAt)
	}
	if latest.Day != "2026-02-03" {
		t.Errorf("Day = %q, want 2026-02-03", latest.Day)
	}
	if latest.GzipBytes != 120 || latest.VerboseBytes != 400 {
		t.Errorf("bytes = %d/%d, want 400/120", latest.VerboseBytes, latest.GzipBytes)
	}
	if latest.RejectedByReason["invalid_timestamp"] != 1 {
		t.Errorf("RejectedByReason = %v", latest.RejectedByReason)
	}

	clean, err := h.Latest(t.Context(), "clean")
	if err != nil {
		t.Fatalf("Latest(clean) failed: %v", err)
	}
	if clean.RunID != "run-002" || clean.Removed != 2 {
		t.Errorf("clean record = %+v, want run-002 removed=2", clean)
	}
}

func TestHistory_List(t *testing.T) {
	h, err := NewHistory(sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}

	base := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		recordRun(t, h, "rebuild", id, 1, 1, base.Add(time.Duration(i)*time.Hour))
	}

	all, err := h.List(t.Context(), "rebuild", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "run-3" || all[2].RunID != "run-1" {
		t.Errorf("List order = %+v, want newest first", all)
	}

	limited, err := h.List(t.Context(), "rebuild", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List limit 2 returned %d", len(limited))
	}
}

func TestHistory_Empty(t *testing.T) {
	h, err := NewHistory(sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}

	if _, err := h.Latest(t.Context(), ""); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Latest error = %v, want ErrNoHistory", err)
	}
}

func TestHistory_ModeNoSubstringCollision(t *testing.T) {
	h, err := NewHistory(sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}
	recordRun(t, h, "append", "run-1", 1, 1, time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC))

	if _, err := h.Latest(t.Context(), "app"); !errors.Is(err, ErrNoHistory) {
		t.Errorf("Latest(app) error = %v, want ErrNoHistory", err)
	}
}

func TestNewHistoryFS(t *testing.T) {
	h, err := NewHistoryFS(t.TempDir() + "/history")
	if err != nil {
		t.Fatalf("NewHistoryFS failed: %v", err)
	}
	recordRun(t, h, "append", "run-fs", 2, 2, time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC))

	rec, err := h.Latest(t.Context(), "append")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if rec.RunID != "run-fs" {
		t.Errorf("RunID = %q, want run-fs", rec.RunID)
	}
}

func TestMatchesPartitionValue(t *testing.T) {
	path := "datasets/lapse/partitions/mode=clean/day=2026-02-03/segment.jsonl"
	if !matchesPartitionValue(path, "mode", "clean") {
		t.Error("expected exact match")
	}
	if matchesPartitionValue(path, "mode", "clea") {
		t.Error("substring must not match")
	}
}
