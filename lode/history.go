package lode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/lapse/metrics"
)

// HistoryDataset is the lode dataset ID for run history.
const HistoryDataset = "lapse"

// RecordKindRun marks a run history record.
const RecordKindRun = "run"

// ErrNoHistory is returned when no run history records match a query.
var ErrNoHistory = errors.New("no run history records found")

// DeriveDay computes the partition day from a run completion time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// HistoryRecord is one completed run as stored in the history dataset.
type HistoryRecord struct {
	RunID            string           `json:"run_id"`
	Mode             string           `json:"mode"`
	Day              string           `json:"day"`
	StorageBackend   string           `json:"storage_backend"`
	CompletedAt      time.Time        `json:"completed_at"`
	RecordsSeen      int64            `json:"records_seen"`
	RecordsKept      int64            `json:"records_kept"`
	RecordsRejected  int64            `json:"records_rejected"`
	RejectedByReason map[string]int64 `json:"rejected_by_reason,omitempty"`
	OutsideWindow    int64            `json:"outside_window"`
	Duplicates       int64            `json:"duplicates"`
	Removed          int64            `json:"removed"`
	FilesScanned     int64            `json:"files_scanned"`
	StoreWrites      int64            `json:"store_writes"`
	StoreFailures    int64            `json:"store_failures"`
	VerboseBytes     int64            `json:"verbose_bytes"`
	GzipBytes        int64            `json:"gzip_bytes"`
}

// History stores per-run metrics in a Hive-partitioned lode dataset
// (partition keys mode/day).
type History struct {
	dataset lode.Dataset
}

// NewHistory creates a run history backed by the store factory.
// Use lode.NewMemoryFactory() for testing.
func NewHistory(factory lode.StoreFactory) (*History, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(HistoryDataset),
		factory,
		lode.WithHiveLayout("mode", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, HistoryDataset)
	}
	return &History{dataset: ds}, nil
}

// NewHistoryFS creates a run history under a local directory.
func NewHistoryFS(root string) (*History, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, WrapInitError(err, root)
	}
	return NewHistory(lode.NewFSFactory(root))
}

// NewHistoryS3 creates a run history in an S3 bucket.
func NewHistoryS3(ctx context.Context, s3cfg S3Config) (*History, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewHistory(factory)
}

// Record writes one run's metrics snapshot.
func (h *History) Record(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	record := map[string]any{
		"record_kind":        RecordKindRun,
		"run_id":             snap.RunID,
		"mode":               snap.Mode,
		"day":                DeriveDay(completedAt),
		"storage_backend":    snap.StorageBackend,
		"completed_at":       completedAt.UTC().Format(time.RFC3339Nano),
		"records_seen":       snap.RecordsSeen,
		"records_kept":       snap.RecordsKept,
		"records_rejected":   snap.RecordsRejected,
		"rejected_by_reason": snap.RejectedByReason,
		"outside_window":     snap.OutsideWindow,
		"duplicates":         snap.Duplicates,
		"removed":            snap.Removed,
		"files_scanned":      snap.FilesScanned,
		"store_writes":       snap.StoreWriteSuccess,
		"store_failures":     snap.StoreWriteFailure,
		"verbose_bytes":      snap.VerboseBytes,
		"gzip_bytes":         snap.GzipBytes,
	}

	if _, err := h.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return NewStorageError(classifyError(err), "history", HistoryDataset, err)
	}
	return nil
}

// Latest returns the most recent run record, optionally filtered by mode.
func (h *History) Latest(ctx context.Context, mode string) (HistoryRecord, error) {
	records, err := h.List(ctx, mode, 1)
	if err != nil {
		return HistoryRecord{}, err
	}
	return records[0], nil
}

// List returns run records newest first, optionally filtered by mode.
// A limit of zero or less returns every match.
func (h *History) List(ctx context.Context, mode string, limit int) ([]HistoryRecord, error) {
	snapshots, err := h.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, HistoryDataset+"/snapshots")
	}

	var out []HistoryRecord
	seen := make(map[string]struct{})
	// Snapshots are ordered by creation time; iterate latest first.
	// Record fields are authoritative over partition paths, and a run seen
	// in a newer snapshot is not repeated.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "mode", mode) {
			continue
		}

		data, err := h.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", HistoryDataset, snap.ID))
		}

		for j := len(data) - 1; j >= 0; j-- {
			raw, ok := data[j].(map[string]any)
			if !ok || raw["record_kind"] != RecordKindRun {
				continue
			}
			if mode != "" && toString(raw["mode"]) != mode {
				continue
			}
			runID := toString(raw["run_id"])
			if _, dup := seen[runID]; dup {
				continue
			}
			seen[runID] = struct{}{}
			out = append(out, decodeHistoryRecord(raw))
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoHistory
	}
	return out, nil
}

func decodeHistoryRecord(raw map[string]any) HistoryRecord {
	rec := HistoryRecord{
		RunID:           toString(raw["run_id"]),
		Mode:            toString(raw["mode"]),
		Day:             toString(raw["day"]),
		StorageBackend:  toString(raw["storage_backend"]),
		RecordsSeen:     toInt64(raw["records_seen"]),
		RecordsKept:     toInt64(raw["records_kept"]),
		RecordsRejected: toInt64(raw["records_rejected"]),
		OutsideWindow:   toInt64(raw["outside_window"]),
		Duplicates:      toInt64(raw["duplicates"]),
		Removed:         toInt64(raw["removed"]),
		FilesScanned:    toInt64(raw["files_scanned"]),
		StoreWrites:     toInt64(raw["store_writes"]),
		StoreFailures:   toInt64(raw["store_failures"]),
		VerboseBytes:    toInt64(raw["verbose_bytes"]),
		GzipBytes:       toInt64(raw["gzip_bytes"]),
	}
	if t, err := time.Parse(time.RFC3339Nano, toString(raw["completed_at"])); err == nil {
		rec.CompletedAt = t
	}
	if reasons, ok := raw["rejected_by_reason"].(map[string]any); ok && len(reasons) > 0 {
		rec.RejectedByReason = make(map[string]int64, len(reasons))
		for k, v := range reasons {
			rec.RejectedByReason[k] = toInt64(v)
		}
	}
	return rec
}

// snapshotMatchesFilter checks if a snapshot's file paths match
// the given partition key=value filter.
func snapshotMatchesFilter(snap *lode.Snapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, avoiding substring false positives
// (mode=clean matching mode=cleanup).
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
