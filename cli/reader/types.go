// Package reader builds the read-side payloads rendered by the lapse CLI.
//
// Every read-only command renders one of these types, whether as
// json/table/yaml/msgpack or through the TUI; the TUI shows no data the
// other formats lack.
package reader

import "time"

// FrameSummary identifies one frame.
type FrameSummary struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// InspectManifestResponse summarizes a manifest.
type InspectManifestResponse struct {
	Source          string        `json:"source"`
	Version         int           `json:"version"`
	GeneratedAt     string        `json:"generated_at"`
	FPS             float64       `json:"fps"`
	Count           int           `json:"count"`
	First           *FrameSummary `json:"first"`
	Last            *FrameSummary `json:"last"`
	DateFrom        string        `json:"date_from"`
	DateTo          string        `json:"date_to"`
	Days            int           `json:"days"`
	DurationSeconds float64       `json:"duration_seconds"`
}

// RunStats aggregates recorded runs.
type RunStats struct {
	Total         int        `json:"total"`
	Append        int        `json:"append"`
	Rebuild       int        `json:"rebuild"`
	Clean         int        `json:"clean"`
	Rejected      int64      `json:"rejected"`
	Removed       int64      `json:"removed"`
	StoreFailures int64      `json:"store_failures"`
	LastRunAt     *time.Time `json:"last_run_at"`
	LastKept      int64      `json:"last_kept"`
}

// ListRunItem is one recorded run.
type ListRunItem struct {
	RunID       string    `json:"run_id"`
	Mode        string    `json:"mode"`
	CompletedAt time.Time `json:"completed_at"`
	Kept        int64     `json:"kept"`
	Removed     int64     `json:"removed"`
	Rejected    int64     `json:"rejected"`
	GzipBytes   int64     `json:"gzip_bytes"`
}
