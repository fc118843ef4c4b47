// Package adapter defines the notification boundary for manifest updates.
//
// Adapters publish a ManifestUpdatedEvent after a manifest pair has been
// persisted, so downstream systems (site rebuilds, cache purges, chat bots)
// can react without polling. Publishing is best-effort: callers log
// failures and never fail the run because of them.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/lapse/types"
)

// EventTypeManifestUpdated is the event_type of every published event.
const EventTypeManifestUpdated = "manifest_updated"

// DefaultBackoff is the base delay before the first retry.
const DefaultBackoff = 500 * time.Millisecond

// ManifestUpdatedEvent is the payload published after a manifest write.
type ManifestUpdatedEvent struct {
	ContractVersion string  `json:"contract_version"`
	EventType       string  `json:"event_type"` // always "manifest_updated"
	RunID           string  `json:"run_id"`
	Mode            string  `json:"mode"` // append, rebuild, clean
	Manifest        string  `json:"manifest"`
	CompactManifest string  `json:"compact_manifest"`
	Count           int     `json:"count"`
	FPS             float64 `json:"fps"`
	GeneratedAt     string  `json:"generated_at"` // ISO 8601
	VerboseBytes    int     `json:"verbose_bytes"`
	GzipBytes       int     `json:"gzip_bytes"`
	Removed         int     `json:"removed,omitempty"`
	Timestamp       string  `json:"timestamp"` // ISO 8601, publish time
}

// NewManifestUpdatedEvent fills the fixed fields of an event.
func NewManifestUpdatedEvent(runID, mode string, now time.Time) *ManifestUpdatedEvent {
	return &ManifestUpdatedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       EventTypeManifestUpdated,
		RunID:           runID,
		Mode:            mode,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes manifest update events to a downstream system.
type Adapter interface {
	// Publish sends a manifest update event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ManifestUpdatedEvent) error

	// Close releases adapter resources.
	Close() error
}

// RetryFunc performs one delivery attempt.
type RetryFunc func(ctx context.Context) (retriable bool, err error)

// Retry runs fn up to 1+retries times with exponential backoff starting at
// base (DefaultBackoff when zero). It stops early on success, on a
// non-retriable failure, or when ctx is done. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, base time.Duration, fn RetryFunc) error {
	if base <= 0 {
		base = DefaultBackoff
	}

	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * base
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		retriable, err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			return fmt.Errorf("%s: non-retriable error: %w", name, err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
