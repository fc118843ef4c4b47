package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pithecene-io/lapse/types"
)

// VerboseEntry is one frame in the verbose form.
type VerboseEntry struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// VerboseManifest is the human-readable serialized form.
type VerboseManifest struct {
	Version     int            `json:"version"`
	GeneratedAt string         `json:"generated_at"`
	FPS         float64        `json:"fps"`
	Count       int            `json:"count"`
	Images      []VerboseEntry `json:"images"`
}

// CompactEntry is one frame in the compact form, encoded as a
// [path, epochSeconds] pair.
type CompactEntry struct {
	Path  string
	Epoch int64
}

// MarshalJSON encodes the entry as a two-element array.
func (e CompactEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Path, e.Epoch})
}

// UnmarshalJSON decodes a [path, epochSeconds] pair.
func (e *CompactEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("compact entry: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Path); err != nil {
		return fmt.Errorf("compact entry path: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Epoch); err != nil {
		return fmt.Errorf("compact entry epoch: %w", err)
	}
	return nil
}

// CompactManifest is the compressed-for-transport serialized form.
type CompactManifest struct {
	Version     int            `json:"version"`
	GeneratedAt string         `json:"generated_at"`
	FPS         float64        `json:"fps"`
	Count       int            `json:"count"`
	Images      []CompactEntry `json:"images"`
}

// ErrInvalidManifest is returned when a document is not a manifest.
var ErrInvalidManifest = errors.New("invalid manifest document")

// ToVerbose converts a canonical manifest to its verbose form.
func ToVerbose(m types.Manifest) VerboseManifest {
	images := make([]VerboseEntry, len(m.Images))
	for i, rec := range m.Images {
		images[i] = VerboseEntry{Path: rec.Path, Timestamp: FormatTimestamp(rec.Timestamp)}
	}
	return VerboseManifest{
		Version:     m.Version,
		GeneratedAt: FormatTimestamp(m.GeneratedAt),
		FPS:         m.FPS,
		Count:       len(images),
		Images:      images,
	}
}

// ToCompact converts a canonical manifest to its compact form.
// Timestamps are truncated to whole epoch seconds.
func ToCompact(m types.Manifest) CompactManifest {
	images := make([]CompactEntry, len(m.Images))
	for i, rec := range m.Images {
		images[i] = CompactEntry{Path: rec.Path, Epoch: rec.Timestamp.Unix()}
	}
	return CompactManifest{
		Version:     m.Version,
		GeneratedAt: FormatTimestamp(m.GeneratedAt),
		FPS:         m.FPS,
		Count:       len(images),
		Images:      images,
	}
}

// Expand converts a compact manifest back into a raw manifest ready for
// canonicalization.
func Expand(c CompactManifest) RawManifest {
	images := make([]any, len(c.Images))
	for i, e := range c.Images {
		images[i] = []any{e.Path, e.Epoch}
	}
	return RawManifest{
		"version":      c.Version,
		"generated_at": c.GeneratedAt,
		"fps":          c.FPS,
		"images":       images,
	}
}
