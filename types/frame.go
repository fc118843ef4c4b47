// Package types defines core domain types for lapse.
//
//nolint:revive // types is a common Go package naming convention
package types

import "time"

// DefaultFPS is the playback rate used when a manifest does not specify one.
const DefaultFPS = 30

// FrameRecord is one captured image and its moment of capture.
type FrameRecord struct {
	// Path is a forward-slash relative file reference, unique within a manifest.
	Path string `json:"path" yaml:"path"`
	// Timestamp is the UTC capture instant.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Date returns the UTC calendar date of the frame as YYYY-MM-DD.
func (r FrameRecord) Date() string {
	return r.Timestamp.UTC().Format(time.DateOnly)
}

// Manifest is the ordered catalog of frames plus presentation metadata.
//
// Images are sorted ascending by Path. The frame count is always derived
// from Images; there is no independently settable count.
type Manifest struct {
	Version     int           `json:"version" yaml:"version"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
	FPS         float64       `json:"fps" yaml:"fps"`
	Images      []FrameRecord `json:"images" yaml:"images"`
}

// Count returns the number of frames in the manifest.
func (m Manifest) Count() int {
	return len(m.Images)
}

// First returns the first frame in path order.
func (m Manifest) First() (FrameRecord, bool) {
	if len(m.Images) == 0 {
		return FrameRecord{}, false
	}
	return m.Images[0], true
}

// Last returns the last frame in path order.
func (m Manifest) Last() (FrameRecord, bool) {
	if len(m.Images) == 0 {
		return FrameRecord{}, false
	}
	return m.Images[len(m.Images)-1], true
}
