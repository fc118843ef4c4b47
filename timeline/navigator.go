package timeline

import (
	"fmt"
	"strings"

	"github.com/pithecene-io/lapse/types"
)

// Status messages shown alongside the timeline.
const (
	StatusLoading     = "Loading timeline..."
	StatusUnavailable = "Timeline unavailable (failed to load manifest files)."
	StatusEmpty       = "No frames found in manifest."
)

// dateLayout is the jump-to-date input format.
const dateLayout = "2006-01-02"

// Navigator tracks a position within a manifest's frames.
// The zero value is an empty timeline.
type Navigator struct {
	frames []types.FrameRecord
	index  int
	status string
}

// NewNavigator positions a navigator on the first frame of m.
func NewNavigator(m types.Manifest) *Navigator {
	n := &Navigator{frames: m.Images}
	if len(n.frames) == 0 {
		n.status = StatusEmpty
	}
	return n
}

// Count returns the number of frames.
func (n *Navigator) Count() int {
	return len(n.frames)
}

// Index returns the current position (0 when empty).
func (n *Navigator) Index() int {
	return n.index
}

// Current returns the frame at the current position.
func (n *Navigator) Current() (types.FrameRecord, bool) {
	if len(n.frames) == 0 {
		return types.FrameRecord{}, false
	}
	return n.frames[n.index], true
}

// Status returns the last status message, or "" when there is none.
func (n *Navigator) Status() string {
	return n.status
}

// Go moves to index, clamped to the valid range, and returns the new
// position. It is a no-op on an empty timeline.
func (n *Navigator) Go(index int) int {
	if len(n.frames) == 0 {
		return 0
	}
	n.index = max(0, min(index, len(n.frames)-1))
	return n.index
}

// Next steps forward one frame.
func (n *Navigator) Next() int {
	return n.Go(n.index + 1)
}

// Prev steps back one frame.
func (n *Navigator) Prev() int {
	return n.Go(n.index - 1)
}

// CanPrev reports whether Prev would move.
func (n *Navigator) CanPrev() bool {
	return len(n.frames) > 0 && n.index > 0
}

// CanNext reports whether Next would move.
func (n *Navigator) CanNext() bool {
	return len(n.frames) > 0 && n.index < len(n.frames)-1
}

// JumpToDate moves to the first frame captured on date (YYYY-MM-DD, UTC).
// When no frame matches, the position is unchanged, the status explains
// why and false is returned.
func (n *Navigator) JumpToDate(date string) bool {
	date = strings.TrimSpace(date)
	if date == "" || len(n.frames) == 0 {
		return false
	}
	for i, f := range n.frames {
		if f.Timestamp.UTC().Format(dateLayout) == date {
			n.status = ""
			n.Go(i)
			return true
		}
	}
	n.status = fmt.Sprintf("No frames found for %s (UTC).", date)
	return false
}

// Neighbors returns the frames adjacent to the current one, previous
// first, for preloading.
func (n *Navigator) Neighbors() []types.FrameRecord {
	var out []types.FrameRecord
	for _, i := range []int{n.index - 1, n.index + 1} {
		if i >= 0 && i < len(n.frames) {
			out = append(out, n.frames[i])
		}
	}
	return out
}

// Label describes the current frame as
// "Frame N / T • YYYY-MM-DD HH:MM:SS UTC".
func (n *Navigator) Label() string {
	f, ok := n.Current()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Frame %d / %d • %s UTC",
		n.index+1, len(n.frames), f.Timestamp.UTC().Format("2006-01-02 15:04:05"))
}

// DateBounds returns the capture dates of the first and last frames.
func (n *Navigator) DateBounds() (first, last string, ok bool) {
	if len(n.frames) == 0 {
		return "", "", false
	}
	return n.frames[0].Timestamp.UTC().Format(dateLayout),
		n.frames[len(n.frames)-1].Timestamp.UTC().Format(dateLayout), true
}
