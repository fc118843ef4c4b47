package manifest

import (
	"fmt"
	"strings"

	"github.com/pithecene-io/lapse/types"
)

// RejectReason classifies why a raw frame record was rejected.
type RejectReason string

const (
	// ReasonMalformedEntry means the record is neither a pair nor an object.
	ReasonMalformedEntry RejectReason = "malformed_entry"
	// ReasonInvalidPath means the record has no usable path string.
	ReasonInvalidPath RejectReason = "invalid_path"
	// ReasonInvalidTimestamp means neither the explicit timestamp nor the
	// filename resolved to a valid instant.
	ReasonInvalidTimestamp RejectReason = "invalid_timestamp"
)

// RejectError describes a rejected frame record.
type RejectError struct {
	Reason RejectReason
	// Path is the normalized path when one could be read.
	Path string
}

func (e *RejectError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("frame record rejected: %s", e.Reason)
	}
	return fmt.Sprintf("frame record rejected: %s: %s", e.Reason, e.Path)
}

// NormalizePath converts backslash separators to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// NormalizeEntry converts one raw frame record into a canonical FrameRecord.
//
// Accepted shapes are a positional pair ([]any{path, timestamp}, the
// timestamp optional), a keyed object (map[string]any with "path" and
// "timestamp"), and an already typed types.FrameRecord. The explicit
// timestamp is tried first; when it is absent or unusable the timestamp is
// derived from the filename. A failed record returns a *RejectError.
func NormalizeEntry(raw any) (types.FrameRecord, error) {
	var (
		rawPath any
		rawTS   any
	)

	switch e := raw.(type) {
	case []any:
		if len(e) == 0 {
			return types.FrameRecord{}, &RejectError{Reason: ReasonMalformedEntry}
		}
		rawPath = e[0]
		if len(e) > 1 {
			rawTS = e[1]
		}
	case map[string]any:
		rawPath = e["path"]
		rawTS = e["timestamp"]
	case types.FrameRecord:
		rawPath = e.Path
		if !e.Timestamp.IsZero() {
			rawTS = e.Timestamp
		}
	default:
		return types.FrameRecord{}, &RejectError{Reason: ReasonMalformedEntry}
	}

	p, ok := rawPath.(string)
	if !ok || p == "" {
		return types.FrameRecord{}, &RejectError{Reason: ReasonInvalidPath}
	}
	p = NormalizePath(p)

	ts, ok := NormalizeTimestamp(rawTS)
	if !ok {
		ts, ok = ParseFilenameTimestamp(p)
	}
	if !ok {
		return types.FrameRecord{}, &RejectError{Reason: ReasonInvalidTimestamp, Path: p}
	}

	return types.FrameRecord{Path: p, Timestamp: ts}, nil
}
