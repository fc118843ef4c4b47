// Package manifest normalizes, compacts, and expands timelapse manifests.
//
// Every frame record that enters a manifest passes through NormalizeEntry,
// which accepts every shape any writer has ever emitted: keyed objects,
// positional [path, timestamp] pairs, ISO strings, epoch seconds, and
// epoch milliseconds. Records that cannot be resolved to a valid instant
// are rejected and never persisted.
package manifest

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EpochMillisThreshold separates epoch seconds from epoch milliseconds.
// Numeric timestamps with magnitude below the threshold are seconds.
const EpochMillisThreshold = 1e12

// maxEpochMillis bounds accepted instants so that the whole-second epoch
// written to the compact form stays below EpochMillisThreshold and reads
// back as seconds. That is roughly years -29719 to 33658.
const maxEpochMillis = (EpochMillisThreshold - 1) * 1000

// ISOLayout is the timestamp layout emitted in the verbose form.
// Millisecond precision with a literal Z keeps output byte-compatible with
// browser-side Date.prototype.toISOString writers.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// extendedLayout follows the signed six-digit year in extended timestamps.
const extendedLayout = "-01-02T15:04:05.000Z"

// extendedYear matches a leading ±YYYYYY year, used for years outside
// 0000-9999.
var extendedYear = regexp.MustCompile(`^([+-])(\d{6})(-\d{2}-\d{2}.*)$`)

// timestampLayouts are tried in order when parsing string timestamps.
// Layouts without a zone are interpreted as UTC. Fractional seconds are
// accepted after any seconds field.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	time.DateOnly,
	time.RFC1123Z,
	time.RFC1123,
}

// NormalizeTimestamp converts a raw timestamp value into a UTC instant.
//
// Numbers are epoch seconds when their magnitude is below
// EpochMillisThreshold and epoch milliseconds otherwise. Strings are parsed
// as date/time strings. Any other value, or one that does not resolve to a
// valid instant, reports false.
func NormalizeTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		return parseTimestampString(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case float64:
		return fromEpoch(t)
	case float32:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case int32:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case uint32:
		return fromEpoch(float64(t))
	case uint64:
		return fromEpoch(float64(t))
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	default:
		return time.Time{}, false
	}
}

func fromEpoch(n float64) (time.Time, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, false
	}

	millis := n
	if math.Abs(n) < EpochMillisThreshold {
		millis = n * 1000
	}
	if math.Abs(millis) > maxEpochMillis {
		return time.Time{}, false
	}

	// Sub-millisecond precision truncates toward zero.
	return time.UnixMilli(int64(millis)).UTC(), true
}

func inRange(t time.Time) bool {
	ms := t.UnixMilli()
	return ms >= -maxEpochMillis && ms <= maxEpochMillis
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := extendedYear.FindStringSubmatch(s); m != nil {
		return parseExtended(m[1], m[2], m[3])
	}
	t, ok := parseLayouts(s)
	if !ok {
		return time.Time{}, false
	}
	t = t.UTC()
	if !inRange(t) {
		return time.Time{}, false
	}
	return t, true
}

// parseLayouts returns t in the zone given by s, UTC when s has none.
func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseExtended reads a ±YYYYYY-MM-DD... timestamp. The date and time
// after the year use the regular layouts; "-000000" is not a valid year.
func parseExtended(sign, digits, rest string) (time.Time, bool) {
	year, err := strconv.Atoi(digits)
	if err != nil || (sign == "-" && year == 0) {
		return time.Time{}, false
	}
	if sign == "-" {
		year = -year
	}

	// 2000 is a leap year, so Feb 29 parses here and is checked below.
	p, ok := parseLayouts("2000" + rest)
	if !ok {
		return time.Time{}, false
	}
	t := time.Date(year, p.Month(), p.Day(), p.Hour(), p.Minute(), p.Second(), p.Nanosecond(), p.Location())
	if t.Day() != p.Day() {
		return time.Time{}, false
	}
	t = t.UTC()
	if !inRange(t) {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders an instant in the verbose-form ISO layout. Years
// outside 0000-9999 are written with a signed six-digit year.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	year := t.Year()
	if year >= 0 && year <= 9999 {
		return t.Format(ISOLayout)
	}
	sign := "+"
	if year < 0 {
		sign, year = "-", -year
	}
	return fmt.Sprintf("%s%06d%s", sign, year, t.Format(extendedLayout))
}
