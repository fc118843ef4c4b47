package manifest

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// filenameComponents is the number of integer components in a frame
// filename stem: year, month, day, hour, minute, second.
const filenameComponents = 6

// ParseFilenameTimestamp derives a capture instant from a frame path.
//
// The final path component, with its extension stripped, must split on
// '-', '_' or ':' into exactly six integer components
// (YYYY-MM-DD_HH:MM:SS). The components are interpreted as UTC and must
// form a real calendar instant; values the calendar would roll over
// (month 13, hour 24) are rejected.
func ParseFilenameTimestamp(p string) (time.Time, bool) {
	base := path.Base(NormalizePath(p))
	stem := strings.TrimSuffix(base, path.Ext(base))

	parts := strings.FieldsFunc(stem, isFilenameSeparator)
	if len(parts) != filenameComponents || hasEmptyComponent(stem) {
		return time.Time{}, false
	}

	var n [filenameComponents]int
	for i, part := range parts {
		if !isDigits(part) {
			return time.Time{}, false
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}

	t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC)
	if t.Year() != n[0] || int(t.Month()) != n[1] || t.Day() != n[2] ||
		t.Hour() != n[3] || t.Minute() != n[4] || t.Second() != n[5] {
		return time.Time{}, false
	}
	return t, true
}

func isFilenameSeparator(r rune) bool {
	return r == '-' || r == '_' || r == ':'
}

// hasEmptyComponent reports whether the stem has leading, trailing, or
// doubled separators. FieldsFunc would silently drop those components.
func hasEmptyComponent(stem string) bool {
	if stem == "" {
		return true
	}
	prevSep := true
	for _, r := range stem {
		sep := isFilenameSeparator(r)
		if sep && prevSep {
			return true
		}
		prevSep = sep
	}
	return prevSep
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
