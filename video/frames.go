// Package video renders timelapse videos from a frame archive with ffmpeg.
//
// Frames are selected by the capture instant encoded in their filename and
// fed to ffmpeg through a concat demuxer list file.
package video

import (
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pithecene-io/lapse/manifest"
)

// SupportedExtensions are the frame image extensions picked up by
// CollectFrames, lowercase with the dot.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// ErrNoFrames is returned when frame selection yields nothing to render.
var ErrNoFrames = errors.New("no eligible frames found")

// Filter decides whether a frame captured at ts is rendered.
type Filter func(ts time.Time) bool

// DaylightFilter keeps frames inside w.
func DaylightFilter(w manifest.Window) Filter {
	return w.Contains
}

// WeekdayFilter keeps frames captured Monday through Friday (UTC) inside w.
func WeekdayFilter(w manifest.Window) Filter {
	return func(ts time.Time) bool {
		switch ts.UTC().Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
		return w.Contains(ts)
	}
}

// CollectFrames walks root and returns the absolute paths of supported
// images whose filename timestamp passes filter, sorted. Files without a
// filename timestamp are skipped. A nil filter keeps every timestamped
// frame.
func CollectFrames(root string, filter Filter) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var frames []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		ts, ok := manifest.ParseFilenameTimestamp(filepath.ToSlash(path))
		if !ok {
			return nil
		}
		if filter != nil && !filter(ts) {
			return nil
		}
		frames = append(frames, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(frames)
	return frames, nil
}
