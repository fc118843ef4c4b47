// Package pipeline implements the manifest builder operations: Append adds
// one captured frame, Rebuild regenerates a manifest from an image archive,
// and Clean re-validates an existing manifest.
//
// Every operation reads (or synthesizes) a whole manifest, canonicalizes it
// in memory, and rewrites the verbose and compact files as a pair.
package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// DefaultVerboseKey is the default verbose manifest location.
const DefaultVerboseKey = "manifest.json"

// DefaultExtensions are the image extensions picked up by Rebuild.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Config holds builder defaults. Zero values select defaults.
type Config struct {
	// DefaultFPS is used when neither the request nor the manifest carry one.
	DefaultFPS float64
	// Extensions lists supported image extensions, lowercase with the dot.
	Extensions []string
	// Window filters frames by UTC capture hour.
	Window manifest.Window
	// VerboseKey is the store key of the verbose manifest.
	VerboseKey string
	// CompactKey is the store key of the compact gzip manifest
	// (default VerboseKey + ".gz").
	CompactKey string
	// Now stamps generated_at and notifications.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if !validFPS(c.DefaultFPS) {
		c.DefaultFPS = types.DefaultFPS
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.Window.IsZero() {
		c.Window = manifest.DefaultWindow
	}
	if c.VerboseKey == "" {
		c.VerboseKey = DefaultVerboseKey
	}
	if c.CompactKey == "" {
		c.CompactKey = manifest.CompactKey(c.VerboseKey)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// supportsExtension reports whether ext (any case) is a supported image
// extension.
func (c Config) supportsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func validFPS(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
