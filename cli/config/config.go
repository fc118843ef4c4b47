package config

import (
	"fmt"
	"time"

	"github.com/pithecene-io/lapse/manifest"
)

// DefaultPath is the config file picked up from the working directory
// when --config is not given.
const DefaultPath = "lapse.yaml"

// Config represents a lapse.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Manifest ManifestConfig `yaml:"manifest"`
	Storage  StorageConfig  `yaml:"storage"`
	History  StorageConfig  `yaml:"history"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Render   RenderConfig   `yaml:"render"`
	Serve    ServeConfig    `yaml:"serve"`
}

// ManifestConfig holds manifest builder defaults.
type ManifestConfig struct {
	// Path is the verbose manifest key within storage.
	Path string `yaml:"path"`
	// Compact is the compact manifest key (default Path + ".gz").
	Compact    string           `yaml:"compact"`
	Source     string           `yaml:"source"`
	FPS        float64          `yaml:"fps"`
	Window     *manifest.Window `yaml:"window,omitempty"`
	Extensions []string         `yaml:"extensions,omitempty"`
}

// StorageConfig selects a storage backend. Used for both the manifest
// store and the run history dataset.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Secret  string            `yaml:"secret,omitempty"`
	// LatestTTL expires the redis latest-event key.
	LatestTTL Duration `yaml:"latest_ttl,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
	Retries   *int     `yaml:"retries,omitempty"`
}

// RenderConfig holds video rendering defaults.
type RenderConfig struct {
	FFmpeg   string  `yaml:"ffmpeg"`
	Source   string  `yaml:"source"`
	Output   string  `yaml:"output"`
	FPS      float64 `yaml:"fps"`
	CRF      int     `yaml:"crf"`
	MaxWidth int     `yaml:"max_width"`
	Preset   string  `yaml:"preset"`
}

// ServeConfig holds static server defaults.
type ServeConfig struct {
	Root string `yaml:"root"`
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values that cannot be deferred to flag validation.
func (c *Config) Validate() error {
	if w := c.Manifest.Window; w != nil && !w.Valid() {
		return fmt.Errorf("manifest.window: invalid hours [%d, %d)", w.StartHour, w.EndHour)
	}
	if c.Manifest.FPS < 0 {
		return fmt.Errorf("manifest.fps must be > 0, got %g", c.Manifest.FPS)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type: unknown adapter %q (must be webhook or redis)", c.Adapter.Type)
	}
	return nil
}
