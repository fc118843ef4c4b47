// Package cmd provides CLI commands for the lapse binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/lode"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml, msgpack.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml, msgpack",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (inspect, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}

	// ConfigFlag points at a lapse.yaml file. Without it, lapse.yaml in the
	// working directory is used when present.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to YAML config file (default: ./lapse.yaml if present)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// TUIReadOnlyFlags returns flags for commands that support TUI mode.
// This is an alias for ReadOnlyFlags, kept for documentation clarity.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// storageFlags select the manifest store.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "manifest", Aliases: []string{"m", "output"}, Usage: "Verbose manifest key (default: manifest.json)"},
		&cli.StringFlag{Name: "compact", Usage: "Compact manifest key (default: <manifest>.gz)"},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs, s3 or memory", Value: lode.BackendFS},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage root (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (R2, MinIO)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force S3 path-style addressing"},
	}
}

// historyFlags select where run history is recorded. History is off
// unless a path is configured.
func historyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "history-backend", Usage: "History backend: fs or s3", Value: lode.BackendFS},
		&cli.StringFlag{Name: "history-path", Usage: "History root (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "history-region", Usage: "AWS region for S3 history"},
	}
}

// adapterFlags configure the manifest update notifier.
func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "adapter", Usage: "Notification adapter: webhook or redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Webhook endpoint or Redis URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt notification timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Notification retry attempts", Value: 3},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as key=value (repeatable)"},
		&cli.StringFlag{Name: "adapter-secret", Usage: "Webhook HMAC signing secret", EnvVars: []string{"LAPSE_WEBHOOK_SECRET"}},
	}
}

// builderFlags are shared by append, rebuild and clean.
func builderFlags() []cli.Flag {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		NoColorFlag,
		&cli.IntFlag{Name: "window-start", Usage: "First UTC capture hour kept (inclusive)", Value: 7},
		&cli.IntFlag{Name: "window-end", Usage: "UTC capture hour where the window closes (exclusive)", Value: 18},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error", Value: "info"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress the result summary"},
	}
	flags = append(flags, storageFlags()...)
	flags = append(flags, historyFlags()...)
	return append(flags, adapterFlags()...)
}

