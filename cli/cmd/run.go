package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	lapseconfig "github.com/pithecene-io/lapse/cli/config"
	"github.com/pithecene-io/lapse/cli/render"
	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/log"
	"github.com/pithecene-io/lapse/metrics"
	"github.com/pithecene-io/lapse/pipeline"
)

// Exit codes for manifest operations.
const (
	exitSuccess     = 0
	exitRunError    = 1
	exitConfigError = 2
	exitLocked      = 3
)

// RunResponse is printed after a manifest operation.
type RunResponse struct {
	RunID        string  `json:"run_id"`
	Mode         string  `json:"mode"`
	Manifest     string  `json:"manifest"`
	Skipped      bool    `json:"skipped"`
	SkipReason   string  `json:"skip_reason,omitempty"`
	Count        int     `json:"count"`
	Removed      int     `json:"removed"`
	FPS          float64 `json:"fps"`
	VerboseBytes int     `json:"verbose_bytes"`
	GzipBytes    int     `json:"gzip_bytes"`
	DurationMS   int64   `json:"duration_ms"`
}

// AppendCommand returns the append command. It adds one captured frame.
func AppendCommand() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Aliases:   []string{"build"},
		Usage:     "Append one captured frame to the manifest",
		ArgsUsage: "[image]",
		Flags: append(builderFlags(),
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "Frame path as it should appear in the manifest"},
			&cli.Float64Flag{Name: "fps", Usage: "Playback rate override"},
		),
		Action: appendAction,
	}
}

func appendAction(c *cli.Context) error {
	image := c.String("image")
	if image == "" {
		image = c.Args().First()
	}
	if image == "" {
		return cli.Exit("--image is required", exitConfigError)
	}

	return runPipeline(c, pipeline.ModeAppend, func(ctx context.Context, b *pipeline.Builder, cfg *lapseconfig.Config) (pipeline.Result, error) {
		return b.Append(ctx, pipeline.AppendRequest{ImagePath: image, FPS: resolveFPS(c, cfg)})
	})
}

// RebuildCommand returns the rebuild command. It regenerates the manifest
// from an image archive.
func RebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebuild",
		Usage: "Regenerate the manifest from an image archive",
		Flags: append(builderFlags(),
			&cli.StringFlag{Name: "source", Usage: "Image archive root", Value: pipeline.DefaultSourceDir},
			&cli.StringFlag{Name: "relative-to", Usage: "Base directory manifest paths are relative to (default: working directory)"},
			&cli.Float64Flag{Name: "fps", Usage: "Playback rate"},
		),
		Action: rebuildAction,
	}
}

func rebuildAction(c *cli.Context) error {
	return runPipeline(c, pipeline.ModeRebuild, func(ctx context.Context, b *pipeline.Builder, cfg *lapseconfig.Config) (pipeline.Result, error) {
		return b.Rebuild(ctx, pipeline.RebuildRequest{
			SourceDir:  resolveString(c, "source", configVal(cfg, func(c *lapseconfig.Config) string { return c.Manifest.Source })),
			RelativeTo: c.String("relative-to"),
			FPS:        resolveFPS(c, cfg),
		})
	})
}

// CleanCommand returns the clean command. It re-validates an existing
// manifest.
func CleanCommand() *cli.Command {
	return &cli.Command{
		Name:   "clean",
		Usage:  "Re-validate, deduplicate and re-sort the existing manifest",
		Flags:  builderFlags(),
		Action: cleanAction,
	}
}

func cleanAction(c *cli.Context) error {
	return runPipeline(c, pipeline.ModeClean, func(ctx context.Context, b *pipeline.Builder, _ *lapseconfig.Config) (pipeline.Result, error) {
		return b.Clean(ctx)
	})
}

type pipelineFunc func(ctx context.Context, b *pipeline.Builder, cfg *lapseconfig.Config) (pipeline.Result, error)

// runPipeline wires storage, logging, metrics, notification and history
// around one builder operation, then prints the result.
func runPipeline(c *cli.Context, mode string, fn pipelineFunc) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	builderCfg, err := resolveBuilderConfig(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	storeCfg := resolveStoreConfig(c, cfg)

	choice, err := parseAdapterConfig(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitConfigError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := log.NewLoggerWithLevel(log.RunMeta{
		RunID:    runID,
		Mode:     mode,
		Manifest: builderCfg.VerboseKey,
	}, os.Stderr, c.String("log-level"))
	defer iox.DiscardErr(logger.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := lode.OpenStore(ctx, storeCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open storage: %v", err), exitConfigError)
	}

	collector := metrics.NewCollector(mode, storeCfg.BackendName(), runID)
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithCollector(collector),
		pipeline.WithRunID(runID),
	}
	if fsStore, ok := store.(*lode.FSStore); ok {
		verboseKey := builderCfg.VerboseKey
		if verboseKey == "" {
			verboseKey = pipeline.DefaultVerboseKey
		}
		opts = append(opts, pipeline.WithLockFile(pipeline.LockPath(fsStore.Path(verboseKey))))
	}

	if choice != nil {
		notifier, err := buildNotifier(choice)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create %s adapter: %v", choice.adapterType, err), exitConfigError)
		}
		defer func() { _ = notifier.Close() }()
		opts = append(opts, pipeline.WithNotifier(notifier))
	}

	history, err := openHistory(ctx, c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open run history: %v", err), exitConfigError)
	}
	if history != nil {
		opts = append(opts, pipeline.WithHistory(history))
	}

	builder := pipeline.NewBuilder(lode.NewInstrumentedStore(store, collector), builderCfg, opts...)

	start := time.Now()
	result, err := fn(ctx, builder, cfg)
	if err != nil {
		logger.Error("manifest operation failed", map[string]any{"error": err.Error()})
		return cli.Exit(fmt.Sprintf("%s failed: %v", mode, err), exitCodeFor(err))
	}

	if c.Bool("quiet") {
		return nil
	}
	return r.Render(newRunResponse(runID, builder.Config().VerboseKey, result, time.Since(start)))
}

func newRunResponse(runID, verboseKey string, res pipeline.Result, elapsed time.Duration) RunResponse {
	resp := RunResponse{
		RunID:      runID,
		Mode:       res.Mode,
		Manifest:   verboseKey,
		Skipped:    res.Skipped,
		SkipReason: res.SkipReason,
		DurationMS: elapsed.Milliseconds(),
	}
	if res.Skipped {
		return resp
	}
	resp.Count = res.Kept()
	resp.Removed = res.Removed()
	resp.FPS = res.Manifest.FPS
	resp.VerboseBytes = res.Telemetry.VerboseBytes
	resp.GzipBytes = res.Telemetry.GzipBytes
	return resp
}

// exitCodeFor maps an operation error to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrLocked):
		return exitLocked
	case errors.Is(err, pipeline.ErrInvalidFPS):
		return exitConfigError
	default:
		return exitRunError
	}
}
