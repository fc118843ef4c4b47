package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	lapseconfig "github.com/pithecene-io/lapse/cli/config"
	"github.com/pithecene-io/lapse/cli/render"
	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/log"
	"github.com/pithecene-io/lapse/pipeline"
	"github.com/pithecene-io/lapse/video"
)

// VideoResponse is printed after a render.
type VideoResponse struct {
	Output string `json:"output"`
	Frames int    `json:"frames"`
	Bytes  int64  `json:"bytes,omitempty"`
}

// RenderCommand returns the render command with subcommands. Rendering
// shells out to ffmpeg.
func RenderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render timelapse videos with ffmpeg (month, concat, web)",
		Subcommands: []*cli.Command{
			renderMonthCommand(),
			renderConcatCommand(),
			renderWebCommand(),
		},
	}
}

func videoFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		NoColorFlag,
		&cli.StringFlag{Name: "ffmpeg", Usage: "ffmpeg binary", Value: video.DefaultBinary},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output video path"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error", Value: "info"},
	}
	return append(flags, extra...)
}

func renderMonthCommand() *cli.Command {
	return &cli.Command{
		Name:      "month",
		Usage:     "Encode one directory of daylight frames",
		ArgsUsage: "<frames-dir>",
		Flags: videoFlags(
			&cli.Float64Flag{Name: "fps", Usage: "Output frame rate (default: 24)"},
		),
		Action: renderMonthAction,
	}
}

func renderMonthAction(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return cli.Exit("frames directory required", exitConfigError)
	}
	output := c.String("output")
	if output == "" {
		return cli.Exit("--output is required", exitConfigError)
	}

	return runVideo(c, func(ctx context.Context, r *video.Renderer, cfg *lapseconfig.Config) (VideoResponse, error) {
		frames, err := r.RenderMonth(ctx, video.MonthRequest{
			Source: source,
			Output: output,
			FPS:    resolveFloat(c, "fps", configVal(cfg, func(c *lapseconfig.Config) float64 { return c.Render.FPS })),
		})
		return VideoResponse{Output: output, Frames: frames}, err
	})
}

func renderConcatCommand() *cli.Command {
	return &cli.Command{
		Name:      "concat",
		Usage:     "Join rendered videos without re-encoding",
		ArgsUsage: "<video>...",
		Flags:     videoFlags(),
		Action:    renderConcatAction,
	}
}

func renderConcatAction(c *cli.Context) error {
	inputs := c.Args().Slice()
	if len(inputs) == 0 {
		return cli.Exit("at least one input video required", exitConfigError)
	}
	output := c.String("output")
	if output == "" {
		return cli.Exit("--output is required", exitConfigError)
	}

	return runVideo(c, func(ctx context.Context, r *video.Renderer, _ *lapseconfig.Config) (VideoResponse, error) {
		return VideoResponse{Output: output, Frames: len(inputs)}, r.Concat(ctx, inputs, output)
	})
}

func renderWebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Encode weekday daylight frames into a small web video",
		Flags: videoFlags(
			&cli.StringFlag{Name: "source", Usage: "Frame archive root (default: archive)"},
			&cli.Float64Flag{Name: "fps", Usage: "Output frame rate (default: 18)"},
			&cli.IntFlag{Name: "crf", Usage: "x264 constant rate factor (default: 30)"},
			&cli.IntFlag{Name: "max-width", Usage: "Maximum output width in pixels (default: 1280)"},
			&cli.StringFlag{Name: "preset", Usage: "x264 preset (default: slow)"},
		),
		Action: renderWebAction,
	}
}

func renderWebAction(c *cli.Context) error {
	return runVideo(c, func(ctx context.Context, r *video.Renderer, cfg *lapseconfig.Config) (VideoResponse, error) {
		rc := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.RenderConfig { return c.Render })
		source := resolveString(c, "source", rc.Source)
		if source == "" {
			source = pipeline.DefaultSourceDir
		}
		res, err := r.RenderWeb(ctx, video.WebRequest{
			Source:   source,
			Output:   resolveString(c, "output", rc.Output),
			FPS:      resolveFloat(c, "fps", rc.FPS),
			CRF:      resolveInt(c, "crf", rc.CRF),
			MaxWidth: resolveInt(c, "max-width", rc.MaxWidth),
			Preset:   resolveString(c, "preset", rc.Preset),
		})
		return VideoResponse{Output: res.Output, Frames: res.Frames, Bytes: res.Bytes}, err
	})
}

type videoFunc func(ctx context.Context, r *video.Renderer, cfg *lapseconfig.Config) (VideoResponse, error)

func runVideo(c *cli.Context, fn videoFunc) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	out, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	logger := log.NewLoggerWithLevel(log.RunMeta{Mode: "render"}, os.Stderr, c.String("log-level"))
	defer iox.DiscardErr(logger.Sync)

	binary := resolveString(c, "ffmpeg", configVal(cfg, func(c *lapseconfig.Config) string { return c.Render.FFmpeg }))
	renderer := video.NewRenderer(binary, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := fn(ctx, renderer, cfg)
	if err != nil {
		if errors.Is(err, video.ErrNoFrames) {
			return cli.Exit(err.Error(), exitRunError)
		}
		return cli.Exit(fmt.Sprintf("render failed: %v", err), exitRunError)
	}
	return out.Render(resp)
}
