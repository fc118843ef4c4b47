package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pithecene-io/lapse/log"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// commonFlags precede every ffmpeg invocation.
var commonFlags = []string{"-hide_banner", "-loglevel", "warning", "-nostats", "-nostdin", "-y"}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Renderer drives ffmpeg.
type Renderer struct {
	binary string
	run    CommandRunner
	logger *log.Logger
}

// NewRenderer creates a Renderer for the given ffmpeg binary
// (default DefaultBinary).
func NewRenderer(binary string, logger *log.Logger) *Renderer {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Renderer{binary: binary, run: defaultCommandRunner, logger: logger}
}

// WithCommandRunner replaces command execution, for tests.
func (r *Renderer) WithCommandRunner(run CommandRunner) {
	if run == nil {
		run = defaultCommandRunner
	}
	r.run = run
}

// MonthRequest renders one directory of frames.
type MonthRequest struct {
	Source string
	Output string
	FPS    float64
	// Filter selects frames (default: DaylightFilter(manifest.DefaultWindow)).
	Filter Filter
}

// RenderMonth encodes every eligible frame under req.Source into an H.264
// MP4 at req.FPS.
func (r *Renderer) RenderMonth(ctx context.Context, req MonthRequest) (int, error) {
	if req.FPS <= 0 {
		req.FPS = types.DefaultFPS
	}
	if req.Filter == nil {
		req.Filter = DaylightFilter(manifest.DefaultWindow)
	}

	frames, err := CollectFrames(req.Source, req.Filter)
	if err != nil {
		return 0, fmt.Errorf("collect frames: %w", err)
	}
	if len(frames) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoFrames, req.Source)
	}

	err = r.withListFile(frames, req.Output, func(list string) error {
		return r.ffmpeg(ctx, monthArgs(list, req.Output, req.FPS))
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("month rendered", map[string]any{
		"source": req.Source,
		"output": req.Output,
		"frames": len(frames),
	})
	return len(frames), nil
}

// Concat joins rendered videos into output without re-encoding.
func (r *Renderer) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: %w", ErrNoFrames)
	}

	abs := make([]string, len(inputs))
	for i, in := range inputs {
		p, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		abs[i] = p
	}

	return r.withListFile(abs, output, func(list string) error {
		return r.ffmpeg(ctx, concatArgs(list, output))
	})
}

// WebRequest renders the web-optimized timelapse.
type WebRequest struct {
	Source   string
	Output   string
	FPS      float64
	CRF      int
	MaxWidth int
	Preset   string
	// Filter selects frames (default: WeekdayFilter(manifest.DefaultWindow)).
	Filter Filter
}

// Web defaults.
const (
	DefaultWebOutput   = "assets/timelapse.mp4"
	DefaultWebFPS      = 18
	DefaultWebCRF      = 30
	DefaultWebMaxWidth = 1280
	DefaultWebPreset   = "slow"
)

func (req WebRequest) withDefaults() WebRequest {
	if req.Output == "" {
		req.Output = DefaultWebOutput
	}
	if req.FPS <= 0 {
		req.FPS = DefaultWebFPS
	}
	if req.CRF <= 0 {
		req.CRF = DefaultWebCRF
	}
	if req.MaxWidth <= 0 {
		req.MaxWidth = DefaultWebMaxWidth
	}
	if req.Preset == "" {
		req.Preset = DefaultWebPreset
	}
	if req.Filter == nil {
		req.Filter = WeekdayFilter(manifest.DefaultWindow)
	}
	return req
}

// WebResult describes a rendered web video.
type WebResult struct {
	Output string
	Frames int
	Bytes  int64
}

// RenderWeb encodes weekday daylight frames into a small, silent,
// width-capped MP4 for the web viewer.
func (r *Renderer) RenderWeb(ctx context.Context, req WebRequest) (WebResult, error) {
	req = req.withDefaults()

	frames, err := CollectFrames(req.Source, req.Filter)
	if err != nil {
		return WebResult{}, fmt.Errorf("collect frames: %w", err)
	}
	if len(frames) == 0 {
		return WebResult{}, fmt.Errorf("%w after weekday/time filtering", ErrNoFrames)
	}

	err = r.withListFile(frames, req.Output, func(list string) error {
		return r.ffmpeg(ctx, webArgs(list, req))
	})
	if err != nil {
		return WebResult{}, err
	}

	res := WebResult{Output: req.Output, Frames: len(frames)}
	if info, err := os.Stat(req.Output); err == nil {
		res.Bytes = info.Size()
	}

	r.logger.Info("web video rendered", map[string]any{
		"output": req.Output,
		"frames": res.Frames,
		"bytes":  res.Bytes,
	})
	return res, nil
}

// withListFile creates output's directory, writes a concat list of paths
// to a temporary directory and calls fn with its path. The list is removed
// afterwards.
func (r *Renderer) withListFile(paths []string, output string, fn func(list string) error) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	dir, err := os.MkdirTemp("", "lapse-ffmpeg-")
	if err != nil {
		return fmt.Errorf("create list directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	list := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(list, []byte(concatList(paths)), 0o600); err != nil {
		return fmt.Errorf("write list file: %w", err)
	}
	return fn(list)
}

func (r *Renderer) ffmpeg(ctx context.Context, args []string) error {
	full := append(append([]string{}, commonFlags...), args...)
	r.logger.Debug("running ffmpeg", map[string]any{"args": strings.Join(full, " ")})
	if err := r.run(ctx, r.binary, full...); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// concatList renders paths in concat demuxer syntax.
func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func monthArgs(list, output string, fps float64) []string {
	f := formatFPS(fps)
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-r", f,
		"-vf", "fps=" + f + ",format=yuv420p",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		output,
	}
}

func concatArgs(list, output string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		output,
	}
}

func webArgs(list string, req WebRequest) []string {
	f := formatFPS(req.FPS)
	vf := strings.Join([]string{
		"fps=" + f,
		fmt.Sprintf("scale='min(%d,iw)':-2:flags=lanczos", req.MaxWidth),
		"format=yuv420p",
	}, ",")
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-r", f,
		"-vf", vf,
		"-an",
		"-c:v", "libx264",
		"-preset", req.Preset,
		"-crf", strconv.Itoa(req.CRF),
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		req.Output,
	}
}

// defaultCommandRunner executes the command, folding its output into the
// error on failure.
func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
