package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/pipeline"
	"github.com/pithecene-io/lapse/timeline"
	"github.com/pithecene-io/lapse/types"
)

// newTestApp creates a cli.App with every command wired up and
// ExitErrHandler suppressed so errors are returned instead of calling
// os.Exit.
func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		AppendCommand(),
		RebuildCommand(),
		CleanCommand(),
		RenderCommand(),
		InspectCommand(),
		StatsCommand(),
		ListCommand(),
		VersionCommand("test"),
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitSuccess
	}
	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) {
		t.Fatalf("error is not a cli.ExitCoder: %v", err)
	}
	return exitCoder.ExitCode()
}

func readManifestFile(t *testing.T, path string) manifest.VerboseManifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc manifest.VerboseManifest
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAppendAction(t *testing.T) {
	dir := t.TempDir()
	historyDir := t.TempDir()

	for _, image := range []string{
		"frames/2024-01-01_09-00-00.png",
		"frames/2024-01-01_08-00-00.png",
		"frames/2024-01-01_20-00-00.png", // outside window, skipped
	} {
		err := newTestApp().Run([]string{"lapse", "append",
			"--storage-path", dir,
			"--history-path", historyDir,
			"--fps", "12",
			"--quiet",
			"--image", image,
		})
		if err != nil {
			t.Fatalf("append %s: %v", image, err)
		}
	}

	doc := readManifestFile(t, filepath.Join(dir, "manifest.json"))
	if doc.Count != 2 || doc.FPS != 12 {
		t.Errorf("count = %d, fps = %g; want 2, 12", doc.Count, doc.FPS)
	}
	if doc.Images[0].Path != "frames/2024-01-01_08-00-00.png" {
		t.Errorf("first path = %q", doc.Images[0].Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json.gz")); err != nil {
		t.Errorf("compact manifest missing: %v", err)
	}

	history, err := lode.NewHistoryFS(historyDir)
	if err != nil {
		t.Fatal(err)
	}
	records, err := history.List(t.Context(), pipeline.ModeAppend, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("history records = %d, want 2 (skipped frame writes nothing)", len(records))
	}
}

func TestAppendAction_PositionalImage(t *testing.T) {
	dir := t.TempDir()

	err := newTestApp().Run([]string{"lapse", "build", "--storage-path", dir, "--quiet", "2024-03-04_10-11-12.jpg"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	doc := readManifestFile(t, filepath.Join(dir, "manifest.json"))
	if doc.Count != 1 || doc.Images[0].Timestamp != "2024-03-04T10:11:12.000Z" {
		t.Errorf("manifest = %+v", doc)
	}
}

func TestAppendAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
		msg  string
	}{
		{
			name: "missing image",
			args: []string{"lapse", "append"},
			want: exitConfigError,
			msg:  "--image is required",
		},
		{
			name: "invalid fps",
			args: []string{"lapse", "append", "--fps", "0", "--image", "2024-01-01_08-00-00.png"},
			want: exitConfigError,
			msg:  "fps",
		},
		{
			name: "inverted window",
			args: []string{"lapse", "append", "--window-start", "18", "--window-end", "7", "--image", "2024-01-01_08-00-00.png"},
			want: exitConfigError,
			msg:  "invalid capture window",
		},
		{
			name: "unknown backend",
			args: []string{"lapse", "append", "--storage-backend", "ftp", "--image", "2024-01-01_08-00-00.png"},
			want: exitConfigError,
			msg:  "unknown storage backend",
		},
		{
			name: "adapter without url",
			args: []string{"lapse", "append", "--adapter", "webhook", "--image", "2024-01-01_08-00-00.png"},
			want: exitConfigError,
			msg:  "--adapter-url is required",
		},
		{
			name: "missing config file",
			args: []string{"lapse", "append", "--config", "/nonexistent/lapse.yaml", "--image", "2024-01-01_08-00-00.png"},
			want: exitConfigError,
			msg:  "config file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--storage-path", t.TempDir(), "--quiet")
			err := newTestApp().Run(args)
			if got := exitCode(t, err); got != tt.want {
				t.Fatalf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error should mention %q, got: %v", tt.msg, err)
			}
		})
	}
}

func TestAppendAction_Locked(t *testing.T) {
	dir := t.TempDir()

	lock, err := pipeline.AcquireLock(pipeline.LockPath(filepath.Join(dir, "manifest.json")))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Release() }()

	err = newTestApp().Run([]string{"lapse", "append", "--storage-path", dir, "--quiet", "--image", "2024-01-01_08-00-00.png"})
	if got := exitCode(t, err); got != exitLocked {
		t.Fatalf("exit code = %d, want %d (err: %v)", got, exitLocked, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); !os.IsNotExist(err) {
		t.Errorf("manifest written while locked (stat err: %v)", err)
	}
}

func TestRebuildAction(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	archive := filepath.Join(base, "archive")

	touch(t, filepath.Join(archive, "2024", "01", "2024-01-02_08-00-00.png"))
	touch(t, filepath.Join(archive, "2024", "01", "2024-01-01_12-30-00.JPG"))
	touch(t, filepath.Join(archive, "2024", "01", "2024-01-01_05-00-00.png")) // before window
	touch(t, filepath.Join(archive, "notes.txt"))

	err := newTestApp().Run([]string{"lapse", "rebuild",
		"--storage-path", out,
		"--source", archive,
		"--relative-to", base,
		"--quiet",
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	doc := readManifestFile(t, filepath.Join(out, "manifest.json"))
	want := []string{
		"archive/2024/01/2024-01-01_12-30-00.JPG",
		"archive/2024/01/2024-01-02_08-00-00.png",
	}
	if doc.Count != len(want) {
		t.Fatalf("count = %d, want %d: %+v", doc.Count, len(want), doc.Images)
	}
	for i, p := range want {
		if doc.Images[i].Path != p {
			t.Errorf("images[%d] = %q, want %q", i, doc.Images[i].Path, p)
		}
	}
	if doc.FPS != types.DefaultFPS {
		t.Errorf("fps = %g, want default %g", doc.FPS, types.DefaultFPS)
	}
}

func TestRebuildAction_OutputAlias(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	archive := filepath.Join(base, "archive")
	touch(t, filepath.Join(archive, "2024-01-02_08-00-00.png"))

	err := newTestApp().Run([]string{"lapse", "rebuild",
		"--storage-path", out,
		"--output", "timelapse.json",
		"--source", archive,
		"--relative-to", base,
		"--quiet",
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	doc := readManifestFile(t, filepath.Join(out, "timelapse.json"))
	if doc.Count != 1 || doc.Images[0].Path != "archive/2024-01-02_08-00-00.png" {
		t.Errorf("images = %+v, want archive/2024-01-02_08-00-00.png", doc.Images)
	}
	if _, err := os.Stat(filepath.Join(out, "timelapse.json.gz")); err != nil {
		t.Errorf("compact manifest: %v", err)
	}
}

func TestRebuildAction_ConfigFile(t *testing.T) {
	base := t.TempDir()
	out := t.TempDir()
	touch(t, filepath.Join(base, "shots", "2024-01-01_05-00-00.png"))

	cfgPath := filepath.Join(base, "lapse.yaml")
	cfg := "manifest:\n" +
		"  path: frames.json\n" +
		"  source: " + filepath.Join(base, "shots") + "\n" +
		"  fps: 30\n" +
		"  window:\n" +
		"    start_hour: 0\n" +
		"    end_hour: 24\n" +
		"storage:\n" +
		"  path: " + out + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	err := newTestApp().Run([]string{"lapse", "rebuild", "--config", cfgPath, "--relative-to", base, "--quiet"})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	doc := readManifestFile(t, filepath.Join(out, "frames.json"))
	if doc.Count != 1 || doc.FPS != 30 {
		t.Errorf("count = %d, fps = %g; want 1, 30", doc.Count, doc.FPS)
	}
	if _, err := os.Stat(filepath.Join(out, "frames.json.gz")); err != nil {
		t.Errorf("compact manifest missing: %v", err)
	}
}

func TestRebuildAction_MissingSource(t *testing.T) {
	err := newTestApp().Run([]string{"lapse", "rebuild",
		"--storage-path", t.TempDir(),
		"--source", filepath.Join(t.TempDir(), "missing"),
		"--quiet",
	})
	if got := exitCode(t, err); got != exitRunError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitRunError, err)
	}
}

func TestCleanAction(t *testing.T) {
	dir := t.TempDir()
	seeded := `{"fps": 24, "images": [
		{"path": "b/2024-01-01_09-00-00.png", "timestamp": "2024-01-01T09:00:00Z"},
		{"path": "a/2024-01-01_08-00-00.png", "timestamp": 1704096000},
		{"path": "b/2024-01-01_09-00-00.png", "timestamp": "2024-01-01T09:00:00Z"},
		{"path": "c/2024-01-01_19-00-00.png"},
		{"timestamp": "2024-01-01T10:00:00Z"}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(seeded), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := newTestApp().Run([]string{"lapse", "clean", "--storage-path", dir, "--quiet"}); err != nil {
		t.Fatalf("clean: %v", err)
	}

	doc := readManifestFile(t, filepath.Join(dir, "manifest.json"))
	if doc.Count != 2 || doc.FPS != 24 {
		t.Fatalf("count = %d, fps = %g; want 2, 24", doc.Count, doc.FPS)
	}
	if doc.Images[0].Path != "a/2024-01-01_08-00-00.png" || doc.Images[0].Timestamp != "2024-01-01T08:00:00.000Z" {
		t.Errorf("images[0] = %+v", doc.Images[0])
	}
}

func TestCleanAction_MissingManifest(t *testing.T) {
	err := newTestApp().Run([]string{"lapse", "clean", "--storage-path", t.TempDir(), "--quiet"})
	if got := exitCode(t, err); got != exitRunError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitRunError, err)
	}
}

func TestManifestSource_LocalFile(t *testing.T) {
	dir := t.TempDir()
	m := types.Manifest{
		Version: types.ManifestVersion,
		FPS:     10,
		Images: []types.FrameRecord{
			{Path: "2024-01-01_08-00-00.png", Timestamp: mustParse(t, "2024-01-01T08:00:00Z")},
		},
	}
	if _, err := manifest.Persist(t.Context(), lode.NewFSStore(dir), m, "manifest.json", "manifest.json.gz"); err != nil {
		t.Fatal(err)
	}

	for _, location := range []string{
		filepath.Join(dir, "manifest.json"),
		filepath.Join(dir, "manifest.json.gz"),
	} {
		src, key, desc, err := manifestSource(t.Context(), nil, nil, location)
		if err != nil {
			t.Fatalf("manifestSource(%s): %v", location, err)
		}
		if key != "manifest.json" || desc != location {
			t.Errorf("key = %q, desc = %q", key, desc)
		}

		got, err := timeline.Load(t.Context(), src, key)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Count() != 1 || got.FPS != 10 {
			t.Errorf("loaded count = %d, fps = %g", got.Count(), got.FPS)
		}
	}
}

func TestManifestSource_URL(t *testing.T) {
	src, key, _, err := manifestSource(t.Context(), nil, nil, "https://example.com/site/manifest.json.gz?v=3")
	if err != nil {
		t.Fatalf("manifestSource: %v", err)
	}
	httpSrc, ok := src.(*timeline.HTTPSource)
	if !ok {
		t.Fatalf("source = %T, want *timeline.HTTPSource", src)
	}
	if httpSrc.BaseURL != "https://example.com/site/" {
		t.Errorf("BaseURL = %q", httpSrc.BaseURL)
	}
	if key != "manifest.json" {
		t.Errorf("key = %q", key)
	}
}

func TestInspectTimeline_InvalidDate(t *testing.T) {
	err := newTestApp().Run([]string{"lapse", "inspect", "timeline", "--date", "01/02/2024"})
	if got := exitCode(t, err); got != exitConfigError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitConfigError, err)
	}
}

func TestInspectManifest_Unavailable(t *testing.T) {
	err := newTestApp().Run([]string{"lapse", "inspect", "manifest", "--format", "json",
		filepath.Join(t.TempDir(), "manifest.json"),
	})
	if got := exitCode(t, err); got != exitRunError {
		t.Errorf("exit code = %d, want %d (err: %v)", got, exitRunError, err)
	}
}

func TestHistoryCommands_RequireHistoryPath(t *testing.T) {
	for _, args := range [][]string{
		{"lapse", "stats", "runs", "--format", "json"},
		{"lapse", "list", "runs", "--format", "json"},
	} {
		err := newTestApp().Run(args)
		if got := exitCode(t, err); got != exitConfigError {
			t.Errorf("%v: exit code = %d, want %d (err: %v)", args[1:3], got, exitConfigError, err)
		}
	}
}

func TestListRuns_RejectsTUI(t *testing.T) {
	err := newTestApp().Run([]string{"lapse", "list", "runs", "--tui", "--format", "json"})
	if err == nil || !strings.Contains(err.Error(), "--tui is not supported") {
		t.Errorf("expected --tui rejection, got %v", err)
	}
}

func TestRenderCommands_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"month without dir", []string{"lapse", "render", "month", "--output", "out.mp4"}},
		{"month without output", []string{"lapse", "render", "month", "frames"}},
		{"concat without inputs", []string{"lapse", "render", "concat", "--output", "all.mp4"}},
		{"concat without output", []string{"lapse", "render", "concat", "a.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestApp().Run(tt.args)
			if got := exitCode(t, err); got != exitConfigError {
				t.Errorf("exit code = %d, want %d (err: %v)", got, exitConfigError, err)
			}
		})
	}
}

func TestRenderMonth_NoFrames(t *testing.T) {
	frames := t.TempDir()
	touch(t, filepath.Join(frames, "2024-01-01_03-00-00.png")) // before daylight

	err := newTestApp().Run([]string{"lapse", "render", "month",
		"--ffmpeg", "/nonexistent/ffmpeg",
		"--output", filepath.Join(t.TempDir(), "out.mp4"),
		frames,
	})
	if got := exitCode(t, err); got != exitRunError {
		t.Fatalf("exit code = %d, want %d (err: %v)", got, exitRunError, err)
	}
	if !strings.Contains(err.Error(), "no eligible frames") {
		t.Errorf("error should mention missing frames, got: %v", err)
	}
}
