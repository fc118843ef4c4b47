package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `manifest:
  path: site/manifest.json
  compact: site/manifest.json.gz
  source: archive
  fps: 24
  window:
    start_hour: 6
    end_hour: 20
  extensions: [".png", ".webp"]

storage:
  backend: s3
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true

history:
  backend: fs
  path: ./history

adapter:
  type: webhook
  url: https://hooks.example.com/lapse
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3

render:
  ffmpeg: /usr/local/bin/ffmpeg
  output: assets/timelapse.mp4
  fps: 18
  crf: 32
  max_width: 960
  preset: medium

serve:
  root: ./site
  addr: ":9000"
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Manifest
	assertEqual(t, "manifest.path", cfg.Manifest.Path, "site/manifest.json")
	assertEqual(t, "manifest.compact", cfg.Manifest.Compact, "site/manifest.json.gz")
	assertEqual(t, "manifest.source", cfg.Manifest.Source, "archive")
	if cfg.Manifest.FPS != 24 {
		t.Errorf("expected manifest.fps=24, got %g", cfg.Manifest.FPS)
	}
	if w := cfg.Manifest.Window; w == nil || w.StartHour != 6 || w.EndHour != 20 {
		t.Errorf("expected manifest.window=[6,20), got %+v", w)
	}
	if len(cfg.Manifest.Extensions) != 2 {
		t.Errorf("expected 2 extensions, got %v", cfg.Manifest.Extensions)
	}

	// Storage
	assertEqual(t, "storage.backend", cfg.Storage.Backend, "s3")
	assertEqual(t, "storage.path", cfg.Storage.Path, "my-bucket/prefix")
	assertEqual(t, "storage.region", cfg.Storage.Region, "us-east-1")
	assertEqual(t, "storage.endpoint", cfg.Storage.Endpoint, "https://example.com")
	if !cfg.Storage.S3PathStyle {
		t.Error("expected storage.s3_path_style=true")
	}

	// History
	assertEqual(t, "history.backend", cfg.History.Backend, "fs")
	assertEqual(t, "history.path", cfg.History.Path, "./history")

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/lapse")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected adapter.timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected adapter.retries=3")
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}

	// Render
	assertEqual(t, "render.ffmpeg", cfg.Render.FFmpeg, "/usr/local/bin/ffmpeg")
	assertEqual(t, "render.preset", cfg.Render.Preset, "medium")
	if cfg.Render.CRF != 32 || cfg.Render.MaxWidth != 960 || cfg.Render.FPS != 18 {
		t.Errorf("unexpected render config: %+v", cfg.Render)
	}

	// Serve
	assertEqual(t, "serve.root", cfg.Serve.Root, "./site")
	assertEqual(t, "serve.addr", cfg.Serve.Addr, ":9000")
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Manifest.Path != "" {
		t.Errorf("expected empty manifest path, got %q", cfg.Manifest.Path)
	}
	if cfg.Manifest.Window != nil {
		t.Errorf("expected nil window, got %+v", cfg.Manifest.Window)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/lapse.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("LAPSE_TEST_BUCKET", "frames-bucket")
	yaml := `storage:
  backend: s3
  path: ${LAPSE_TEST_BUCKET}/site
  region: ${LAPSE_TEST_REGION:-eu-west-1}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "storage.path", cfg.Storage.Path, "frames-bucket/site")
	assertEqual(t, "storage.region", cfg.Storage.Region, "eu-west-1")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `manifest:
  path: manifest.json
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `storage:
  backend: fs
  path: ./data
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be set (0), got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RetriesOmittedIsNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected nil retries, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `adapter:
  timeout: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_RedisAdapterConfig(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: lapse:manifest_updated
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "redis://localhost:6379/0")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "lapse:manifest_updated")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "inverted window",
			yaml:    "manifest:\n  window:\n    start_hour: 18\n    end_hour: 7\n",
			wantErr: "manifest.window",
		},
		{
			name:    "window past midnight",
			yaml:    "manifest:\n  window:\n    start_hour: 7\n    end_hour: 25\n",
			wantErr: "manifest.window",
		},
		{
			name:    "negative fps",
			yaml:    "manifest:\n  fps: -1\n",
			wantErr: "manifest.fps",
		},
		{
			name:    "unknown adapter",
			yaml:    "adapter:\n  type: kafka\n",
			wantErr: "adapter.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault without a file: %v", err)
	}
	if cfg == nil || cfg.Manifest.Path != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}

	if err := os.WriteFile(DefaultPath, []byte("manifest:\n  path: m.json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault with lapse.yaml: %v", err)
	}
	assertEqual(t, "manifest.path", cfg.Manifest.Path, "m.json")

	if _, err := LoadDefault("missing.yaml"); err == nil {
		t.Error("explicit missing path should fail")
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lapse.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
