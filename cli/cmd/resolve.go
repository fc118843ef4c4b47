package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lapse/adapter"
	"github.com/pithecene-io/lapse/adapter/redis"
	"github.com/pithecene-io/lapse/adapter/webhook"
	lapseconfig "github.com/pithecene-io/lapse/cli/config"
	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/pipeline"
)

// Flag values always win over config values; config values win over flag
// defaults.

func loadConfig(c *cli.Context) (*lapseconfig.Config, error) {
	cfg, err := lapseconfig.LoadDefault(c.String("config"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfigError)
	}
	return cfg, nil
}

// configVal reads a value from cfg, returning the zero value for a nil config.
func configVal[T any](cfg *lapseconfig.Config, get func(*lapseconfig.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveFloat(c *cli.Context, name string, cfgVal float64) float64 {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Float64(name)
	}
	return cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// resolveFPS returns the fps override, or nil when neither the flag nor
// the config set one.
func resolveFPS(c *cli.Context, cfg *lapseconfig.Config) *float64 {
	if c.IsSet("fps") {
		fps := c.Float64("fps")
		return &fps
	}
	if fps := configVal(cfg, func(c *lapseconfig.Config) float64 { return c.Manifest.FPS }); fps > 0 {
		return &fps
	}
	return nil
}

func resolveStoreConfig(c *cli.Context, cfg *lapseconfig.Config) lode.StoreConfig {
	sc := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.StorageConfig { return c.Storage })
	return lode.StoreConfig{
		Backend:      resolveString(c, "storage-backend", sc.Backend),
		Path:         resolveString(c, "storage-path", sc.Path),
		Region:       resolveString(c, "storage-region", sc.Region),
		Endpoint:     resolveString(c, "storage-endpoint", sc.Endpoint),
		UsePathStyle: resolveBool(c, "storage-s3-path-style", sc.S3PathStyle),
	}
}

func resolveWindow(c *cli.Context, cfg *lapseconfig.Config) (manifest.Window, error) {
	w := manifest.Window{StartHour: c.Int("window-start"), EndHour: c.Int("window-end")}
	if cw := configVal(cfg, func(c *lapseconfig.Config) *manifest.Window { return c.Manifest.Window }); cw != nil {
		if !c.IsSet("window-start") {
			w.StartHour = cw.StartHour
		}
		if !c.IsSet("window-end") {
			w.EndHour = cw.EndHour
		}
	}
	if !w.Valid() {
		return manifest.Window{}, fmt.Errorf("invalid capture window [%d, %d): hours must satisfy 0 <= start < end <= 24", w.StartHour, w.EndHour)
	}
	return w, nil
}

func resolveBuilderConfig(c *cli.Context, cfg *lapseconfig.Config) (pipeline.Config, error) {
	window, err := resolveWindow(c, cfg)
	if err != nil {
		return pipeline.Config{}, err
	}
	mc := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.ManifestConfig { return c.Manifest })
	return pipeline.Config{
		DefaultFPS: mc.FPS,
		Extensions: mc.Extensions,
		Window:     window,
		VerboseKey: resolveString(c, "manifest", mc.Path),
		CompactKey: resolveString(c, "compact", mc.Compact),
	}, nil
}

// adapterChoice holds the resolved notifier settings.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	headers     map[string]string
	secret      string
	latestTTL   time.Duration
	timeout     time.Duration
	retries     int
}

// parseAdapterConfig resolves notifier settings. It returns nil when no
// adapter is configured.
func parseAdapterConfig(c *cli.Context, cfg *lapseconfig.Config) (*adapterChoice, error) {
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *lapseconfig.Config) string { return c.Adapter.Type }))
	if adapterType == "" {
		return nil, nil
	}
	return parseAdapterConfigWithPrecedence(c, cfg, adapterType)
}

func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *lapseconfig.Config, adapterType string) (*adapterChoice, error) {
	ac := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.AdapterConfig { return c.Adapter })

	choice := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", ac.URL),
		channel:     resolveString(c, "adapter-channel", ac.Channel),
		secret:      resolveString(c, "adapter-secret", ac.Secret),
		latestTTL:   ac.LatestTTL.Duration,
		timeout:     resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:     c.Int("adapter-retries"),
		headers:     make(map[string]string, len(ac.Headers)),
	}
	if ac.Retries != nil && !c.IsSet("adapter-retries") {
		choice.retries = *ac.Retries
	}
	for k, v := range ac.Headers {
		choice.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want key=value)", h)
		}
		choice.headers[strings.TrimSpace(k)] = v
	}

	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("unknown adapter %q (must be webhook or redis)", adapterType)
	}
	if choice.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", adapterType)
	}
	if choice.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", choice.retries)
	}
	return choice, nil
}

func buildNotifier(choice *adapterChoice) (adapter.Adapter, error) {
	switch choice.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Secret:  choice.secret,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:       choice.url,
			Channel:   choice.channel,
			LatestTTL: choice.latestTTL,
			Timeout:   choice.timeout,
			Retries:   choice.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter %q", choice.adapterType)
	}
}

// openHistory returns the run history dataset, or nil when history is not
// configured.
func openHistory(ctx context.Context, c *cli.Context, cfg *lapseconfig.Config) (*lode.History, error) {
	hc := configVal(cfg, func(c *lapseconfig.Config) lapseconfig.StorageConfig { return c.History })
	path := resolveString(c, "history-path", hc.Path)
	if path == "" {
		return nil, nil
	}

	switch backend := resolveString(c, "history-backend", hc.Backend); backend {
	case "", lode.BackendFS:
		return lode.NewHistoryFS(path)
	case lode.BackendS3:
		bucket, prefix := lode.ParseS3Path(path)
		return lode.NewHistoryS3(ctx, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       resolveString(c, "history-region", hc.Region),
			Endpoint:     hc.Endpoint,
			UsePathStyle: hc.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported history backend: %s (must be fs or s3)", backend)
	}
}
