// Package redis announces manifest updates over Redis.
//
// Every event is PUBLISHed on a channel and also SET under a "latest" key
// in the same pipeline, so a consumer that starts after a run can read the
// current manifest state without waiting for the next publish.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/lapse/adapter"
)

const (
	DefaultChannel = "lapse:manifest_updated"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3

	latestSuffix = ":latest"
)

// Config configures the Redis adapter.
type Config struct {
	// URL is redis://[:password@]host:port[/db].
	URL     string
	Channel string
	// LatestKey holds the last event (default Channel + ":latest").
	LatestKey string
	// LatestTTL expires LatestKey; zero keeps it forever.
	LatestTTL time.Duration
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
}

// Adapter publishes events to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New validates cfg, applies defaults and builds a client. No connection is
// made until the first publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.LatestKey == "" {
		cfg.LatestKey = cfg.Channel + latestSuffix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Channel returns the pub/sub channel.
func (a *Adapter) Channel() string {
	return a.config.Channel
}

// LatestKey returns the key holding the last published event.
func (a *Adapter) LatestKey() string {
	return a.config.LatestKey
}

// Publish stores event under LatestKey and publishes it on Channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.ManifestUpdatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "redis", a.config.Retries, a.config.Backoff, func(ctx context.Context) (bool, error) {
		ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		_, err := a.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, a.config.LatestKey, body, a.config.LatestTTL)
			p.Publish(ctx, a.config.Channel, body)
			return nil
		})
		return true, err
	})
}

// Latest reads the last published event. It returns nil without error when
// nothing has been published or the key expired.
func (a *Adapter) Latest(ctx context.Context) (*adapter.ManifestUpdatedEvent, error) {
	raw, err := a.client.Get(ctx, a.config.LatestKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: read %s: %w", a.config.LatestKey, err)
	}

	var event adapter.ManifestUpdatedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("redis: decode %s: %w", a.config.LatestKey, err)
	}
	return &event, nil
}

// Close closes the client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
