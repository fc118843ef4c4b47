package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/lapse/adapter"
	"github.com/pithecene-io/lapse/lode"
	"github.com/pithecene-io/lapse/log"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/metrics"
	"github.com/pithecene-io/lapse/types"
)

// Operation modes, used in logs, metrics, notifications and history.
const (
	ModeAppend  = "append"
	ModeRebuild = "rebuild"
	ModeClean   = "clean"
)

// ErrManifestNotFound is returned by Clean when there is no manifest.
var ErrManifestNotFound = errors.New("manifest not found")

// ErrInvalidFPS is returned for a non-positive or non-finite fps override.
var ErrInvalidFPS = errors.New("fps must be a finite number greater than zero")

// Result summarizes one pipeline operation.
type Result struct {
	Mode      string
	Manifest  types.Manifest
	Stats     manifest.Stats
	Telemetry manifest.Telemetry
	// Skipped is set when Append declined the frame; nothing was written.
	Skipped    bool
	SkipReason string
}

// Kept is the number of frames in the written manifest.
func (r Result) Kept() int {
	return r.Manifest.Count()
}

// Removed is the number of input records dropped by the operation.
func (r Result) Removed() int {
	return r.Stats.Removed()
}

// Builder runs manifest operations against a store.
type Builder struct {
	store     manifest.Store
	cfg       Config
	logger    *log.Logger
	collector *metrics.Collector
	notifier  adapter.Adapter
	history   *lode.History
	lockPath  string
	runID     string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the run logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithCollector records run metrics on c.
func WithCollector(c *metrics.Collector) Option {
	return func(b *Builder) { b.collector = c }
}

// WithNotifier publishes a manifest update event after every write.
func WithNotifier(a adapter.Adapter) Option {
	return func(b *Builder) { b.notifier = a }
}

// WithHistory records each completed run's metrics. Requires WithCollector.
func WithHistory(h *lode.History) Option {
	return func(b *Builder) { b.history = h }
}

// WithLockFile holds an advisory lock on path for the duration of each
// operation.
func WithLockFile(path string) Option {
	return func(b *Builder) { b.lockPath = path }
}

// WithRunID tags notifications with the invocation's run ID.
func WithRunID(id string) Option {
	return func(b *Builder) { b.runID = id }
}

// NewBuilder creates a Builder over store.
func NewBuilder(store manifest.Store, cfg Config, opts ...Option) *Builder {
	b := &Builder{
		store: store,
		cfg:   cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Nop()
	}
	return b
}

// Config returns the effective configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

func (b *Builder) canonicalizer() *manifest.Canonicalizer {
	return manifest.NewCanonicalizer(manifest.Options{
		DefaultFPS: b.cfg.DefaultFPS,
		Window:     b.cfg.Window,
		Now:        b.cfg.Now,
		OnReject:   b.onReject,
	})
}

func (b *Builder) onReject(_ any, err *manifest.RejectError) {
	b.collector.IncRejected(string(err.Reason))
	b.logger.Warn("frame record rejected", map[string]any{
		"path":   err.Path,
		"reason": string(err.Reason),
	})
}

func (b *Builder) lock() (*Lock, error) {
	if b.lockPath == "" {
		return nil, nil
	}
	return AcquireLock(b.lockPath)
}

// readRaw loads the current verbose manifest. found is false when the key
// does not exist.
func (b *Builder) readRaw(ctx context.Context) (raw manifest.RawManifest, found bool, err error) {
	data, err := b.store.Read(ctx, b.cfg.VerboseKey)
	if errors.Is(err, lode.ErrNotFound) {
		return manifest.RawManifest{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	raw, err = manifest.Decode(data)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", b.cfg.VerboseKey, err)
	}
	return raw, true, nil
}

// commit persists m and runs post-write side effects.
func (b *Builder) commit(ctx context.Context, mode string, m types.Manifest, stats manifest.Stats) (Result, error) {
	b.collector.AbsorbBuildStats(int64(stats.Seen), int64(stats.Kept), int64(stats.OutsideWindow), int64(stats.Duplicates))

	tel, err := manifest.Persist(ctx, b.store, m, b.cfg.VerboseKey, b.cfg.CompactKey)
	if err != nil {
		return Result{}, err
	}
	b.collector.SetPersisted(int64(tel.VerboseBytes), int64(tel.GzipBytes))

	b.logger.Info("manifest written", map[string]any{
		"count":         tel.Count,
		"removed":       stats.Removed(),
		"verbose_bytes": tel.VerboseBytes,
		"gzip_bytes":    tel.GzipBytes,
	})

	res := Result{Mode: mode, Manifest: m, Stats: stats, Telemetry: tel}
	b.notify(ctx, res)
	b.record(ctx)
	return res, nil
}

func (b *Builder) notify(ctx context.Context, res Result) {
	if b.notifier == nil {
		return
	}

	event := adapter.NewManifestUpdatedEvent(b.runID, res.Mode, b.cfg.Now())
	event.Manifest = b.cfg.VerboseKey
	event.CompactManifest = b.cfg.CompactKey
	event.Count = res.Manifest.Count()
	event.FPS = res.Manifest.FPS
	event.GeneratedAt = manifest.FormatTimestamp(res.Manifest.GeneratedAt)
	event.VerboseBytes = res.Telemetry.VerboseBytes
	event.GzipBytes = res.Telemetry.GzipBytes
	event.Removed = res.Removed()

	if err := b.notifier.Publish(ctx, event); err != nil {
		b.collector.IncPublishFailure()
		b.logger.Warn("manifest notification failed", map[string]any{"error": err.Error()})
		return
	}
	b.collector.IncPublishSuccess()
}

func (b *Builder) record(ctx context.Context) {
	if b.history == nil || b.collector == nil {
		return
	}
	if err := b.history.Record(ctx, b.collector.Snapshot(), b.cfg.Now()); err != nil {
		b.logger.Warn("run history write failed", map[string]any{"error": err.Error()})
	}
}

func releaseLock(l *Lock, logger *log.Logger) {
	if err := l.Release(); err != nil {
		logger.Warn("release manifest lock", map[string]any{"error": err.Error()})
	}
}
