// Package timeline is a client for published manifests: it loads the
// compact manifest (falling back to the verbose one) and navigates its
// frames the way the web viewer does.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/types"
)

// DefaultMaxBytes caps a fetched manifest document.
const DefaultMaxBytes = 64 << 20

// ErrUnavailable is returned when neither manifest form could be loaded.
var ErrUnavailable = errors.New("timeline unavailable")

// Source fetches manifest documents by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// HTTPSource fetches documents relative to a base URL.
type HTTPSource struct {
	BaseURL string
	// Client defaults to a client with a 30s timeout.
	Client *http.Client
	// MaxBytes defaults to DefaultMaxBytes.
	MaxBytes int64
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

// Fetch implements Source. Responses are requested uncached.
func (s *HTTPSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	target, err := url.JoinPath(strings.TrimSuffix(s.BaseURL, "/")+"/", key)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	return iox.ReadAllLimit(resp.Body, limit)
}

// StoreSource fetches documents from a manifest store.
type StoreSource struct {
	Store manifest.Store
}

// Fetch implements Source.
func (s StoreSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	return s.Store.Read(ctx, key)
}

// Load fetches the compact manifest for verboseKey, falling back to the
// verbose manifest when the compact one is missing or unreadable. Every
// frame is kept regardless of capture hour; records that do not resolve
// to a path and instant are dropped.
func Load(ctx context.Context, src Source, verboseKey string) (types.Manifest, error) {
	c := manifest.NewCanonicalizer(manifest.Options{Window: manifest.AllDay})

	compactKey := manifest.CompactKey(verboseKey)
	m, compactErr := load(ctx, src, c, compactKey)
	if compactErr == nil {
		return m, nil
	}

	m, verboseErr := load(ctx, src, c, verboseKey)
	if verboseErr == nil {
		return m, nil
	}

	return types.Manifest{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(compactErr, verboseErr))
}

func load(ctx context.Context, src Source, c *manifest.Canonicalizer, key string) (types.Manifest, error) {
	data, err := src.Fetch(ctx, key)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("%s: %w", key, err)
	}
	m, err := c.Load(data)
	if err != nil {
		return types.Manifest{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}
