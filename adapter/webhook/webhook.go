// Package webhook POSTs manifest update events to an HTTP endpoint.
//
// Each delivery carries the event as a JSON body plus these headers:
//
//	X-Lapse-Event      always "manifest_updated"
//	X-Lapse-Run-ID     run that wrote the manifest
//	X-Lapse-Signature  "sha256=<hex HMAC of the body>", only with a Secret
//
// 5xx responses, 408, 429 and transport errors are retried. Any other
// non-2xx status fails the delivery at once.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/lapse/adapter"
	"github.com/pithecene-io/lapse/iox"
	"github.com/pithecene-io/lapse/types"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3

	SignatureHeader = "X-Lapse-Signature"
)

var userAgent = "lapse-webhook/" + types.Version

// Config configures the webhook adapter.
type Config struct {
	URL     string
	Headers map[string]string
	// Secret, when set, signs each body with HMAC-SHA256.
	Secret  string
	Timeout time.Duration
	Retries int
	// Backoff is the base retry delay (default adapter.DefaultBackoff).
	Backoff time.Duration
}

// Adapter delivers events by HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New validates cfg and builds an adapter.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adapter{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Publish delivers one event, retrying transient failures.
func (a *Adapter) Publish(ctx context.Context, event *adapter.ManifestUpdatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "webhook", a.config.Retries, a.config.Backoff, func(ctx context.Context) (bool, error) {
		err := a.post(ctx, event.RunID, body)
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return statusErr.Retriable(), err
		}
		return true, err
	})
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retriable reports whether the receiver may accept a later attempt.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Sign returns the X-Lapse-Signature value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) post(ctx context.Context, runID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Lapse-Event", adapter.EventTypeManifestUpdated)
	req.Header.Set("X-Lapse-Run-ID", runID)
	if a.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(a.config.Secret, body))
	}
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
