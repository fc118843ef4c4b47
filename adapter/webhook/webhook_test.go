package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/lapse/adapter"
	"github.com/pithecene-io/lapse/iox"
)

func testEvent() *adapter.ManifestUpdatedEvent {
	e := adapter.NewManifestUpdatedEvent("run-001", "clean", time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC))
	e.Manifest = "manifest.json"
	e.CompactManifest = "manifest.json.gz"
	e.Count = 40
	e.Removed = 2
	return e
}

func TestPublish_Success(t *testing.T) {
	var received adapter.ManifestUpdatedEvent
	var eventHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		eventHeader = r.Header.Get("X-Lapse-Event")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.RunID != "run-001" || received.Mode != "clean" {
		t.Errorf("received = %+v", received)
	}
	if received.Removed != 2 || received.Count != 40 {
		t.Errorf("removed/count = %d/%d, want 2/40", received.Removed, received.Count)
	}
	if eventHeader != adapter.EventTypeManifestUpdated {
		t.Errorf("X-Lapse-Event = %q", eventHeader)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	a, err := New(Config{
		URL:     ts.URL,
		Headers: map[string]string{"Authorization": "Bearer test-token"},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if authHeader != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", authHeader)
	}
}

func TestPublish_Retries(t *testing.T) {
	tests := []struct {
		name         string
		failUntil    int32
		status       int
		retries      int
		wantErr      bool
		wantAttempts int32
	}{
		{name: "recovers after 5xx", failUntil: 2, status: http.StatusBadGateway, retries: 3, wantAttempts: 3},
		{name: "5xx exhausts retries", failUntil: 100, status: http.StatusInternalServerError, retries: 2, wantErr: true, wantAttempts: 3},
		{name: "4xx fails immediately", failUntil: 100, status: http.StatusBadRequest, retries: 3, wantErr: true, wantAttempts: 1},
		{name: "429 is retried", failUntil: 1, status: http.StatusTooManyRequests, retries: 2, wantAttempts: 2},
		{name: "408 is retried", failUntil: 1, status: http.StatusRequestTimeout, retries: 1, wantAttempts: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if n := attempts.Add(1); n <= tt.failUntil {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer ts.Close()

			a, err := New(Config{URL: ts.URL, Retries: tt.retries, Backoff: time.Millisecond})
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer iox.DiscardClose(a)

			err = a.Publish(t.Context(), testEvent())
			if tt.wantErr != (err != nil) {
				t.Fatalf("publish err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.Code != tt.status {
					t.Errorf("expected StatusError %d, got %v", tt.status, err)
				}
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestPublish_Signature(t *testing.T) {
	var body []byte
	var sig, runID, ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		runID = r.Header.Get("X-Lapse-Run-ID")
		ua = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Secret: "s3cret"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if want := Sign("s3cret", body); sig != want {
		t.Errorf("signature = %q, want %q", sig, want)
	}
	if len(sig) != len("sha256=")+64 {
		t.Errorf("signature %q is not a hex sha256", sig)
	}
	if runID != "run-001" {
		t.Errorf("X-Lapse-Run-ID = %q", runID)
	}
	if !strings.HasPrefix(ua, "lapse-webhook/") {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestPublish_NoSecretNoSignature(t *testing.T) {
	var sig string
	seen := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig, seen = r.Header.Get(SignatureHeader), true
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !seen || sig != "" {
		t.Errorf("seen=%v signature=%q, want unsigned delivery", seen, sig)
	}
}

func TestSign_DependsOnSecretAndBody(t *testing.T) {
	a := Sign("k1", []byte(`{"count":1}`))
	if a == Sign("k2", []byte(`{"count":1}`)) {
		t.Error("different secrets gave the same signature")
	}
	if a == Sign("k1", []byte(`{"count":2}`)) {
		t.Error("different bodies gave the same signature")
	}
	if a != Sign("k1", []byte(`{"count":1}`)) {
		t.Error("signature is not deterministic")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a, err := New(Config{URL: ts.URL, Retries: 5, Backoff: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer iox.DiscardClose(a)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	err = a.Publish(ctx, testEvent())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := New(Config{URL: "http://example.com", Retries: -1}); err == nil {
		t.Error("expected error for negative retries")
	}

	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
}
