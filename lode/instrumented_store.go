package lode

import (
	"context"

	"github.com/pithecene-io/lapse/manifest"
	"github.com/pithecene-io/lapse/metrics"
)

// InstrumentedStore wraps a manifest.Store and records read/write metrics.
// Each Read/Write call increments the matching success or failure counter
// on the collector.
type InstrumentedStore struct {
	inner     manifest.Store
	collector *metrics.Collector
}

// NewInstrumentedStore wraps a store with metrics instrumentation.
func NewInstrumentedStore(inner manifest.Store, collector *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, collector: collector}
}

// Read delegates to the inner store and records success or failure.
func (s *InstrumentedStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.inner.Read(ctx, key)
	if err != nil {
		s.collector.IncStoreReadFailure()
	} else {
		s.collector.IncStoreReadSuccess()
	}
	return data, err
}

// Write delegates to the inner store and records success or failure.
func (s *InstrumentedStore) Write(ctx context.Context, key string, data []byte) error {
	err := s.inner.Write(ctx, key, data)
	if err != nil {
		s.collector.IncStoreWriteFailure()
	} else {
		s.collector.IncStoreWriteSuccess()
	}
	return err
}

// Verify InstrumentedStore implements manifest.Store.
var _ manifest.Store = (*InstrumentedStore)(nil)
