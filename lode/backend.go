package lode

import (
	"context"
	"fmt"

	"github.com/pithecene-io/lapse/manifest"
)

// Storage backend names.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// StoreConfig selects and configures a manifest storage backend.
type StoreConfig struct {
	// Backend is one of BackendFS (default), BackendS3, BackendMemory.
	Backend string
	// Path is the root directory for fs, or "bucket/prefix" for s3.
	Path string
	// Region, Endpoint and UsePathStyle apply to s3 only.
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// BackendName returns the effective backend name.
func (c StoreConfig) BackendName() string {
	if c.Backend == "" {
		return BackendFS
	}
	return c.Backend
}

// OpenStore creates the manifest store described by cfg.
func OpenStore(ctx context.Context, cfg StoreConfig) (manifest.Store, error) {
	switch cfg.BackendName() {
	case BackendFS:
		return NewFSStore(cfg.Path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendS3:
		bucket, prefix := ParseS3Path(cfg.Path)
		store, err := NewS3Store(ctx, S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s, %s or %s)",
			cfg.Backend, BackendFS, BackendS3, BackendMemory)
	}
}

var (
	_ manifest.Store = (*FSStore)(nil)
	_ manifest.Store = (*ObjectStore)(nil)
)
