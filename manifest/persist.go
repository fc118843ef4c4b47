package manifest

import (
	"context"
	"fmt"

	"github.com/pithecene-io/lapse/types"
)

// Store reads and writes whole manifest files by key.
//
// Read must return an error matching lode.ErrNotFound (via errors.Is) for
// absent keys. Write replaces the key's content.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Telemetry reports the sizes of one persisted manifest pair.
type Telemetry struct {
	Count        int
	VerboseBytes int
	CompactBytes int
	GzipBytes    int
}

// Persist writes the verbose and compact gzip forms of m.
//
// Both encodings are produced before either write starts. The verbose form
// is written first; if the compact write fails the verbose file has
// already been replaced and the error is returned.
func Persist(ctx context.Context, store Store, m types.Manifest, verboseKey, compactKey string) (Telemetry, error) {
	verbose, err := EncodeVerbose(m)
	if err != nil {
		return Telemetry{}, err
	}
	compact, err := EncodeCompact(m)
	if err != nil {
		return Telemetry{}, err
	}
	gz, err := Gzip(compact)
	if err != nil {
		return Telemetry{}, fmt.Errorf("compress compact manifest: %w", err)
	}

	if err := store.Write(ctx, verboseKey, verbose); err != nil {
		return Telemetry{}, err
	}
	if err := store.Write(ctx, compactKey, gz); err != nil {
		return Telemetry{}, err
	}

	return Telemetry{
		Count:        m.Count(),
		VerboseBytes: len(verbose),
		CompactBytes: len(compact),
		GzipBytes:    len(gz),
	}, nil
}

// CompactKey derives the compact key for a verbose key.
func CompactKey(verboseKey string) string {
	return verboseKey + ".gz"
}
