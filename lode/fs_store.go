package lode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore stores manifests as plain files on the local filesystem.
//
// Keys are slash-separated paths resolved against Root; with an empty Root
// keys are used as filesystem paths directly. Writes go to a temp file in
// the destination directory and are renamed into place, so a reader never
// observes a partially written manifest.
type FSStore struct {
	Root string
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

// Path resolves a key to its filesystem path.
func (s *FSStore) Path(key string) string {
	p := filepath.FromSlash(key)
	if s.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// Read returns the contents of key.
func (s *FSStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapReadError(err, key)
	}
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	return data, nil
}

// Write atomically replaces the contents of key.
func (s *FSStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return WrapWriteError(err, key)
	}
	if err := writeFileAtomic(s.Path(key), data, 0o644); err != nil {
		return WrapWriteError(err, key)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
