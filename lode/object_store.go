package lode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// ObjectStore stores manifests in a lode.Store (memory, S3, or any other
// lode backend). The underlying store is created lazily from its factory.
type ObjectStore struct {
	factory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// NewObjectStore creates a store backed by the lode store factory.
func NewObjectStore(factory lode.StoreFactory) *ObjectStore {
	return &ObjectStore{factory: factory}
}

// NewMemoryStore creates an in-memory object store.
func NewMemoryStore() *ObjectStore {
	return NewObjectStore(lode.NewMemoryFactory())
}

// getOrCreateStore lazily initializes the Store from the factory.
func (s *ObjectStore) getOrCreateStore() (lode.Store, error) {
	s.storeOnce.Do(func() {
		s.store, s.storeErr = s.factory()
		if s.storeErr != nil {
			s.storeErr = WrapInitError(s.storeErr, "object store")
		}
	})
	return s.store, s.storeErr
}

// Read returns the contents of key.
func (s *ObjectStore) Read(ctx context.Context, key string) ([]byte, error) {
	store, err := s.getOrCreateStore()
	if err != nil {
		return nil, err
	}

	ok, err := store.Exists(ctx, key)
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	if !ok {
		return nil, NewStorageError(ErrNotFound, "read", key, fmt.Errorf("key %q does not exist", key))
	}

	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, WrapReadError(err, key)
	}
	return data, nil
}

// Write replaces the contents of key.
func (s *ObjectStore) Write(ctx context.Context, key string, data []byte) error {
	store, err := s.getOrCreateStore()
	if err != nil {
		return err
	}

	// Stores may refuse to overwrite, so an existing key is removed first.
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return WrapWriteError(err, key)
	}
	if ok {
		if err := store.Delete(ctx, key); err != nil {
			return WrapWriteError(err, key)
		}
	}

	if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, key)
	}
	return nil
}
