package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfarer/storage"
)

// CacheStore implements storage.CacheStore on BadgerDB using native entry TTLs.
type CacheStore struct {
	backend *Backend
	owned   bool
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a cache store on a shared backend.
// Closing the store does not close the backend.
func NewCacheStore(backend *Backend) *CacheStore {
	return &CacheStore{backend: backend}
}

// OpenCacheStore opens a dedicated backend at path and returns a cache store
// that closes it on Close.
func OpenCacheStore(path string, inMemory bool) (*CacheStore, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return &CacheStore{backend: backend, owned: true}, nil
}

// Get returns the value stored under key.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.backend.IsClosed() {
		return nil, false, storage.ErrStorageClosed
	}

	var value []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetWithTTL stores value under key. A non-positive ttl stores the entry without expiry.
func (s *CacheStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return tx.SetEntry(entry)
	}, true)
}

// Close closes the backend when the store owns it.
func (s *CacheStore) Close() error {
	if s.owned && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}
