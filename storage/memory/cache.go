package memory

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/wayfarer/storage"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time // Zero means no expiry
}

// CacheStore is a map-backed storage.CacheStore with lazy expiry on read.
type CacheStore struct {
	mu     sync.RWMutex
	items  map[string]cacheItem
	now    func() time.Time
	closed bool
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates an empty in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		items: make(map[string]cacheItem),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for expiry. Used by tests.
func (s *CacheStore) WithClock(now func() time.Time) *CacheStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Get returns the value stored under key. Expired entries are removed.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, storage.ErrStorageClosed
	}

	item, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return nil, false, nil
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

// SetWithTTL stores value under key. A non-positive ttl stores the entry without expiry.
func (s *CacheStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	item := cacheItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close marks the store closed.
func (s *CacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
