package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/poiesic/wayfarer/storage"
)

// CacheStats reports cache usage since the store was opened.
type CacheStats struct {
	Entries int64
	Expired int64
	Hits    int64
	Misses  int64
}

// CacheStore implements storage.CacheStore on SQLite.
// The expiry is stored with each row and checked on read.
type CacheStore struct {
	db     *DB
	owned  bool
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a cache store on a shared database.
// Closing the store does not close the database.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db, now: time.Now}
}

// OpenCacheStore opens a dedicated database at path.
func OpenCacheStore(ctx context.Context, path string) (*CacheStore, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	s := NewCacheStore(db)
	s.owned = true
	return s, nil
}

// WithClock replaces the time source used for expiry. Used by tests.
func (s *CacheStore) WithClock(now func() time.Time) *CacheStore {
	s.now = now
	return s
}

// Get returns the value stored under key. Expired rows are misses.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64

	err := s.db.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if expiresAt != 0 && s.now().UnixNano() >= expiresAt {
		s.misses.Add(1)
		return nil, false, nil
	}

	s.hits.Add(1)
	return value, true, nil
}

// SetWithTTL stores value under key. A non-positive ttl stores the entry without expiry.
func (s *CacheStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	_, err := s.db.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, value, now.UnixNano(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	s.db.logger.Debug("purged expired cache entries", "count", n)
	return n, nil
}

// Stats returns cache performance metrics.
func (s *CacheStore) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at != 0 AND expires_at <= ? THEN 1 ELSE 0 END), 0) FROM cache_entries`,
		s.now().UnixNano(),
	).Scan(&stats.Entries, &stats.Expired)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.Hits = s.hits.Load()
	stats.Misses = s.misses.Load()
	return stats, nil
}

// Close closes the database when the store owns it.
func (s *CacheStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
