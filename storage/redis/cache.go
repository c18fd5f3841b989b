package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/storage"
	goredis "github.com/redis/go-redis/v9"
)

// Options configures the connection to a Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to every cache key, e.g. "wayfarer:".
	KeyPrefix string
}

// CacheStore implements storage.CacheStore on Redis using native key expiry.
type CacheStore struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore connects to Redis and verifies the connection with PING.
func NewCacheStore(ctx context.Context, opts Options) (*CacheStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis cache: address is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", opts.Addr, err)
	}
	return &CacheStore{
		client: client,
		prefix: opts.KeyPrefix,
		logger: slog.Default().With("component", "redis-cache"),
	}, nil
}

// Get returns the value stored under key.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetWithTTL stores value under key. A non-positive ttl stores the entry without expiry.
func (s *CacheStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Close closes the client connection pool.
func (s *CacheStore) Close() error {
	s.logger.Debug("closing redis cache")
	return s.client.Close()
}
