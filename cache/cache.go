package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wayfarer/resilience"
	"github.com/poiesic/wayfarer/storage"
)

// Namespace partitions cache keys by payload kind.
type Namespace string

const (
	NamespaceEmbedding Namespace = "embedding"
	NamespaceAnswer    Namespace = "answer"
)

// DefaultTTL is how long entries stay visible unless configured otherwise.
const DefaultTTL = 48 * time.Hour

// KeyFor returns the cache key for text in namespace.
func KeyFor(ns Namespace, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(ns) + ":" + hex.EncodeToString(sum[:])
}

// Cache is a content-addressed cache over a storage.CacheStore.
// A nil *Cache behaves as a disabled cache.
type Cache struct {
	store  storage.CacheStore
	ttl    time.Duration
	sw     *resilience.Switch
	logger *slog.Logger
}

// Option is a functional option for configuring a Cache.
type Option func(*Cache) error

// WithTTL sets the lifetime of new entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", ttl)
		}
		c.ttl = ttl
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithSwitch shares a capability switch with the caller.
func WithSwitch(sw *resilience.Switch) Option {
	return func(c *Cache) error {
		if sw != nil {
			c.sw = sw
		}
		return nil
	}
}

// New creates a cache over store. A nil store yields a cache that is
// disabled by configuration.
func New(store storage.CacheStore, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.sw == nil {
		c.sw = resilience.NewSwitch("cache", store != nil)
	}
	if store == nil && c.sw.Enabled() {
		c.sw.Disable(fmt.Errorf("%w: no store", ErrUnavailable))
	}
	return c, nil
}

// State returns the cache capability.
func (c *Cache) State() resilience.Capability {
	if c == nil {
		return resilience.DisabledByConfig
	}
	return c.sw.State()
}

// Enabled reports whether reads and writes reach the store.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil && c.sw.Enabled()
}

// Get returns the payload cached for text. Store errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, ns Namespace, text string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := KeyFor(ns, text)
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "namespace", ns, "err", fmt.Errorf("%w: %w", ErrUnavailable, err))
		return nil, false
	}
	if found {
		c.logger.Debug("cache hit", "namespace", ns)
	}
	return value, found
}

// Put stores payload for text. Store errors are logged and swallowed.
func (c *Cache) Put(ctx context.Context, ns Namespace, text string, payload []byte) {
	if !c.Enabled() {
		return
	}
	if err := c.store.SetWithTTL(ctx, KeyFor(ns, text), payload, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "namespace", ns, "err", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
}

// GetVector returns the embedding cached for text. An entry that cannot be
// decoded or whose length differs from dimension is logged as corrupt and
// reported as a miss so the caller refreshes it.
func (c *Cache) GetVector(ctx context.Context, text string, dimension int) ([]float32, bool) {
	data, found := c.Get(ctx, NamespaceEmbedding, text)
	if !found {
		return nil, false
	}
	vec, err := storage.UnmarshalVector(data)
	if err != nil {
		c.logger.Error("discarding cached embedding", "err", fmt.Errorf("%w: %w", ErrCorruptEntry, err))
		return nil, false
	}
	if dimension > 0 && len(vec) != dimension {
		c.logger.Error("discarding cached embedding",
			"err", fmt.Errorf("%w: dimension %d, expected %d", ErrCorruptEntry, len(vec), dimension))
		return nil, false
	}
	return vec, true
}

// PutVector caches the embedding for text.
func (c *Cache) PutVector(ctx context.Context, text string, vec []float32) {
	if !c.Enabled() {
		return
	}
	c.Put(ctx, NamespaceEmbedding, text, storage.MarshalVector(vec))
}

// GetAnswer returns the answer cached for question.
func (c *Cache) GetAnswer(ctx context.Context, question string) (string, bool) {
	data, found := c.Get(ctx, NamespaceAnswer, question)
	if !found {
		return "", false
	}
	answer, err := storage.UnmarshalString(data)
	if err != nil {
		c.logger.Error("discarding cached answer", "err", fmt.Errorf("%w: %w", ErrCorruptEntry, err))
		return "", false
	}
	return answer, true
}

// PutAnswer caches the answer for question.
func (c *Cache) PutAnswer(ctx context.Context, question, answer string) {
	if !c.Enabled() {
		return
	}
	c.Put(ctx, NamespaceAnswer, question, storage.MarshalString(answer))
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}
