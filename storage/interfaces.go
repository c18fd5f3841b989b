package storage

import (
	"context"
	"time"

	"github.com/poiesic/wayfarer/core"
)

// CacheStore is a key/value store with per-entry expiry.
// Implementations must be thread-safe and support concurrent access.
type CacheStore interface {
	// Get returns the value stored under key. A missing or expired entry
	// returns found=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// SetWithTTL stores value under key, replacing any previous value.
	// The entry stops being visible once ttl has elapsed.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases resources held by the store.
	Close() error
}

// VectorRecord is one vector written to an index.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata core.Metadata
}

// VectorIndex answers nearest-neighbour queries.
type VectorIndex interface {
	// Query returns up to topK matches for vector, best first, with metadata
	// and without vector values.
	Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error)

	// Close releases resources held by the index.
	Close() error
}

// VectorProvisioner creates and populates a vector index.
type VectorProvisioner interface {
	// EnsureIndex creates the index with its configured dimension and
	// cosine metric when it does not already exist.
	EnsureIndex(ctx context.Context) error

	// Upsert writes records, replacing any existing vector with the same ID.
	Upsert(ctx context.Context, records []VectorRecord) error
}

// GraphStore expands entities by one hop.
type GraphStore interface {
	// Neighbors returns up to limit facts for edges touching id, in either
	// direction. TargetDescription is returned untruncated.
	// An unknown id returns an empty slice.
	Neighbors(ctx context.Context, id string, limit int) ([]core.GraphFact, error)

	// Ping verifies that the store is reachable and the credentials are valid.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// GraphWriter populates a graph store.
type GraphWriter interface {
	// UpsertEntity creates or replaces the entity for node.
	UpsertEntity(ctx context.Context, node *core.Node) error

	// Link creates a relation from source to target. Both entities must exist;
	// links to unknown entities are skipped.
	Link(ctx context.Context, source, relation, target string) error
}
