package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

// VectorIndex is an exhaustive-scan vector index held in a map.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]storage.VectorRecord
}

var (
	_ storage.VectorIndex       = (*VectorIndex)(nil)
	_ storage.VectorProvisioner = (*VectorIndex)(nil)
)

// NewVectorIndex creates an empty index of the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		dimension: dimension,
		records:   make(map[string]storage.VectorRecord),
	}
}

// EnsureIndex validates the configured dimension.
func (v *VectorIndex) EnsureIndex(ctx context.Context) error {
	if v.dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", storage.ErrInvalidQuery)
	}
	return ctx.Err()
}

// Upsert writes records, replacing any existing vector with the same ID.
func (v *VectorIndex) Upsert(ctx context.Context, records []storage.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		if len(r.Values) != v.dimension {
			return fmt.Errorf("%w: %s has %d, index %d", storage.ErrDimensionMismatch, r.ID, len(r.Values), v.dimension)
		}
		r.Values = storage.Normalize(r.Values)
		v.records[r.ID] = r
	}
	return nil
}

// Query returns up to topK records most similar to vector, best first.
func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) != v.dimension {
		return nil, fmt.Errorf("%w: query has %d, index %d", storage.ErrDimensionMismatch, len(vector), v.dimension)
	}

	query := storage.Normalize(vector)
	v.mu.RLock()
	matches := make([]core.Match, 0, len(v.records))
	for _, r := range v.records {
		matches = append(matches, core.Match{
			ID:       r.ID,
			Score:    storage.DotProduct(query, r.Values),
			Metadata: r.Metadata,
		})
	}
	v.mu.RUnlock()

	return storage.RankMatches(matches, topK), nil
}

// Len returns the number of vectors in the index.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
