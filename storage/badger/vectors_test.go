package badger

import (
	"context"
	"testing"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T, dim int) *VectorIndex {
	t.Helper()
	idx, err := OpenVectorIndex("", true, dim)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.EnsureIndex(context.Background()))
	return idx
}

func TestVectorIndex_EnsureIndexDimension(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, NewVectorIndex(backend, 3).EnsureIndex(ctx))
	require.NoError(t, NewVectorIndex(backend, 3).EnsureIndex(ctx), "ensure is idempotent")

	err = NewVectorIndex(backend, 4).EnsureIndex(ctx)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestVectorIndex_QueryOrder(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	err := idx.Upsert(ctx, []storage.VectorRecord{
		{ID: "city_hue", Values: []float32{0, 1, 0}, Metadata: core.Metadata{"name": "Hue"}},
		{ID: "city_da_nang", Values: []float32{2, 0, 0}, Metadata: core.Metadata{"name": "Da Nang"}},
		{ID: "city_hoi_an", Values: []float32{1, 1, 0}, Metadata: core.Metadata{"name": "Hoi An"}},
	})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "city_da_nang", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "Da Nang", matches[0].Metadata.String("name"))
	assert.Equal(t, "city_hoi_an", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestVectorIndex_UpsertReplaces(t *testing.T) {
	idx := newTestVectorIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []storage.VectorRecord{{ID: "a", Values: []float32{1, 0}}}))
	require.NoError(t, idx.Upsert(ctx, []storage.VectorRecord{{ID: "a", Values: []float32{0, 1}}}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := idx.Query(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
}

func TestVectorIndex_DimensionChecks(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	err := idx.Upsert(ctx, []storage.VectorRecord{{ID: "a", Values: []float32{1, 0}}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = idx.Query(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = idx.Query(ctx, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestVectorIndex_Empty(t *testing.T) {
	idx := newTestVectorIndex(t, 3)

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
