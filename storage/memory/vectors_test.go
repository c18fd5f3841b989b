package memory

import (
	"context"
	"testing"

	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndex_Query(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.EnsureIndex(ctx))

	require.NoError(t, idx.Upsert(ctx, []storage.VectorRecord{
		{ID: "a", Values: []float32{1, 0}},
		{ID: "b", Values: []float32{0, 1}},
		{ID: "c", Values: []float32{1, 1}},
	}))

	matches, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "c", matches[1].ID)

	_, err = idx.Query(ctx, []float32{1}, 2)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}
