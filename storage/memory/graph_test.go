package memory

import (
	"context"
	"testing"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStore_Neighbors(t *testing.T) {
	g := NewGraphStore()
	ctx := context.Background()

	require.NoError(t, g.UpsertEntity(ctx, &core.Node{ID: "city_da_nang", Name: "Da Nang", Type: "City"}))
	require.NoError(t, g.UpsertEntity(ctx, &core.Node{ID: "attraction_my_khe", Name: "My Khe Beach", Type: "Attraction", Description: "Long sandy beach"}))
	require.NoError(t, g.UpsertEntity(ctx, &core.Node{ID: "hotel_sea", Name: "Sea Hotel", Type: "Hotel"}))

	require.NoError(t, g.Link(ctx, "attraction_my_khe", "Located_In", "city_da_nang"))
	require.NoError(t, g.Link(ctx, "hotel_sea", "Located_In", "city_da_nang"))
	require.NoError(t, g.Link(ctx, "hotel_sea", "Located_In", "city_da_nang"))
	require.NoError(t, g.Link(ctx, "hotel_sea", "Near", "missing"))

	facts, err := g.Neighbors(ctx, "city_da_nang", 10)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "city_da_nang", facts[0].Source)
	assert.Equal(t, "Located_In", facts[0].Relation)
	assert.Equal(t, "attraction_my_khe", facts[0].TargetID)
	assert.Equal(t, "Long sandy beach", facts[0].TargetDescription)
	assert.Equal(t, []string{"Entity", "Attraction"}, facts[0].Labels)

	limited, err := g.Neighbors(ctx, "city_da_nang", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := g.Neighbors(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
