package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/wayfarer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheStore(t *testing.T) *CacheStore {
	t.Helper()
	store, err := OpenCacheStore("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCacheStore_GetMissing(t *testing.T) {
	store := newTestCacheStore(t)

	value, found, err := store.Get(context.Background(), "embedding:abc")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestCacheStore_SetGet(t *testing.T) {
	store := newTestCacheStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "answer:abc", []byte("first"), time.Hour))
	require.NoError(t, store.SetWithTTL(ctx, "answer:abc", []byte("second"), time.Hour))

	value, found, err := store.Get(ctx, "answer:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("second"), value, "last write wins")
}

func TestCacheStore_Expiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a badger TTL to elapse")
	}
	store := newTestCacheStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithTTL(ctx, "embedding:short", []byte("v"), time.Second))

	_, found, err := store.Get(ctx, "embedding:short")
	require.NoError(t, err)
	assert.True(t, found, "entry should be visible before expiry")

	time.Sleep(2100 * time.Millisecond)

	_, found, err = store.Get(ctx, "embedding:short")
	require.NoError(t, err)
	assert.False(t, found, "entry should be a miss after expiry")
}

func TestCacheStore_Closed(t *testing.T) {
	store, err := OpenCacheStore("", true)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, _, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	err = store.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCacheStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	store := NewCacheStore(backend)
	require.NoError(t, store.Close())
	assert.False(t, backend.IsClosed(), "shared backend stays open")
}
