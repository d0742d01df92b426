package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *ChunkStore {
	t.Helper()
	store, err := NewChunkStore(filepath.Join(t.TempDir(), "chunks"))
	if err != nil {
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChunkKeyRoundTrip(t *testing.T) {
	key := ChunkKey("overworld", -3, 17)
	assert.Equal(t, "chunk:overworld:-3:17", key)

	dim, cx, cy, err := ParseChunkKey(key)
	require.NoError(t, err)
	assert.Equal(t, "overworld", dim)
	assert.Equal(t, int32(-3), cx)
	assert.Equal(t, int32(17), cy)

	_, _, _, err = ParseChunkKey("entity:1")
	assert.Error(t, err)
}

func TestStoreAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte{0xAB, 0x01}, 2048)
	key := ChunkKey("overworld", 1, 2)
	require.NoError(t, store.Store(ctx, key, payload))

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = store.Load(ctx, ChunkKey("overworld", 9, 9))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := ChunkKey("overworld", 0, 0)

	require.NoError(t, store.Store(ctx, key, []byte{1, 2, 3}))
	require.NoError(t, store.Delete(ctx, key))
	_, err := store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Повторное удаление не ошибка
	assert.NoError(t, store.Delete(ctx, key))
}

func TestRangeByDimension(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BatchStore(ctx, map[string][]byte{
		ChunkKey("overworld", 0, 0): {1},
		ChunkKey("overworld", 1, 0): {2},
		ChunkKey("nether", 0, 0):    {3},
	}))

	seen := map[string][]byte{}
	err := store.Range(ctx, ChunkPrefix("overworld"), func(key string, payload []byte) error {
		seen[key] = payload
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, []byte{2}, seen[ChunkKey("overworld", 1, 0)])

	n, err := store.Count(ChunkPrefix("nether"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stop := errors.New("stop")
	calls := 0
	err = store.Range(ctx, ChunkPrefix("overworld"), func(string, []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chunks")
	ctx := context.Background()

	store, err := NewChunkStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, ChunkKey("overworld", 4, 4), []byte("payload")))
	require.NoError(t, store.Close())

	store, err = NewChunkStore(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Load(ctx, ChunkKey("overworld", 4, 4))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestClosedStore(t *testing.T) {
	store, err := NewInMemoryChunkStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	ctx := context.Background()
	assert.ErrorIs(t, store.Store(ctx, "k", nil), ErrClosed)
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}
