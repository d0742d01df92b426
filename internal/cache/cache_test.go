package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coldMap - ColdStorage в памяти для проверки read-through и write-behind
type coldMap struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newColdMap() *coldMap { return &coldMap{items: map[string][]byte{}} }

func (c *coldMap) Load(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *coldMap) BatchStore(_ context.Context, items map[string][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range items {
		c.items[k] = v
	}
	return nil
}

func (c *coldMap) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *coldMap) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, err := c.Get(ctx, "chunk:overworld:0:0")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Store(ctx, "chunk:overworld:0:0", []byte{1, 2}))
	got, err := c.Get(ctx, "chunk:overworld:0:0")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	ok, err := c.Exists(ctx, "chunk:overworld:0:0")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "chunk:overworld:0:0"))
	ok, _ = c.Exists(ctx, "chunk:overworld:0:0")
	assert.False(t, ok)

	m := c.GetMetrics()
	assert.Equal(t, int64(2), m.TotalRequests)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.InDelta(t, 0.5, m.HitRatio, 1e-9)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache(time.Second)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Store(ctx, "k", []byte("v")))
	now = now.Add(500 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// Тесты Redis требуют запущенного сервера: TILEWORLD_TEST_REDIS=localhost:6379
func newTestRedis(t *testing.T, cold ColdStorage, writeBehind bool) *RedisCache {
	t.Helper()
	addr := os.Getenv("TILEWORLD_TEST_REDIS")
	if addr == "" {
		t.Skip("TILEWORLD_TEST_REDIS не задан")
	}
	c, err := NewRedisCache(&CacheConfig{
		RedisURL:            addr,
		DefaultTTL:          time.Minute,
		WriteBehindEnabled:  writeBehind,
		WriteBehindInterval: 10 * time.Millisecond,
	}, cold)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	cold := newColdMap()
	c := newTestRedis(t, cold, false)

	key := "test:" + uuid.NewString()
	require.NoError(t, cold.BatchStore(ctx, map[string][]byte{key: []byte("payload")}))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	// Второй запрос обслуживается самим Redis
	ok, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCacheWriteBehind(t *testing.T) {
	ctx := context.Background()
	cold := newColdMap()
	c := newTestRedis(t, cold, true)

	key := "test:" + uuid.NewString()
	require.NoError(t, c.Store(ctx, key, []byte{7}))
	defer c.Delete(ctx, key)

	require.Eventually(t, func() bool {
		_, ok := cold.get(key)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}
