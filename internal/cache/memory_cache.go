package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache - PayloadCache в памяти процесса с истечением по TTL.
// Подходит для одиночного клиента без Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	ttl     time.Duration
	metrics CacheMetrics
	now     func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache создаёт кэш; defaultTTL используется в Store
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		ttl:   defaultTTL,
		now:   time.Now,
	}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.TotalRequests++
	it, ok := m.items[key]
	if ok && !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		ok = false
	}
	if ok {
		m.metrics.CacheHits++
	} else {
		m.metrics.CacheMisses++
	}
	m.metrics.HitRatio = float64(m.metrics.CacheHits) / float64(m.metrics.TotalRequests)

	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Load - Get для использования кэша как источника полезных нагрузок
func (m *MemoryCache) Load(ctx context.Context, key string) ([]byte, error) {
	return m.Get(ctx, key)
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	it := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

// Store сохраняет значение с TTL по умолчанию
func (m *MemoryCache) Store(ctx context.Context, key string, value []byte) error {
	return m.Set(ctx, key, value, m.ttl)
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	return ok && (it.expiresAt.IsZero() || m.now().Before(it.expiresAt)), nil
}

func (m *MemoryCache) Close() error { return nil }

func (m *MemoryCache) GetMetrics() *CacheMetrics {
	m.mu.RLock()
	metrics := m.metrics
	m.mu.RUnlock()
	metrics.LastUpdate = m.now()
	return &metrics
}
