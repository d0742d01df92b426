package cache

import (
	"context"
	"errors"
	"time"
)

// PayloadCache определяет горячий кэш полезных нагрузок чанков.
//
// Использование:
//
//	c := NewRedisCache(cfg, coldStorage)
//	data, err := c.Get(ctx, "chunk:overworld:0:0")
//	err = c.Set(ctx, "chunk:overworld:0:0", data, 30*time.Second)
type PayloadCache interface {
	// Get получает значение по ключу.
	// Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL.
	// TTL = 0 означает отсутствие истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ из кэша.
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа.
	Exists(ctx context.Context, key string) (bool, error)

	Close() error

	// GetMetrics возвращает метрики кэша.
	GetMetrics() *CacheMetrics
}

// ColdStorage - постоянное хранилище за горячим кэшем.
// Используется для read-through при промахе и для write-behind.
type ColdStorage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	BatchStore(ctx context.Context, items map[string][]byte) error
	Delete(ctx context.Context, key string) error
}

// CacheMetrics содержит метрики производительности кэша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	// Write-Behind метрики
	PendingWrites int64 `json:"pending_writes"`

	LastUpdate time.Time `json:"last_update"`
}

// CacheConfig содержит конфигурацию кэша.
type CacheConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int

	DefaultTTL time.Duration
	MaxTTL     time.Duration

	WriteBehindEnabled   bool
	WriteBehindInterval  time.Duration
	WriteBehindBatchSize int

	MaxConnections int
	PoolTimeout    time.Duration
}

// ErrCacheMiss возвращается, если ключа нет ни в кэше, ни в холодном хранилище
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кэша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
