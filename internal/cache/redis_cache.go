package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/tileworld/internal/logging"
)

// RedisCache реализует PayloadCache поверх Redis.
// Несколько клиентов одного сервера делят закэшированные чанки.
//
// Особенности:
// - Read-through из ColdStorage при промахе
// - Write-Behind в ColdStorage пакетами
// - Метрики hit ratio и latency
type RedisCache struct {
	client      *redis.Client
	config      *CacheConfig
	coldStorage ColdStorage
	logger      *logging.Logger

	// Write-Behind
	writeBehindQueue chan writeItem
	writeBehindStop  chan struct{}
	writeBehindWg    sync.WaitGroup
	closeOnce        sync.Once

	metrics      CacheMetrics
	metricsMutex sync.RWMutex

	latencySum   atomic.Int64 // в наносекундах
	latencyCount atomic.Int64
	maxLatency   atomic.Int64
}

type writeItem struct {
	Key   string
	Value []byte
}

// NewRedisCache создаёт Redis кэш с опциональным ColdStorage (может быть nil).
func NewRedisCache(config *CacheConfig, coldStorage ColdStorage) (*RedisCache, error) {
	applyDefaults(config)
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisCache(rdb, config, coldStorage), nil
}

func newRedisCache(rdb *redis.Client, config *CacheConfig, coldStorage ColdStorage) *RedisCache {
	applyDefaults(config)

	c := &RedisCache{
		client:      rdb,
		config:      config,
		coldStorage: coldStorage,
		logger:      logging.GetComponentLogger("cache"),
		metrics:     CacheMetrics{LastUpdate: time.Now()},
	}

	if config.WriteBehindEnabled && coldStorage != nil {
		c.writeBehindQueue = make(chan writeItem, config.WriteBehindBatchSize*2)
		c.writeBehindStop = make(chan struct{})
		c.startWriteBehind()
	}

	c.logger.Info("🗄️ Redis cache initialized: %s (Write-Behind: %v)", config.RedisURL, config.WriteBehindEnabled)
	return c
}

func applyDefaults(config *CacheConfig) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.MaxTTL == 0 {
		config.MaxTTL = time.Hour
	}
	if config.WriteBehindInterval == 0 {
		config.WriteBehindInterval = 5 * time.Second
	}
	if config.WriteBehindBatchSize == 0 {
		config.WriteBehindBatchSize = 100
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}
}

// Get получает значение из Redis; при промахе читает из ColdStorage (Read-Through).
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.recordLatency(start)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.countRequest(true)
		return val, nil
	}
	r.countRequest(false)

	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	if r.coldStorage != nil {
		val, err := r.coldStorage.Load(ctx, key)
		if err == nil {
			if serr := r.client.Set(ctx, key, val, r.config.DefaultTTL).Err(); serr != nil {
				r.logger.Warn("⚠️ Не удалось прогреть ключ %s: %v", key, serr)
			}
			return val, nil
		}
		r.logger.Debug("Cold storage miss for key %s: %v", key, err)
	}

	return nil, ErrCacheMiss
}

// Load - Get для использования кэша как источника полезных нагрузок
func (r *RedisCache) Load(ctx context.Context, key string) ([]byte, error) {
	return r.Get(ctx, key)
}

// Set сохраняет значение в Redis и ставит его в очередь Write-Behind.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordLatency(start)

	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	if r.writeBehindQueue != nil {
		select {
		case r.writeBehindQueue <- writeItem{Key: key, Value: value}:
		default:
			// Очередь полна, пишем синхронно
			r.logger.Warn("Write-behind queue full, writing synchronously: %s", key)
			if err := r.coldStorage.BatchStore(ctx, map[string][]byte{key: value}); err != nil {
				return fmt.Errorf("cold storage write: %w", err)
			}
		}
	}
	return nil
}

// Store сохраняет значение с TTL по умолчанию
func (r *RedisCache) Store(ctx context.Context, key string, value []byte) error {
	return r.Set(ctx, key, value, r.config.DefaultTTL)
}

// Delete удаляет ключ из Redis и из ColdStorage.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer r.recordLatency(start)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	if r.coldStorage != nil {
		if err := r.coldStorage.Delete(ctx, key); err != nil {
			return fmt.Errorf("cold storage delete: %w", err)
		}
	}
	return nil
}

// Exists проверяет существование ключа в Redis.
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	defer r.recordLatency(start)

	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return count > 0, nil
}

// Close останавливает Write-Behind, дописывает очередь и закрывает соединение.
func (r *RedisCache) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.writeBehindStop != nil {
			close(r.writeBehindStop)
			r.writeBehindWg.Wait()
		}
		err = r.client.Close()
		r.logger.Info("Redis cache closed")
	})
	return err
}

// GetMetrics возвращает копию метрик кэша.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	r.metricsMutex.RLock()
	metrics := r.metrics
	r.metricsMutex.RUnlock()

	if count := r.latencyCount.Load(); count > 0 {
		metrics.AvgLatencyMs = float64(r.latencySum.Load()) / float64(count) / 1e6
		metrics.MaxLatencyMs = float64(r.maxLatency.Load()) / 1e6
	}
	if r.writeBehindQueue != nil {
		metrics.PendingWrites = int64(len(r.writeBehindQueue))
	}
	metrics.LastUpdate = time.Now()
	return &metrics
}

func (r *RedisCache) startWriteBehind() {
	r.writeBehindWg.Add(1)
	go func() {
		defer r.writeBehindWg.Done()

		ticker := time.NewTicker(r.config.WriteBehindInterval)
		defer ticker.Stop()

		batch := make(map[string][]byte)
		for {
			select {
			case item := <-r.writeBehindQueue:
				batch[item.Key] = item.Value
				if len(batch) >= r.config.WriteBehindBatchSize {
					r.flushWriteBehindBatch(batch)
					batch = make(map[string][]byte)
				}

			case <-ticker.C:
				if len(batch) > 0 {
					r.flushWriteBehindBatch(batch)
					batch = make(map[string][]byte)
				}

			case <-r.writeBehindStop:
				// Дописываем очередь перед выходом
			drain:
				for {
					select {
					case item := <-r.writeBehindQueue:
						batch[item.Key] = item.Value
					default:
						break drain
					}
				}
				r.flushWriteBehindBatch(batch)
				return
			}
		}
	}()

	r.logger.Info("Write-Behind started (interval: %v, batch size: %d)",
		r.config.WriteBehindInterval, r.config.WriteBehindBatchSize)
}

func (r *RedisCache) flushWriteBehindBatch(batch map[string][]byte) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.coldStorage.BatchStore(ctx, batch); err != nil {
		r.logger.Error("❌ Write-Behind batch store failed (%d items): %v", len(batch), err)
		return
	}
	r.logger.Debug("Write-Behind batch stored: %d items in %v", len(batch), time.Since(start))
}

func (r *RedisCache) countRequest(hit bool) {
	r.metricsMutex.Lock()
	defer r.metricsMutex.Unlock()

	r.metrics.TotalRequests++
	if hit {
		r.metrics.CacheHits++
	} else {
		r.metrics.CacheMisses++
	}
	r.metrics.HitRatio = float64(r.metrics.CacheHits) / float64(r.metrics.TotalRequests)
}

func (r *RedisCache) recordLatency(start time.Time) {
	latency := time.Since(start).Nanoseconds()
	r.latencySum.Add(latency)
	r.latencyCount.Add(1)
	for {
		current := r.maxLatency.Load()
		if latency <= current || r.maxLatency.CompareAndSwap(current, latency) {
			break
		}
	}
}
