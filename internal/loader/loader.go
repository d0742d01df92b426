// Package loader связывает декодер чанков, индекс мира и кэши полезных нагрузок.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/tileworld/internal/codec"
	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// PayloadStore сохраняет сырые полезные нагрузки чанков
type PayloadStore interface {
	Store(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

// PayloadSource отдаёт сохранённую полезную нагрузку по ключу
type PayloadSource interface {
	Load(ctx context.Context, key string) ([]byte, error)
}

// PayloadRanger обходит сохранённые полезные нагрузки по префиксу
type PayloadRanger interface {
	Range(ctx context.Context, prefix string, fn func(key string, payload []byte) error) error
}

// Option настраивает Loader
type Option func(*Loader)

// WithStore добавляет хранилище, куда копируется каждый принятый чанк
func WithStore(s PayloadStore) Option {
	return func(l *Loader) { l.stores = append(l.stores, s) }
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithTracer задаёт трейсер вместо глобального
func WithTracer(t trace.Tracer) Option {
	return func(l *Loader) { l.tracer = t }
}

// Loader применяет пакеты мира к индексу.
// Чанк публикуется только после полного успешного декодирования.
type Loader struct {
	decoder *codec.Decoder
	encoder *codec.Encoder
	index   *world.Index
	stores  []PayloadStore
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

// New создаёт загрузчик для индекса
func New(defs *definitions.Registry, index *world.Index, mode codec.IDMode, opts ...Option) *Loader {
	l := &Loader{
		decoder: codec.NewDecoder(defs, mode),
		encoder: codec.NewEncoder(defs.Air(), mode),
		index:   index,
		logger:  logging.GetComponentLogger("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracer == nil {
		l.tracer = observability.Tracer()
	}
	return l
}

// Index возвращает индекс, в который пишет загрузчик
func (l *Loader) Index() *world.Index { return l.index }

// HandleChunk декодирует полезную нагрузку пакета чанка, публикует чанк
// в индексе и копирует сырые байты в хранилища.
func (l *Loader) HandleChunk(ctx context.Context, payload []byte) (*world.Chunk, error) {
	ctx, span := l.tracer.Start(ctx, "loader.HandleChunk",
		trace.WithAttributes(attribute.Int("chunk.payload_bytes", len(payload))))
	defer span.End()

	c, err := l.decode(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, codec.Kind(err))
		l.logger.LogProtocolError("chunk", err, payload)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("chunk.x", int64(c.X)),
		attribute.Int64("chunk.y", int64(c.Y)),
		attribute.Int("chunk.palette", len(c.Palette)),
		attribute.Int("chunk.entities", c.EntityCount()),
	)

	l.index.InsertChunk(c)
	l.logger.LogChunkData("network", c.X, c.Y, len(c.Palette), c.EntityCount())

	l.persist(ctx, c, payload)
	l.updateWorldSize()
	return c, nil
}

func (l *Loader) decode(payload []byte) (*world.Chunk, error) {
	start := time.Now()
	c, err := l.decoder.Decode(payload)
	if err != nil {
		if l.metrics != nil {
			l.metrics.DecodeFailed(codec.Kind(err))
		}
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveDecode(len(payload), c.EntityCount(), time.Since(start))
	}
	return c, nil
}

func (l *Loader) chunkKey(cx, cy int32) string {
	return storage.ChunkKey(l.index.Dimension(), cx, cy)
}

func (l *Loader) persist(ctx context.Context, c *world.Chunk, payload []byte) {
	key := l.chunkKey(c.X, c.Y)
	for _, s := range l.stores {
		if err := s.Store(ctx, key, payload); err != nil {
			l.logger.Warn("⚠️ Не удалось сохранить чанк %s: %v", key, err)
		}
	}
}

// HandleChunkUnload выгружает чанк. Сохранённая полезная нагрузка остаётся для восстановления.
func (l *Loader) HandleChunkUnload(ctx context.Context, p protocol.ChunkUnload) error {
	if l.index.UnloadChunk(p.X, p.Y) {
		l.logger.Debug("📤 Чанк (%d,%d) выгружен", p.X, p.Y)
		l.updateWorldSize()
	}
	return nil
}

// HandleBlockSet меняет один блок и обновляет сохранённую копию чанка
func (l *Loader) HandleBlockSet(ctx context.Context, p protocol.BlockSet) error {
	if err := l.index.SetBlock(p.X, p.Y, p.ID); err != nil {
		return fmt.Errorf("block set (%d,%d): %w", p.X, p.Y, err)
	}
	if len(l.stores) == 0 {
		return nil
	}

	c, ok := l.index.ChunkAt(p.X, p.Y)
	if !ok {
		return nil
	}
	key := l.chunkKey(c.X, c.Y)
	payload, err := l.encoder.Encode(c)
	for _, s := range l.stores {
		if err != nil {
			// Копию нельзя пересобрать: удаляем устаревшую
			if derr := s.Delete(ctx, key); derr != nil {
				l.logger.Warn("⚠️ Не удалось удалить устаревший чанк %s: %v", key, derr)
			}
			continue
		}
		if serr := s.Store(ctx, key, payload); serr != nil {
			l.logger.Warn("⚠️ Не удалось обновить чанк %s: %v", key, serr)
		}
	}
	if err != nil {
		l.logger.Debug("Чанк %s не пересобран: %v", key, err)
	}
	return nil
}

// HandleEntityMove применяет новое состояние движения сущности.
// Неизвестная сущность пропускается: она придёт вместе со своим чанком.
func (l *Loader) HandleEntityMove(ctx context.Context, p protocol.EntityMove) error {
	id := l.decoder.IDMode().Combine(p.Ref.Low, p.Ref.High)
	e, ok := l.index.Entity(id)
	if !ok {
		l.logger.Trace("Движение неизвестной сущности %d", id)
		return nil
	}
	e.SetPosition(vec.Vec2Float{X: p.X, Y: p.Y})
	e.SetVelocity(vec.Vec2Float{X: float64(p.VelX), Y: float64(p.VelY)})
	e.SetFacing(p.Facing)
	l.index.MoveEntity(e)
	return nil
}

// HandleEntityRemove удаляет сущность из индекса
func (l *Loader) HandleEntityRemove(ctx context.Context, p protocol.EntityRemove) error {
	id := l.decoder.IDMode().Combine(p.Ref.Low, p.Ref.High)
	if l.index.RemoveEntityByID(id) {
		l.updateWorldSize()
	}
	return nil
}

// WarmStart публикует все сохранённые чанки текущего измерения.
// Повреждённые записи пропускаются. Возвращает число загруженных чанков.
func (l *Loader) WarmStart(ctx context.Context, src PayloadRanger) (int, error) {
	ctx, span := l.tracer.Start(ctx, "loader.WarmStart")
	defer span.End()

	loaded := 0
	err := src.Range(ctx, storage.ChunkPrefix(l.index.Dimension()), func(key string, payload []byte) error {
		c, err := l.decode(payload)
		if err != nil {
			l.logger.Warn("⚠️ Пропуск сохранённого чанка %s: %v", key, err)
			return nil
		}
		l.index.InsertChunk(c)
		if l.metrics != nil {
			l.metrics.CacheHit("warm_start")
		}
		loaded++
		return nil
	})
	span.SetAttributes(attribute.Int("chunks.loaded", loaded))
	if err != nil {
		span.RecordError(err)
		return loaded, fmt.Errorf("warm start: %w", err)
	}

	l.updateWorldSize()
	l.logger.Info("♨️ Тёплый старт: загружено %d чанков", loaded)
	return loaded, nil
}

// ErrNotCached возвращается Restore, если чанка нет в источнике
var ErrNotCached = errors.New("chunk not cached")

// Restore загружает один чанк из источника и публикует его
func (l *Loader) Restore(ctx context.Context, src PayloadSource, cx, cy int32) (*world.Chunk, error) {
	ctx, span := l.tracer.Start(ctx, "loader.Restore")
	defer span.End()

	key := l.chunkKey(cx, cy)
	payload, err := src.Load(ctx, key)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotCached, key, err)
	}
	c, err := l.decode(payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if c.X != cx || c.Y != cy {
		return nil, fmt.Errorf("%w: ключ %s содержит чанк (%d,%d)", codec.ErrInvariantViolation, key, c.X, c.Y)
	}
	l.index.InsertChunk(c)
	if l.metrics != nil {
		l.metrics.CacheHit("restore")
	}
	l.updateWorldSize()
	return c, nil
}

func (l *Loader) updateWorldSize() {
	if l.metrics != nil {
		l.metrics.SetWorldSize(l.index.ChunkCount(), l.index.EntityCount())
	}
}
