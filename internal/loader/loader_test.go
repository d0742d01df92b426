package loader

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/annel0/tileworld/internal/cache"
	"github.com/annel0/tileworld/internal/codec"
	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/entity"
)

type fixture struct {
	defs   *definitions.Registry
	index  *world.Index
	loader *Loader
	cache  *cache.MemoryCache
	reg    *prometheus.Registry
	spans  *tracetest.SpanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		defs:  definitions.Default(),
		cache: cache.NewMemoryCache(time.Minute),
		reg:   prometheus.NewRegistry(),
		spans: tracetest.NewSpanRecorder(),
	}
	f.index = world.NewIndex(f.defs)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	f.loader = New(f.defs, f.index, codec.IDModeLegacy,
		WithStore(f.cache),
		WithMetrics(metrics.New("test", f.reg)),
		WithTracer(tp.Tracer("loader-test")),
	)
	return f
}

// payload кодирует чанк, заполненный камнем, с необязательными сущностями
func (f *fixture) payload(t *testing.T, cx, cy int32, entities ...*world.Entity) []byte {
	t.Helper()
	stone, err := f.defs.Block(uint16(block.StoneID))
	require.NoError(t, err)

	c := world.NewChunk(cx, cy)
	c.Palette = []block.Block{stone}
	c.FillNil(stone)
	for _, e := range entities {
		c.Adopt(e)
	}
	data, err := codec.NewEncoder(f.defs.Air(), codec.IDModeLegacy).Encode(c)
	require.NoError(t, err)
	return data
}

func (f *fixture) cow(t *testing.T, id int64, x, y float64) *world.Entity {
	def, err := f.defs.Entity(uint16(entity.TypeCow))
	require.NoError(t, err)
	return world.NewEntity(id, def, vec.Vec2Float{X: x, Y: y})
}

func (f *fixture) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestHandleChunkPublishesAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data := f.payload(t, 1, -1, f.cow(t, 5, 70.5, -40.25))
	c, err := f.loader.HandleChunk(ctx, data)
	require.NoError(t, err)

	got, ok := f.index.Chunk(1, -1)
	require.True(t, ok)
	assert.Same(t, c, got)

	e, ok := f.index.Entity(5)
	require.True(t, ok)
	assert.Same(t, c, e.Chunk())

	stored, err := f.cache.Get(ctx, storage.ChunkKey("overworld", 1, -1))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	assert.Equal(t, 1.0, f.counter(t, "test_chunks_decoded_total"))
	assert.Equal(t, 1.0, f.counter(t, "test_chunk_entities_total"))

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "loader.HandleChunk", spans[0].Name())
}

func TestHandleChunkRejectsTruncatedPayload(t *testing.T) {
	f := newFixture(t)
	data := f.payload(t, 0, 0)

	_, err := f.loader.HandleChunk(context.Background(), data[:len(data)-1])
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrUnexpectedEndOfData)

	assert.Zero(t, f.index.ChunkCount())
	assert.Equal(t, 1.0, f.counter(t, "test_chunk_decode_errors_total"))

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codec.KindUnexpectedEOF, spans[0].Status().Description)
}

func TestEntityMoveAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.loader.HandleChunk(ctx, f.payload(t, 0, 0, f.cow(t, 9, 10, 10)))
	require.NoError(t, err)
	_, err = f.loader.HandleChunk(ctx, f.payload(t, 1, 0))
	require.NoError(t, err)

	move := protocol.EntityMove{Ref: protocol.EntityRef{Low: 9}, X: 80, Y: 12, VelX: 1.5, Facing: 3}
	require.NoError(t, f.loader.HandleEntityMove(ctx, move))

	e, ok := f.index.Entity(9)
	require.True(t, ok)
	right, _ := f.index.Chunk(1, 0)
	assert.Same(t, right, e.Chunk())
	assert.Equal(t, 1.5, e.Velocity().X)
	assert.Equal(t, float32(3), e.Facing())

	// Неизвестная сущность не ошибка
	require.NoError(t, f.loader.HandleEntityMove(ctx, protocol.EntityMove{Ref: protocol.EntityRef{Low: 404}}))

	require.NoError(t, f.loader.HandleEntityRemove(ctx, protocol.EntityRemove{Ref: protocol.EntityRef{Low: 9}}))
	_, ok = f.index.Entity(9)
	assert.False(t, ok)
	assert.Zero(t, right.EntityCount())
}

func TestHandleBlockSetRefreshesStoredPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.loader.HandleChunk(ctx, f.payload(t, 0, 0))
	require.NoError(t, err)

	require.NoError(t, f.loader.HandleBlockSet(ctx, protocol.BlockSet{X: 3, Y: 4, ID: uint16(block.WaterID)}))
	assert.Equal(t, block.WaterID, f.index.GetBlock(3, 4).ID())

	stored, err := f.cache.Get(ctx, storage.ChunkKey("overworld", 0, 0))
	require.NoError(t, err)
	c, err := codec.NewDecoder(f.defs, codec.IDModeLegacy).Decode(stored)
	require.NoError(t, err)
	assert.Equal(t, block.WaterID, c.Tile(3, 4).ID())
	assert.Equal(t, block.StoneID, c.Tile(0, 0).ID())

	err = f.loader.HandleBlockSet(ctx, protocol.BlockSet{X: 0, Y: 0, ID: 60000})
	assert.ErrorIs(t, err, definitions.ErrUnknownID)
}

// brokenStore принимает запись, но не умеет удалять
type brokenStore struct {
	deleted []string
}

func (s *brokenStore) Store(context.Context, string, []byte) error { return nil }

func (s *brokenStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return errors.New("диск недоступен")
}

func TestHandleBlockSetDropsUnencodableCopy(t *testing.T) {
	require.NoError(t, logging.Close())
	var console bytes.Buffer
	require.NoError(t, logging.Init(logging.Options{ConsoleLevel: logging.INFO, Console: &console}))
	defer logging.Close()

	defs := definitions.Default()
	index := world.NewIndex(defs)
	store := &brokenStore{}
	l := New(defs, index, codec.IDModeLegacy, WithStore(store))
	f := &fixture{defs: defs}
	ctx := context.Background()

	_, err := l.HandleChunk(ctx, f.payload(t, 0, 0))
	require.NoError(t, err)

	// Смещение 40 клеток от начала чанка не помещается в проводной формат
	index.AddEntity(f.cow(t, 77, 40, 3))
	require.NoError(t, l.HandleBlockSet(ctx, protocol.BlockSet{X: 1, Y: 1, ID: uint16(block.DirtID)}))

	key := storage.ChunkKey("overworld", 0, 0)
	assert.Equal(t, []string{key}, store.deleted)
	assert.Contains(t, console.String(), "Не удалось удалить устаревший чанк "+key)
}

func TestHandleChunkUnload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.loader.HandleChunk(ctx, f.payload(t, 2, 2))
	require.NoError(t, err)
	require.NoError(t, f.loader.HandleChunkUnload(ctx, protocol.ChunkUnload{X: 2, Y: 2}))
	assert.Zero(t, f.index.ChunkCount())

	// Копия остаётся для восстановления
	c, err := f.loader.Restore(ctx, f.cache, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), c.X)
	assert.Equal(t, 1, f.index.ChunkCount())

	_, err = f.loader.Restore(ctx, f.cache, 7, 7)
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestWarmStartFromChunkStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store, err := storage.NewInMemoryChunkStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.BatchStore(ctx, map[string][]byte{
		storage.ChunkKey("overworld", 0, 0): f.payload(t, 0, 0),
		storage.ChunkKey("overworld", 0, 1): f.payload(t, 0, 1, f.cow(t, 3, 5, 70)),
		storage.ChunkKey("overworld", 9, 9): {0xFF},
		storage.ChunkKey("nether", 0, 0):    f.payload(t, 0, 0),
	}))

	n, err := f.loader.WarmStart(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.index.ChunkCount())
	assert.Equal(t, 1, f.index.EntityCount())
	assert.Equal(t, 2.0, f.counter(t, "test_payload_cache_hits_total"))
}
