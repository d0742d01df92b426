package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/entity"
)

type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType)
	}
	return out
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var got collector
	_, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)

	for _, typ := range []string{"A", "B", "C"} {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: typ}))
	}

	require.Eventually(t, func() bool { return got.len() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"A", "B", "C"}, got.types())
	assert.Equal(t, uint64(3), bus.Metrics().Published)
}

func TestMemoryBusFilterAndUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var chunks collector
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventChunkLoaded}}, chunks.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: EventEntityMoved}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: EventChunkLoaded}))
	require.Eventually(t, func() bool { return chunks.len() == 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: EventChunkLoaded}))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, chunks.len())
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	block := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { <-block })
	require.NoError(t, err)

	// Первое событие занимает обработчик, второе - буфер
	require.NoError(t, bus.Publish(context.Background(), &Envelope{Priority: 1}))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), &Envelope{Priority: 1}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{Priority: 1}))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = bus.Publish(ctx, &Envelope{Priority: 9})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

func TestMemoryBusClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrClosed)
}

func TestEnvelopePayloadRoundTrip(t *testing.T) {
	ev, err := NewEnvelope("client", EventChunkLoaded, 5, map[string]interface{}{
		"x":        int32(-3),
		"replaced": true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, PayloadVersion, ev.Version)

	s, err := DecodePayload(ev)
	require.NoError(t, err)
	assert.Equal(t, -3.0, s.Fields["x"].GetNumberValue())
	assert.True(t, s.Fields["replaced"].GetBoolValue())
}

func TestWorldPublisherForwardsIndexChanges(t *testing.T) {
	bus := NewMemoryBus(64)
	defer bus.Close()

	var got collector
	_, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)

	pub := NewWorldPublisher(bus, "test", 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx)

	defs := definitions.Default()
	ix := world.NewIndex(defs, world.WithListener(pub))

	c := world.NewChunk(0, 0)
	c.FillNil(defs.Air())
	ix.InsertChunk(c)

	cow, err := defs.Entity(uint16(entity.TypeCow))
	require.NoError(t, err)
	e := world.NewEntity(7, cow, vec.Vec2Float{X: 3, Y: 4})
	ix.AddEntity(e)
	require.NoError(t, ix.SetBlock(1, 1, 1))
	ix.RemoveEntity(e)

	require.Eventually(t, func() bool { return got.len() >= 5 }, time.Second, 5*time.Millisecond)
	types := got.types()
	assert.Equal(t, EventChunkLoaded, types[0])
	assert.Contains(t, types, EventEntityAdded)
	assert.Contains(t, types, EventEntityMoved)
	assert.Contains(t, types, EventBlockChanged)
	assert.Contains(t, types, EventEntityRemoved)
	assert.Zero(t, pub.Dropped())
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	me := NewMetricsExporter(bus, prometheus.NewRegistry())
	require.NoError(t, bus.Publish(context.Background(), &Envelope{}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{}))
	me.Collect()
	me.Collect()

	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
}
