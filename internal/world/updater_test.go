package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/block"
)

func TestUpdaterTickIntegratesAndMoves(t *testing.T) {
	ix := NewIndex(defs)
	a := filledChunk(t, 0, 0, block.AirID)
	b := filledChunk(t, 1, 0, block.AirID)
	ix.InsertChunk(a)
	ix.InsertChunk(b)

	e := cow(1, 63.5, 10)
	e.SetVelocity(vec.Vec2Float{X: 2, Y: 0})
	ix.AddEntity(e)

	still := cow(2, 5, 5)
	ix.AddEntity(still)

	u := NewUpdater(ix, 0)
	assert.Equal(t, DefaultTicksPerSecond, u.TicksPerSecond())
	hooked := 0
	u.SetTickHook(func() { hooked++ })

	u.Tick(0.5)
	assert.Equal(t, int64(1), u.TickCount())
	assert.Equal(t, 1, hooked)
	assert.Equal(t, vec.Vec2Float{X: 64.5, Y: 10}, e.Position())
	assert.Equal(t, 0.5, e.Age())
	assert.Same(t, b, e.Chunk(), "сущность должна перейти в соседний чанк")
	assert.Same(t, a, still.Chunk())
	assert.Equal(t, 0.5, still.Age(), "возраст растёт и у неподвижных")
	checkMembership(t, ix)
}

func TestUpdaterRunStopsOnCancel(t *testing.T) {
	ix := NewIndex(defs)
	u := NewUpdater(ix, 200)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return u.TickCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}
