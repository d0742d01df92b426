package world

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/entity"
)

var defs = definitions.Default()

func mustBlock(t testing.TB, id block.ID) block.Block {
	b, err := defs.Block(uint16(id))
	require.NoError(t, err)
	return b
}

// filledChunk создаёт чанк, целиком заполненный блоком id
func filledChunk(t testing.TB, cx, cy int32, id block.ID) *Chunk {
	c := NewChunk(cx, cy)
	b := mustBlock(t, id)
	c.Palette = []block.Block{b}
	c.FillNil(b)
	return c
}

func cow(id int64, x, y float64) *Entity {
	def, _ := defs.Entities().Get(entity.TypeCow)
	return NewEntity(id, def, vec.Vec2Float{X: x, Y: y})
}

// checkMembership проверяет, что каждая сущность состоит ровно в одном
// правильном чанке, а в списках чанков нет лишних.
func checkMembership(t *testing.T, ix *Index) {
	t.Helper()

	seen := make(map[*Entity]int)
	for _, c := range ix.Chunks() {
		for _, e := range c.Entities() {
			seen[e]++
			cur, ok := ix.Entity(e.ID)
			assert.True(t, ok && cur == e, "сущность %d в чанке (%d,%d), но не в индексе", e.ID, c.X, c.Y)
		}
	}

	for _, e := range ix.Entities() {
		p := e.Position().Floor()
		want, loaded := ix.ChunkAt(p.X, p.Y)
		if !loaded {
			assert.Nil(t, e.Chunk(), "сущность %d: чанк не загружен, ссылка должна быть nil", e.ID)
			assert.Zero(t, seen[e], "сущность %d не должна быть ни в одном чанке", e.ID)
			continue
		}
		assert.Same(t, want, e.Chunk(), "сущность %d в неверном чанке", e.ID)
		assert.Equal(t, 1, seen[e], "сущность %d должна быть ровно в одном списке", e.ID)
	}
}

func TestGetBlockUnloadedIsAir(t *testing.T) {
	ix := NewIndex(defs)
	assert.Equal(t, block.AirID, ix.GetBlock(0, 0).ID())
	assert.Equal(t, block.AirID, ix.GetBlock(-1000, 123456).ID())
}

func TestGetSetRoundTrip(t *testing.T) {
	ix := NewIndex(defs)
	ix.InsertChunk(filledChunk(t, -1, 0, block.StoneID))

	assert.Equal(t, block.StoneID, ix.GetBlock(-1, 5).ID())
	assert.Equal(t, block.StoneID, ix.GetBlock(-64, 63).ID())
	assert.Equal(t, block.AirID, ix.GetBlock(0, 5).ID(), "соседний чанк не загружен")

	require.NoError(t, ix.SetBlock(-3, 10, uint16(block.DirtID)))
	assert.Equal(t, block.DirtID, ix.GetBlock(-3, 10).ID())
	assert.Equal(t, block.StoneID, ix.GetBlock(-3, 11).ID())

	c, ok := ix.Chunk(-1, 0)
	require.True(t, ok)
	assert.Equal(t, block.DirtID, c.Tile(-3&63, 10).ID())
}

func TestSetBlockUnloadedAndUnknown(t *testing.T) {
	ix := NewIndex(defs)

	// Незагруженный чанк: ничего не происходит, ошибки нет
	assert.NoError(t, ix.SetBlock(500, 500, uint16(block.StoneID)))
	assert.Equal(t, 0, ix.ChunkCount())
	assert.Equal(t, block.AirID, ix.GetBlock(500, 500).ID())

	ix.InsertChunk(filledChunk(t, 0, 0, block.StoneID))
	err := ix.SetBlock(1, 1, 4000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, definitions.ErrUnknownID))
	assert.Equal(t, block.StoneID, ix.GetBlock(1, 1).ID(), "блок не должен измениться")
}

func TestInsertChunkRegistersDecodedEntities(t *testing.T) {
	ix := NewIndex(defs)

	c := filledChunk(t, 1, 1, block.AirID)
	inside := cow(1, 70, 70)
	outside := cow(2, 10, 10) // позиция вне чанка (1,1)
	c.Adopt(inside)
	c.Adopt(outside)

	_, ok := ix.Entity(1)
	assert.False(t, ok, "до публикации сущностей нет в индексе")

	ix.InsertChunk(c)

	assert.Equal(t, 2, ix.EntityCount())
	assert.Same(t, c, inside.Chunk())
	assert.Nil(t, outside.Chunk(), "чанк (0,0) не загружен")
	assert.Equal(t, []*Entity{inside}, c.Entities())
	checkMembership(t, ix)
}

func TestAddMoveRemove(t *testing.T) {
	ix := NewIndex(defs)
	a := filledChunk(t, 0, 0, block.AirID)
	b := filledChunk(t, 1, 0, block.AirID)
	ix.InsertChunk(a)
	ix.InsertChunk(b)

	e := cow(7, 10.5, 3)
	ix.AddEntity(e)
	assert.Same(t, a, e.Chunk())
	checkMembership(t, ix)

	e.SetPosition(vec.Vec2Float{X: 64.01, Y: 3})
	ix.MoveEntity(e)
	assert.Same(t, b, e.Chunk())
	assert.Empty(t, a.Entities())
	checkMembership(t, ix)

	// Уход в незагруженный чанк
	e.SetPosition(vec.Vec2Float{X: -0.5, Y: 3})
	ix.MoveEntity(e)
	assert.Nil(t, e.Chunk())
	checkMembership(t, ix)

	e.SetPosition(vec.Vec2Float{X: 1, Y: 1})
	ix.MoveEntity(e)
	assert.Same(t, a, e.Chunk())

	assert.True(t, ix.RemoveEntity(e))
	assert.False(t, ix.RemoveEntity(e))
	assert.Nil(t, e.Chunk())
	assert.Empty(t, a.Entities())
	assert.Equal(t, 0, ix.EntityCount())

	// Перемещение удалённой сущности её не возвращает
	ix.MoveEntity(e)
	assert.Empty(t, a.Entities())
}

func TestAddEntityReplacesSameID(t *testing.T) {
	ix := NewIndex(defs)
	a := filledChunk(t, 0, 0, block.AirID)
	ix.InsertChunk(a)

	first := cow(5, 1, 1)
	second := cow(5, 2, 2)
	ix.AddEntity(first)
	ix.AddEntity(second)

	got, ok := ix.Entity(5)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Nil(t, first.Chunk())
	assert.Equal(t, []*Entity{second}, a.Entities())
	checkMembership(t, ix)

	// Повторное добавление того же экземпляра ничего не дублирует
	ix.AddEntity(second)
	assert.Len(t, a.Entities(), 1)
}

func TestChunkReplacementRehomesEntities(t *testing.T) {
	ix := NewIndex(defs)
	old := filledChunk(t, 0, 0, block.StoneID)
	ix.InsertChunk(old)

	e := cow(1, 5, 5)
	ix.AddEntity(e)

	fresh := filledChunk(t, 0, 0, block.DirtID)
	ix.InsertChunk(fresh)

	assert.True(t, old.Detached())
	assert.Empty(t, old.Entities())
	assert.Same(t, fresh, e.Chunk())
	assert.Equal(t, block.DirtID, ix.GetBlock(5, 5).ID())
	assert.Equal(t, 1, ix.ChunkCount())
	checkMembership(t, ix)
}

func TestUnloadChunk(t *testing.T) {
	ix := NewIndex(defs)
	c := filledChunk(t, 2, -3, block.StoneID)
	ix.InsertChunk(c)

	e := cow(9, 130, -180)
	ix.AddEntity(e)
	require.Same(t, c, e.Chunk())

	assert.True(t, ix.UnloadChunk(2, -3))
	assert.False(t, ix.UnloadChunk(2, -3))
	assert.Nil(t, e.Chunk())
	assert.Equal(t, 1, ix.EntityCount(), "сущность остаётся в индексе")
	assert.Equal(t, block.AirID, ix.GetBlock(130, -180).ID())
	checkMembership(t, ix)

	// Повторная загрузка подхватывает сущность без движения
	again := filledChunk(t, 2, -3, block.StoneID)
	ix.InsertChunk(again)
	assert.Same(t, again, e.Chunk())
	checkMembership(t, ix)
}

func TestReinsertUnloadedChunkInstance(t *testing.T) {
	ix := NewIndex(defs)
	c := filledChunk(t, 0, 0, block.StoneID)
	ix.InsertChunk(c)
	require.True(t, ix.UnloadChunk(0, 0))
	require.True(t, c.Detached())

	ix.InsertChunk(c)
	assert.False(t, c.Detached())

	done := make(chan struct{})
	e := cow(1, 3, 3)
	go func() {
		defer close(done)
		ix.AddEntity(e)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AddEntity не завершился на повторно вставленном чанке")
	}
	assert.Same(t, c, e.Chunk())
	checkMembership(t, ix)

	// Заменённый экземпляр тоже можно вернуть
	other := filledChunk(t, 0, 0, block.DirtID)
	ix.InsertChunk(other)
	require.True(t, c.Detached())
	ix.InsertChunk(c)
	assert.Same(t, c, e.Chunk())
	checkMembership(t, ix)
}

func TestLocalPlayer(t *testing.T) {
	var viewed []*Entity
	ix := NewIndex(defs, WithLocalPlayer(42), WithViewHook(func(p *Entity) { viewed = append(viewed, p) }))

	ix.AddEntity(cow(1, 0, 0))
	assert.Empty(t, viewed)

	player := cow(42, 3, 3)
	ix.AddEntity(player)
	require.Len(t, viewed, 1)
	assert.Same(t, player, viewed[0])

	got, ok := ix.LocalPlayer()
	require.True(t, ok)
	assert.Same(t, player, got)

	ix.RemoveEntity(player)
	assert.Equal(t, NoLocalPlayer, ix.LocalPlayerID())
	_, ok = ix.LocalPlayer()
	assert.False(t, ok)

	// Удаление другой сущности не трогает ID игрока
	ix.SetLocalPlayer(42)
	assert.True(t, ix.RemoveEntityByID(1))
	assert.Equal(t, int64(42), ix.LocalPlayerID())
}

type recordingListener struct {
	NopListener
	mu       sync.Mutex
	loaded   int
	replaced int
	unloaded int
	moved    int
	blocks   int
}

func (r *recordingListener) ChunkLoaded(_ *Chunk, replaced *Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded++
	if replaced != nil {
		r.replaced++
	}
}

func (r *recordingListener) ChunkUnloaded(*Chunk) {
	r.mu.Lock()
	r.unloaded++
	r.mu.Unlock()
}

func (r *recordingListener) EntityMoved(*Entity, *Chunk, *Chunk) {
	r.mu.Lock()
	r.moved++
	r.mu.Unlock()
}

func (r *recordingListener) BlockChanged(int32, int32, block.Block) {
	r.mu.Lock()
	r.blocks++
	r.mu.Unlock()
}

func TestListenerNotifications(t *testing.T) {
	rec := &recordingListener{}
	ix := NewIndex(defs, WithListener(Listeners{rec, NopListener{}}), WithDimension("nether"))
	assert.Equal(t, "nether", ix.Dimension())

	ix.InsertChunk(filledChunk(t, 0, 0, block.AirID))
	ix.InsertChunk(filledChunk(t, 0, 0, block.AirID))
	ix.AddEntity(cow(1, 1, 1))
	require.NoError(t, ix.SetBlock(1, 1, uint16(block.StoneID)))
	ix.UnloadChunk(0, 0)

	assert.Equal(t, 2, rec.loaded)
	assert.Equal(t, 1, rec.replaced)
	assert.Equal(t, 1, rec.unloaded)
	assert.Equal(t, 1, rec.blocks)
	assert.Equal(t, 2, rec.moved, "вход в чанк и выход при выгрузке")
}

func TestClear(t *testing.T) {
	ix := NewIndex(defs)
	for i := int32(0); i < 4; i++ {
		ix.InsertChunk(filledChunk(t, i, i, block.AirID))
		ix.AddEntity(cow(int64(i), float64(i*64), float64(i*64)))
	}
	ix.Clear()
	assert.Zero(t, ix.ChunkCount())
	assert.Zero(t, ix.EntityCount())
}

func TestConcurrentMembership(t *testing.T) {
	ix := NewIndex(defs)
	const (
		workers  = 8
		entities = 64
		steps    = 300
	)

	for cx := int32(-2); cx < 2; cx++ {
		for cy := int32(-2); cy < 2; cy++ {
			ix.InsertChunk(filledChunk(t, cx, cy, block.AirID))
		}
	}

	all := make([]*Entity, entities)
	for i := range all {
		all[i] = cow(int64(i), 0, 0)
		ix.AddEntity(all[i])
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for s := 0; s < steps; s++ {
				e := all[rng.Intn(entities)]
				e.SetPosition(vec.Vec2Float{X: rng.Float64()*320 - 160, Y: rng.Float64()*320 - 160})
				ix.MoveEntity(e)
			}
		}(int64(w))
	}

	// Параллельно заменяем и выгружаем чанки
	wg.Add(1)
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(99))
		for s := 0; s < 100; s++ {
			cx, cy := int32(rng.Intn(4)-2), int32(rng.Intn(4)-2)
			if rng.Intn(3) == 0 {
				ix.UnloadChunk(cx, cy)
			} else {
				ix.InsertChunk(filledChunk(t, cx, cy, block.AirID))
			}
		}
	}()

	// Читатели перечисляют чанки и сущности
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := 0; s < 200; s++ {
			for _, c := range ix.Chunks() {
				_ = c.Entities()
			}
			_ = ix.GetBlock(int32(s), int32(-s))
		}
	}()

	wg.Wait()

	// После затихания выравниваем позиции и проверяем инвариант
	for _, e := range all {
		ix.MoveEntity(e)
	}
	checkMembership(t, ix)
}
