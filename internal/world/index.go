package world

import (
	"sync/atomic"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/block"
)

// NoLocalPlayer - значение ID локального игрока, пока он не назначен
const NoLocalPlayer int64 = -1

// BlockSource разрешает проводные ID блоков в интернированные экземпляры
type BlockSource interface {
	Air() block.Block
	Block(id uint16) (block.Block, error)
}

// ViewHook вызывается, когда в индекс добавлен локальный игрок (центрирование камеры)
type ViewHook func(player *Entity)

// Option настраивает Index
type Option func(*Index)

// WithListener подключает слушателя изменений
func WithListener(l Listener) Option {
	return func(ix *Index) { ix.listener = l }
}

// WithViewHook задаёт обработчик появления локального игрока
func WithViewHook(h ViewHook) Option {
	return func(ix *Index) { ix.viewHook = h }
}

// WithDimension задаёт имя измерения
func WithDimension(name string) Option {
	return func(ix *Index) { ix.dimension = name }
}

// WithLocalPlayer задаёт ID локального игрока
func WithLocalPlayer(id int64) Option {
	return func(ix *Index) { ix.localPlayer.Store(id) }
}

// Index - авторитетный индекс мира: чанки по ключу и сущности по ID.
// Каждая сущность из карты сущностей состоит ровно в одном списке чанка,
// содержащего её округлённую вниз позицию, либо ни в одном, если этот чанк не загружен.
// Все методы безопасны для конкурентного вызова.
type Index struct {
	blocks   BlockSource
	chunks   *shardedMap[*Chunk]
	entities *shardedMap[*Entity]

	localPlayer atomic.Int64
	dimension   string
	viewHook    ViewHook
	listener    Listener
	logger      *logging.Logger
}

// NewIndex создаёт пустой индекс
func NewIndex(blocks BlockSource, opts ...Option) *Index {
	ix := &Index{
		blocks:    blocks,
		chunks:    newShardedMap[*Chunk](),
		entities:  newShardedMap[*Entity](),
		dimension: "overworld",
		listener:  NopListener{},
		logger:    logging.GetWorldLogger(),
	}
	ix.localPlayer.Store(NoLocalPlayer)
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Dimension возвращает имя измерения
func (ix *Index) Dimension() string { return ix.dimension }

// SetLocalPlayer назначает ID локального игрока
func (ix *Index) SetLocalPlayer(id int64) { ix.localPlayer.Store(id) }

// LocalPlayerID возвращает ID локального игрока или NoLocalPlayer
func (ix *Index) LocalPlayerID() int64 { return ix.localPlayer.Load() }

// LocalPlayer возвращает сущность локального игрока, если она в индексе
func (ix *Index) LocalPlayer() (*Entity, bool) {
	id := ix.localPlayer.Load()
	if id == NoLocalPlayer {
		return nil, false
	}
	return ix.entities.Load(id)
}

// Chunk возвращает чанк по координатам чанка
func (ix *Index) Chunk(cx, cy int32) (*Chunk, bool) {
	return ix.chunks.Load(vec.ChunkKeyOf(cx, cy))
}

// ChunkAt возвращает чанк, содержащий блок (x, y)
func (ix *Index) ChunkAt(x, y int32) (*Chunk, bool) {
	return ix.chunks.Load(vec.ChunkKey(x, y))
}

// Entity возвращает сущность по ID
func (ix *Index) Entity(id int64) (*Entity, bool) {
	return ix.entities.Load(id)
}

// ChunkCount возвращает число загруженных чанков
func (ix *Index) ChunkCount() int { return ix.chunks.Len() }

// EntityCount возвращает число сущностей
func (ix *Index) EntityCount() int { return ix.entities.Len() }

// Chunks возвращает снимок загруженных чанков
func (ix *Index) Chunks() []*Chunk { return ix.chunks.Values() }

// Entities возвращает снимок всех сущностей
func (ix *Index) Entities() []*Entity { return ix.entities.Values() }

// RangeChunks обходит загруженные чанки; false из fn прекращает обход
func (ix *Index) RangeChunks(fn func(c *Chunk) bool) {
	ix.chunks.Range(func(_ int64, c *Chunk) bool { return fn(c) })
}

// GetBlock возвращает блок по мировым координатам; воздух, если чанк не загружен
func (ix *Index) GetBlock(x, y int32) block.Block {
	c, ok := ix.ChunkAt(x, y)
	if !ok {
		return ix.blocks.Air()
	}
	b := c.Tile(x, y)
	if b == nil {
		return ix.blocks.Air()
	}
	return b
}

// SetBlock ставит блок по мировым координатам.
// Для незагруженного чанка ничего не делает; ошибка только для неизвестного ID.
func (ix *Index) SetBlock(x, y int32, id uint16) error {
	c, ok := ix.ChunkAt(x, y)
	if !ok {
		return nil
	}
	b, err := ix.blocks.Block(id)
	if err != nil {
		return err
	}
	c.SetTile(x, y, b)
	ix.listener.BlockChanged(x, y, b)
	return nil
}

// InsertChunk публикует готовый чанк, заменяя прежний по тем же координатам.
// Сначала чанк становится видимым, затем регистрируются его сущности
// и подхватываются бесхозные сущности в его границах, и только потом
// жители заменённого чанка перераспределяются по позициям.
// Ранее выгруженный или заменённый экземпляр снова принимает сущности.
func (ix *Index) InsertChunk(c *Chunk) {
	c.reattach()
	old, replaced := ix.chunks.Swap(c.Key(), c)

	for _, e := range c.Entities() {
		ix.AddEntity(e)
	}

	// Сущности, ждавшие загрузки этого чанка. Обход всей карты сущностей:
	// пакет чанка стоит O(число сущностей)
	key := c.Key()
	ix.entities.Range(func(_ int64, e *Entity) bool {
		if e.Chunk() == nil && e.Position().Floor().Key() == key {
			ix.MoveEntity(e)
		}
		return true
	})

	if replaced && old != c {
		for _, e := range old.detach() {
			ix.MoveEntity(e)
		}
		ix.listener.ChunkLoaded(c, old)
		ix.logger.Debug("🔄 Чанк (%d,%d) заменён", c.X, c.Y)
		return
	}
	ix.listener.ChunkLoaded(c, nil)
}

// UnloadChunk выгружает чанк по координатам чанка.
// Его сущности остаются в индексе без чанка.
func (ix *Index) UnloadChunk(cx, cy int32) bool {
	c, ok := ix.chunks.LoadAndDelete(vec.ChunkKeyOf(cx, cy))
	if !ok {
		return false
	}
	for _, e := range c.detach() {
		ix.MoveEntity(e)
	}
	ix.listener.ChunkUnloaded(c)
	return true
}

// AddEntity добавляет или заменяет сущность по ID и вычисляет её чанк
func (ix *Index) AddEntity(e *Entity) {
	old, loaded := ix.entities.Swap(e.ID, e)
	if loaded && old != e {
		ix.release(old)
		ix.listener.EntityRemoved(old)
	}

	ix.MoveEntity(e)
	if !loaded || old != e {
		ix.listener.EntityAdded(e)
	}

	if e.ID == ix.localPlayer.Load() && ix.viewHook != nil {
		ix.viewHook(e)
	}
}

// RemoveEntity удаляет сущность из индекса и из её чанка.
// Удаление локального игрока сбрасывает его ID.
func (ix *Index) RemoveEntity(e *Entity) bool {
	if !ix.entities.CompareAndDelete(e.ID, e) {
		return false
	}
	ix.release(e)
	ix.localPlayer.CompareAndSwap(e.ID, NoLocalPlayer)
	ix.listener.EntityRemoved(e)
	return true
}

// RemoveEntityByID удаляет сущность по ID
func (ix *Index) RemoveEntityByID(id int64) bool {
	e, ok := ix.entities.Load(id)
	if !ok {
		return false
	}
	return ix.RemoveEntity(e)
}

// MoveEntity пересчитывает чанк сущности по её позиции.
// Вызывается после любого изменения позиции.
func (ix *Index) MoveEntity(e *Entity) {
	for {
		e.mu.Lock()

		// Сущность, которой уже нет в индексе, не должна появляться в чанках
		if cur, ok := ix.entities.Load(e.ID); !ok || cur != e {
			if e.chunk != nil {
				e.chunk.removeEntity(e)
				e.chunk = nil
			}
			e.mu.Unlock()
			return
		}

		p := e.position.Floor()
		target, _ := ix.ChunkAt(p.X, p.Y)
		from := e.chunk

		if target == from && (from == nil || target.attach(e)) {
			e.mu.Unlock()
			return
		}

		if from != nil {
			from.removeEntity(e)
		}
		if target != nil && !target.attach(e) {
			// Чанк заменили между поиском и добавлением: повторяем с актуальной картой
			e.chunk = nil
			e.mu.Unlock()
			continue
		}
		e.chunk = target
		e.mu.Unlock()

		ix.listener.EntityMoved(e, from, target)
		return
	}
}

// release отвязывает сущность от чанка
func (ix *Index) release(e *Entity) {
	e.mu.Lock()
	if e.chunk != nil {
		e.chunk.removeEntity(e)
		e.chunk = nil
	}
	e.mu.Unlock()
}

// Clear выгружает все чанки и удаляет все сущности
func (ix *Index) Clear() {
	ix.chunks.Range(func(_ int64, c *Chunk) bool {
		ix.UnloadChunk(c.X, c.Y)
		return true
	})
	ix.entities.Range(func(_ int64, e *Entity) bool {
		ix.RemoveEntity(e)
		return true
	})
}
