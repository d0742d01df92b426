package world

import (
	"sync"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/block"
)

const (
	// TileCount - число клеток в чанке 64x64
	TileCount = vec.ChunkSize * vec.ChunkSize
	// BiomeCount - число байт биомов в пакете чанка
	BiomeCount = 10
	// MaxPaletteLength - предельная длина палитры: не больше числа клеток
	MaxPaletteLength = TileCount
)

// Chunk представляет участок мира размером 64x64 блоков
type Chunk struct {
	// X, Y - координаты чанка (в чанках, 26-битный знаковый диапазон)
	X, Y int32

	// Palette - палитра из пакета в порядке передачи. После SetBlock может
	// не совпадать с набором блоков в Tiles.
	Palette []block.Block
	Biomes  [BiomeCount]byte

	// Tiles индексируются x | y<<6. После публикации в Index доступ только под Mu.
	Tiles [TileCount]block.Block
	Mu    sync.RWMutex

	entMu    sync.Mutex
	entities []*Entity
	detached bool
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(x, y int32) *Chunk {
	return &Chunk{X: x, Y: y}
}

// Coords возвращает координаты чанка
func (c *Chunk) Coords() vec.Vec2 {
	return vec.Vec2{X: c.X, Y: c.Y}
}

// Key возвращает ключ чанка в индексе
func (c *Chunk) Key() int64 {
	return vec.ChunkKeyOf(c.X, c.Y)
}

// Origin возвращает мировые координаты левого нижнего блока
func (c *Chunk) Origin() vec.Vec2 {
	return c.Coords().ChunkOrigin()
}

// Tile возвращает блок по локальным координатам
func (c *Chunk) Tile(lx, ly int32) block.Block {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Tiles[vec.TileIndex(lx, ly)]
}

// SetTile заменяет блок по локальным координатам
func (c *Chunk) SetTile(lx, ly int32, b block.Block) {
	c.Mu.Lock()
	c.Tiles[vec.TileIndex(lx, ly)] = b
	c.Mu.Unlock()
}

// ForEachTile обходит клетки в порядке индекса x | y<<6 под блокировкой чтения
func (c *Chunk) ForEachTile(fn func(lx, ly int32, b block.Block)) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	for i, b := range c.Tiles {
		fn(int32(i&vec.ChunkMask), int32(i>>vec.ChunkShift), b)
	}
}

// FillNil заменяет пустые клетки на fill и возвращает их число
func (c *Chunk) FillNil(fill block.Block) int {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	n := 0
	for i := range c.Tiles {
		if c.Tiles[i] == nil {
			c.Tiles[i] = fill
			n++
		}
	}
	return n
}

// Adopt добавляет сущность в ещё не опубликованный чанк.
// Используется декодером: сущность получает ссылку на чанк до регистрации в Index.
func (c *Chunk) Adopt(e *Entity) {
	e.mu.Lock()
	e.chunk = c
	e.mu.Unlock()

	c.entMu.Lock()
	c.entities = append(c.entities, e)
	c.entMu.Unlock()
}

// Entities возвращает копию списка сущностей чанка
func (c *Chunk) Entities() []*Entity {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	out := make([]*Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// EntityCount возвращает число сущностей в чанке
func (c *Chunk) EntityCount() int {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	return len(c.entities)
}

// Detached сообщает, что чанк заменён или выгружен
func (c *Chunk) Detached() bool {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	return c.detached
}

// attach добавляет сущность. Возвращает false для отсоединённого чанка.
func (c *Chunk) attach(e *Entity) bool {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	if c.detached {
		return false
	}
	for _, x := range c.entities {
		if x == e {
			return true
		}
	}
	c.entities = append(c.entities, e)
	return true
}

// removeEntity убирает сущность из списка
func (c *Chunk) removeEntity(e *Entity) {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	for i, x := range c.entities {
		if x == e {
			last := len(c.entities) - 1
			c.entities[i] = c.entities[last]
			c.entities[last] = nil
			c.entities = c.entities[:last]
			return
		}
	}
}

// reattach снимает отметку отсоединения перед повторной публикацией чанка
func (c *Chunk) reattach() {
	c.entMu.Lock()
	c.detached = false
	c.entMu.Unlock()
}

// detach помечает чанк отсоединённым и возвращает его бывших жителей
func (c *Chunk) detach() []*Entity {
	c.entMu.Lock()
	defer c.entMu.Unlock()
	c.detached = true
	out := c.entities
	c.entities = nil
	return out
}
