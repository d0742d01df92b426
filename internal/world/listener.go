package world

import "github.com/annel0/tileworld/internal/world/block"

// Listener получает уведомления об изменениях индекса.
// Вызовы синхронные и идут из горутины, выполнившей изменение.
type Listener interface {
	ChunkLoaded(c *Chunk, replaced *Chunk)
	ChunkUnloaded(c *Chunk)
	BlockChanged(x, y int32, b block.Block)
	EntityAdded(e *Entity)
	EntityRemoved(e *Entity)
	// EntityMoved вызывается только при смене чанка
	EntityMoved(e *Entity, from, to *Chunk)
}

// NopListener ничего не делает; встраивается, чтобы реализовать часть методов
type NopListener struct{}

func (NopListener) ChunkLoaded(*Chunk, *Chunk) {}
func (NopListener) ChunkUnloaded(*Chunk) {}
func (NopListener) BlockChanged(int32, int32, block.Block) {}
func (NopListener) EntityAdded(*Entity) {}
func (NopListener) EntityRemoved(*Entity) {}
func (NopListener) EntityMoved(*Entity, *Chunk, *Chunk) {}

// Listeners рассылает уведомления нескольким слушателям по порядку
type Listeners []Listener

func (ls Listeners) ChunkLoaded(c *Chunk, replaced *Chunk) {
	for _, l := range ls {
		l.ChunkLoaded(c, replaced)
	}
}

func (ls Listeners) ChunkUnloaded(c *Chunk) {
	for _, l := range ls {
		l.ChunkUnloaded(c)
	}
}

func (ls Listeners) BlockChanged(x, y int32, b block.Block) {
	for _, l := range ls {
		l.BlockChanged(x, y, b)
	}
}

func (ls Listeners) EntityAdded(e *Entity) {
	for _, l := range ls {
		l.EntityAdded(e)
	}
}

func (ls Listeners) EntityRemoved(e *Entity) {
	for _, l := range ls {
		l.EntityRemoved(e)
	}
}

func (ls Listeners) EntityMoved(e *Entity, from, to *Chunk) {
	for _, l := range ls {
		l.EntityMoved(e, from, to)
	}
}
