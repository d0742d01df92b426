package world

import (
	"testing"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/block"
)

func TestChunkTiles(t *testing.T) {
	c := NewChunk(-2, 3)
	stone := mustBlock(t, block.StoneID)
	air := mustBlock(t, block.AirID)

	c.SetTile(5, 7, stone)
	if n := c.FillNil(air); n != TileCount-1 {
		t.Errorf("FillNil заполнил %d клеток, ожидалось %d", n, TileCount-1)
	}
	if got := c.Tile(5, 7); got != stone {
		t.Errorf("Tile(5,7) = %v, ожидался камень", got)
	}
	if got := c.Tiles[5|7<<6]; got != stone {
		t.Errorf("клетка хранится не по индексу x | y<<6")
	}

	if origin := c.Origin(); origin != (vec.Vec2{X: -128, Y: 192}) {
		t.Errorf("Origin = %v", origin)
	}
	if c.Key() != vec.ChunkKey(-128, 192) {
		t.Errorf("ключ чанка должен совпадать с ключом его углового блока")
	}

	visited := 0
	c.ForEachTile(func(lx, ly int32, b block.Block) {
		if int(lx)|int(ly)<<6 != visited {
			t.Fatalf("нарушен порядок обхода на %d", visited)
		}
		visited++
	})
	if visited != TileCount {
		t.Errorf("обойдено %d клеток", visited)
	}
}

func TestChunkEntityListDetach(t *testing.T) {
	c := NewChunk(0, 0)
	e := cow(1, 1, 1)
	c.Adopt(e)

	snapshot := c.Entities()
	snapshot[0] = nil
	if c.Entities()[0] != e {
		t.Errorf("Entities должен возвращать копию")
	}

	former := c.detach()
	if len(former) != 1 || !c.Detached() || c.EntityCount() != 0 {
		t.Errorf("detach должен вернуть жителей и очистить список")
	}
	if c.attach(e) {
		t.Errorf("отсоединённый чанк не принимает сущности")
	}
}
