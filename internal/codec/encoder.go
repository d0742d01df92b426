package codec

import (
	"fmt"
	"math"

	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
)

const (
	minChunkCoord = -(1 << (coordBits - 1))
	maxChunkCoord = 1<<(coordBits-1) - 1
)

// Encoder кодирует чанк в тот же формат, который читает Decoder
type Encoder struct {
	air    block.Block
	idMode IDMode
}

// NewEncoder создаёт кодировщик; air подставляется в пустые клетки
func NewEncoder(air block.Block, mode IDMode) *Encoder {
	return &Encoder{air: air, idMode: mode}
}

// Encode кодирует чанк вместе с его сущностями
func (e *Encoder) Encode(c *world.Chunk) ([]byte, error) {
	if c.X < minChunkCoord || c.X > maxChunkCoord || c.Y < minChunkCoord || c.Y > maxChunkCoord {
		return nil, invariantf("координаты чанка (%d,%d) вне 26-битного диапазона", c.X, c.Y)
	}

	palette, indices := e.buildPalette(c)
	pl := len(palette)

	w := protocol.NewWriter(8 + 2 + world.BiomeCount + 2*pl + PackedSize(pl))
	lenBits := uint32(pl - 1)
	w.Uint32(uint32(c.X)&(1<<coordBits-1) | (lenBits%64)<<coordBits)
	w.Uint32(uint32(c.Y)&(1<<coordBits-1) | (lenBits/64)<<coordBits)

	if err := e.encodeEntities(w, c); err != nil {
		return nil, fmt.Errorf("сущности чанка (%d,%d): %w", c.X, c.Y, err)
	}

	w.Raw(c.Biomes[:])
	for _, b := range palette {
		w.Uint16(uint16(b.ID()))
	}
	w.Raw(packIndices(indices, pl))
	return w.Bytes(), nil
}

// buildPalette сохраняет палитру чанка, если она без повторов и вместе с клетками
// укладывается в предел, иначе строит новую в порядке первого появления
func (e *Encoder) buildPalette(c *world.Chunk) ([]block.Block, *[world.TileCount]uint16) {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	if palette, indices, ok := e.indexTiles(c, c.Palette); ok {
		return palette, indices
	}
	palette, indices, _ := e.indexTiles(c, nil)
	return palette, indices
}

func (e *Encoder) indexTiles(c *world.Chunk, seed []block.Block) ([]block.Block, *[world.TileCount]uint16, bool) {
	var indices [world.TileCount]uint16
	pos := make(map[block.ID]uint16, len(seed))
	palette := make([]block.Block, 0, len(seed))
	for _, b := range seed {
		if _, dup := pos[b.ID()]; dup {
			return nil, nil, false
		}
		pos[b.ID()] = uint16(len(palette))
		palette = append(palette, b)
	}

	for i, b := range c.Tiles {
		if b == nil {
			b = e.air
		}
		idx, ok := pos[b.ID()]
		if !ok {
			idx = uint16(len(palette))
			pos[b.ID()] = idx
			palette = append(palette, b)
		}
		indices[i] = idx
	}
	if len(palette) > world.MaxPaletteLength {
		return nil, nil, false
	}
	return palette, &indices, true
}

func (e *Encoder) encodeEntities(w *protocol.Writer, c *world.Chunk) error {
	origin := c.Origin()
	for _, ent := range c.Entities() {
		s := ent.Snapshot()
		if ent.Def == nil || ent.Def.ID == 0 {
			return invariantf("сущность %d без типа", s.ID)
		}

		offX := math.Round((s.Position.X - float64(origin.X)) * entityOffsetScale)
		offY := math.Round((s.Position.Y - float64(origin.Y)) * entityOffsetScale)
		if offX < math.MinInt16 || offX > math.MaxInt16 || offY < math.MinInt16 || offY > math.MaxInt16 {
			return invariantf("сущность %d: смещение (%.0f,%.0f) не помещается в int16", s.ID, offX, offY)
		}

		low, high, err := e.idMode.Split(s.ID)
		if err != nil {
			return err
		}

		w.Uint16(uint16(ent.Def.ID))
		w.Int16(int16(offX))
		w.Int16(int16(offY))
		w.Uint32(low)
		w.Uint16(high)
		if err := w.String(s.Name); err != nil {
			return err
		}
		w.Int16(s.State)
		w.Float32(float32(s.Velocity.X))
		w.Float32(float32(s.Velocity.Y))
		w.Float32(s.Facing)
		w.Float64(s.Age)
	}
	w.Uint16(0)
	return nil
}
