// Package codec декодирует и кодирует компактное бинарное представление чанка.
package codec

import (
	"fmt"

	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/entity"
)

// Definitions разрешает проводные ID в определения
type Definitions interface {
	Air() block.Block
	Block(id uint16) (block.Block, error)
	Entity(id uint16) (*entity.Definition, error)
}

const (
	// coordBits - значимые биты координаты чанка, остальные 6 несут длину палитры
	coordBits = 26
	// entityOffsetScale - дробная точность смещения сущности внутри чанка
	entityOffsetScale = 1024
)

// Decoder превращает пакеты чанков в готовые к публикации чанки.
// Декодирование ничего не публикует: регистрацией занимается world.Index.InsertChunk.
type Decoder struct {
	defs   Definitions
	idMode IDMode
}

// NewDecoder создаёт декодер
func NewDecoder(defs Definitions, mode IDMode) *Decoder {
	return &Decoder{defs: defs, idMode: mode}
}

// IDMode возвращает режим сборки ID сущностей
func (d *Decoder) IDMode() IDMode { return d.idMode }

// Decode декодирует тело пакета чанка. Байты после сетки игнорируются.
// При любой ошибке чанк не возвращается.
func (d *Decoder) Decode(payload []byte) (*world.Chunk, error) {
	return d.DecodeCursor(protocol.NewCursor(payload))
}

// DecodeCursor декодирует чанк с текущей позиции курсора и оставляет курсор сразу после сетки
func (d *Decoder) DecodeCursor(cur *protocol.Cursor) (*world.Chunk, error) {
	xRaw, err := cur.Int32()
	if err != nil {
		return nil, fmt.Errorf("координата X чанка: %w", err)
	}
	yRaw, err := cur.Int32()
	if err != nil {
		return nil, fmt.Errorf("координата Y чанка: %w", err)
	}

	// Старшие 6 бит каждой координаты несут длину палитры
	c := world.NewChunk(xRaw<<(32-coordBits)>>(32-coordBits), yRaw<<(32-coordBits)>>(32-coordBits))
	paletteLength := int(uint32(xRaw)>>coordBits) + int(uint32(yRaw)>>coordBits)*64 + 1
	if paletteLength < 1 || paletteLength > world.MaxPaletteLength {
		return nil, invariantf("длина палитры %d вне диапазона 1..%d", paletteLength, world.MaxPaletteLength)
	}

	if err := d.decodeEntities(cur, c); err != nil {
		return nil, fmt.Errorf("сущности чанка (%d,%d): %w", c.X, c.Y, err)
	}

	biomes, err := cur.Bytes(world.BiomeCount)
	if err != nil {
		return nil, fmt.Errorf("биомы чанка (%d,%d): %w", c.X, c.Y, err)
	}
	copy(c.Biomes[:], biomes)

	c.Palette = make([]block.Block, paletteLength)
	for i := range c.Palette {
		id, err := cur.Uint16()
		if err != nil {
			return nil, fmt.Errorf("палитра чанка (%d,%d), элемент %d: %w", c.X, c.Y, i, err)
		}
		if c.Palette[i], err = d.defs.Block(id); err != nil {
			return nil, fmt.Errorf("палитра чанка (%d,%d), элемент %d: %w", c.X, c.Y, i, err)
		}
	}

	packed, err := cur.Bytes(PackedSize(paletteLength))
	if err != nil {
		return nil, fmt.Errorf("сетка чанка (%d,%d), %d бит на клетку: %w", c.X, c.Y, BitsPerTile(paletteLength), err)
	}

	var indices [world.TileCount]uint16
	unpackIndices(packed, paletteLength, &indices)
	for i, idx := range indices {
		if int(idx) >= paletteLength {
			return nil, invariantf("чанк (%d,%d): клетка %d ссылается на индекс %d при палитре %d",
				c.X, c.Y, i, idx, paletteLength)
		}
		c.Tiles[i] = c.Palette[idx]
	}
	c.FillNil(d.defs.Air())

	return c, nil
}

// decodeEntities читает список сущностей до терминатора 0
func (d *Decoder) decodeEntities(cur *protocol.Cursor, c *world.Chunk) error {
	origin := c.Origin()
	for {
		typeID, err := cur.Uint16()
		if err != nil {
			return err
		}
		if typeID == 0 {
			return nil
		}

		def, err := d.defs.Entity(typeID)
		if err != nil {
			return err
		}

		e, err := d.decodeEntity(cur, def, origin)
		if err != nil {
			return fmt.Errorf("сущность типа %s: %w", def.Name, err)
		}
		c.Adopt(e)
	}
}

func (d *Decoder) decodeEntity(cur *protocol.Cursor, def *entity.Definition, origin vec.Vec2) (*world.Entity, error) {
	offX, err := cur.Int16()
	if err != nil {
		return nil, err
	}
	offY, err := cur.Int16()
	if err != nil {
		return nil, err
	}
	idLow, err := cur.Uint32()
	if err != nil {
		return nil, err
	}
	idHigh, err := cur.Uint16()
	if err != nil {
		return nil, err
	}
	name, err := cur.String()
	if err != nil {
		return nil, err
	}
	state, err := cur.Int16()
	if err != nil {
		return nil, err
	}
	velX, err := cur.Float32()
	if err != nil {
		return nil, err
	}
	velY, err := cur.Float32()
	if err != nil {
		return nil, err
	}
	facing, err := cur.Float32()
	if err != nil {
		return nil, err
	}
	age, err := cur.Float64()
	if err != nil {
		return nil, err
	}

	pos := vec.Vec2Float{
		X: float64(offX)/entityOffsetScale + float64(origin.X),
		Y: float64(offY)/entityOffsetScale + float64(origin.Y),
	}
	e := world.NewEntity(d.idMode.Combine(idLow, idHigh), def, pos)
	e.Name = name
	e.SetState(state)
	e.SetVelocity(vec.Vec2Float{X: float64(velX), Y: float64(velY)})
	e.SetFacing(facing)
	e.SetAge(age)
	return e, nil
}
