package codec

import (
	"fmt"

	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/world/item"
)

// ItemDefinitions разрешает проводные ID предметов
type ItemDefinitions interface {
	Item(id uint16) (*item.Definition, error)
}

// DecodeItem читает стопку предметов: байт выравнивания, количество, ID и имя
func DecodeItem(cur *protocol.Cursor, defs ItemDefinitions) (*item.Stack, error) {
	if err := cur.Skip(1); err != nil {
		return nil, fmt.Errorf("предмет: %w", err)
	}
	count, err := cur.Byte()
	if err != nil {
		return nil, fmt.Errorf("количество предметов: %w", err)
	}
	id, err := cur.Uint16()
	if err != nil {
		return nil, fmt.Errorf("ID предмета: %w", err)
	}
	def, err := defs.Item(id)
	if err != nil {
		return nil, err
	}
	name, err := cur.String()
	if err != nil {
		return nil, fmt.Errorf("имя предмета %d: %w", id, err)
	}
	return &item.Stack{Def: def, Count: count, Name: name}, nil
}

// EncodeItem записывает стопку предметов в формате DecodeItem
func EncodeItem(w *protocol.Writer, s *item.Stack) error {
	w.Byte(0)
	w.Byte(s.Count)
	w.Uint16(uint16(s.Def.ID))
	return w.String(s.Name)
}
