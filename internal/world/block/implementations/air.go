package implementations

import "github.com/annel0/tileworld/internal/world/block"

// Air реализует пустой блок (воздух).
// Им заполняются клетки чанка, которые пакет не задал.
type Air struct{ block.Base }

// NewAir создает блок воздуха
func NewAir() *Air {
	return &Air{Base: block.Base{BlockID: block.AirID, BlockName: "Air"}}
}

// Solid возвращает false: сквозь воздух можно пройти
func (b *Air) Solid() bool { return false }
