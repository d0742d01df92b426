package implementations

import "github.com/annel0/tileworld/internal/world/block"

// Water реализует блок воды: не твёрдый, по нему можно плыть вверх
type Water struct{ block.Base }

// NewWater создает блок воды
func NewWater() *Water {
	return &Water{Base: block.Base{BlockID: block.WaterID, BlockName: "Water", Tex: block.Texture{Col: 13, Row: 12}}}
}

func (b *Water) Solid() bool { return false }

func (b *Water) Climbable() bool { return true }

// Viscosity возвращает замедление в воде
func (b *Water) Viscosity() float32 { return 0.07 }

// Lava ведёт себя как вода, но гуще
type Lava struct{ Water }

// NewLava создает блок лавы
func NewLava() *Lava {
	return &Lava{Water: Water{Base: block.Base{BlockID: block.LavaID, BlockName: "Lava", Tex: block.Texture{Col: 14, Row: 12}}}}
}

// Viscosity возвращает замедление в лаве
func (b *Lava) Viscosity() float32 { return 0.5 }

// Ice реализует блок льда
type Ice struct{ block.Base }

// NewIce создает блок льда
func NewIce() *Ice {
	return &Ice{Base: block.Base{BlockID: block.IceID, BlockName: "Ice", Tex: block.Texture{Col: 8}}}
}

func (b *Ice) BreakTime() float32 { return 0.5 }
