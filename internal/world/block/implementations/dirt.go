package implementations

import "github.com/annel0/tileworld/internal/world/block"

// Dirt реализует блок земли
type Dirt struct{ block.Base }

// NewDirt создает блок земли
func NewDirt() *Dirt {
	return &Dirt{Base: block.Base{BlockID: block.DirtID, BlockName: "Dirt", Tex: block.Texture{Col: 5}}}
}

func (b *Dirt) BreakTime() float32 { return 0.5 }

// Sand реализует блок песка
type Sand struct{ block.Base }

// NewSand создает блок песка
func NewSand() *Sand {
	return &Sand{Base: block.Base{BlockID: block.SandID, BlockName: "Sand", Tex: block.Texture{Col: 4}}}
}

func (b *Sand) BreakTime() float32 { return 0.5 }
