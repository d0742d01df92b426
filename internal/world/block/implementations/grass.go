package implementations

import "github.com/annel0/tileworld/internal/world/block"

// Grass реализует блок травы
type Grass struct{ block.Base }

// NewGrass создает блок травы
func NewGrass() *Grass {
	return &Grass{Base: block.Base{BlockID: block.GrassID, BlockName: "Grass", Tex: block.Texture{Col: 2}}}
}

func (b *Grass) BreakTime() float32 { return 0.6 }

// Snow реализует снежный блок
type Snow struct{ block.Base }

// NewSnow создает снежный блок
func NewSnow() *Snow {
	return &Snow{Base: block.Base{BlockID: block.SnowID, BlockName: "Snow", Tex: block.Texture{Col: 2, Row: 4}}}
}

// BreakTime возвращает время разрушения снега
func (b *Snow) BreakTime() float32 { return 0.75 }
