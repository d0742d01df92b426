package implementations

import (
	"math"

	"github.com/annel0/tileworld/internal/world/block"
)

// Stone реализует блок камня
type Stone struct{ block.Base }

// NewStone создает блок камня
func NewStone() *Stone {
	return &Stone{Base: block.Base{BlockID: block.StoneID, BlockName: "Stone", Tex: block.Texture{Col: 1}}}
}

// BreakTime возвращает время разрушения камня
func (b *Stone) BreakTime() float32 { return 1.5 }

// Bedrock реализует неразрушимый блок основания мира
type Bedrock struct{ block.Base }

// NewBedrock создает блок основания
func NewBedrock() *Bedrock {
	return &Bedrock{Base: block.Base{BlockID: block.BedrockID, BlockName: "Bedrock", Tex: block.Texture{Col: 12}}}
}

// BreakTime возвращает +Inf: основание не ломается
func (b *Bedrock) BreakTime() float32 { return float32(math.Inf(1)) }
