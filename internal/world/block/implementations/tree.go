package implementations

import "github.com/annel0/tileworld/internal/world/block"

// Log реализует ствол дерева
type Log struct{ block.Base }

// NewLog создает блок ствола
func NewLog() *Log {
	return &Log{Base: block.Base{BlockID: block.LogID, BlockName: "Log", Tex: block.Texture{Col: 9}}}
}

func (b *Log) BreakTime() float32 { return 2 }

// Leaves реализует листву: сквозь неё можно пройти и по ней можно лезть
type Leaves struct{ block.Base }

// NewLeaves создает блок листвы
func NewLeaves() *Leaves {
	return &Leaves{Base: block.Base{BlockID: block.LeavesID, BlockName: "Leaves", Tex: block.Texture{Col: 10}}}
}

func (b *Leaves) Solid() bool { return false }

func (b *Leaves) Climbable() bool { return true }

func (b *Leaves) BreakTime() float32 { return 0.2 }

// Planks реализует доски
type Planks struct{ block.Base }

// NewPlanks создает блок досок
func NewPlanks() *Planks {
	return &Planks{Base: block.Base{BlockID: block.PlanksID, BlockName: "Planks", Tex: block.Texture{Col: 11}}}
}

func (b *Planks) BreakTime() float32 { return 1.5 }
