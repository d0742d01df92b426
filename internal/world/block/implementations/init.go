package implementations

import (
	"fmt"

	"github.com/annel0/tileworld/internal/world/block"
)

// All возвращает новые экземпляры всех встроенных блоков
func All() []block.Block {
	return []block.Block{
		// Базовые блоки
		NewAir(),
		NewStone(),
		NewGrass(),
		NewWater(),
		NewSand(),
		NewDirt(),
		NewLava(),
		NewSnow(),
		NewIce(),
		NewLog(),
		NewLeaves(),
		NewPlanks(),
		NewBedrock(),
	}
}

// RegisterAll добавляет встроенные блоки в таблицу
func RegisterAll(r *block.Registry) error {
	for _, b := range All() {
		if err := r.Register(b); err != nil {
			return fmt.Errorf("регистрация блока %s: %w", b.Name(), err)
		}
	}
	return nil
}

// Регистрируем все типы блоков при импорте пакета
func init() {
	if err := RegisterAll(block.DefaultRegistry()); err != nil {
		panic(err)
	}
}
