package entity

import "github.com/annel0/tileworld/internal/vec"

// TypeID представляет идентификатор типа сущности на проводе.
// 0 зарезервирован как терминатор списка сущностей в пакете чанка.
type TypeID uint16

const (
	TypePlayer TypeID = iota + 1
	TypeItem
	TypeArrow

	// Животные
	TypeCow
	TypeSheep
	TypePig
	TypeChicken

	// Враждебные
	TypeZombie
	TypeSkeleton

	// Типы из таблицы определений начинаются с 100
	FirstCustomType TypeID = 100
)

// Definition описывает тип сущности: имя, размер хитбокса и физику
type Definition struct {
	ID   TypeID `yaml:"id" toml:"id" json:"id"`
	Name string `yaml:"name" toml:"name" json:"name"`
	// Size - ширина и высота хитбокса в блоках
	Size vec.Vec2Float `yaml:"size" toml:"size" json:"size"`
	// Gravity - действует ли на сущность гравитация
	Gravity bool `yaml:"gravity" toml:"gravity" json:"gravity"`
	Hostile bool `yaml:"hostile" toml:"hostile" json:"hostile"`
}

// Builtin возвращает встроенные типы сущностей
func Builtin() []*Definition {
	return []*Definition{
		{ID: TypePlayer, Name: "Player", Size: vec.Vec2Float{X: 0.6, Y: 1.8}, Gravity: true},
		{ID: TypeItem, Name: "Item", Size: vec.Vec2Float{X: 0.5, Y: 0.5}, Gravity: true},
		{ID: TypeArrow, Name: "Arrow", Size: vec.Vec2Float{X: 0.5, Y: 0.1}, Gravity: true},
		{ID: TypeCow, Name: "Cow", Size: vec.Vec2Float{X: 0.9, Y: 1.3}, Gravity: true},
		{ID: TypeSheep, Name: "Sheep", Size: vec.Vec2Float{X: 0.9, Y: 1.3}, Gravity: true},
		{ID: TypePig, Name: "Pig", Size: vec.Vec2Float{X: 0.9, Y: 0.9}, Gravity: true},
		{ID: TypeChicken, Name: "Chicken", Size: vec.Vec2Float{X: 0.4, Y: 0.7}, Gravity: true},
		{ID: TypeZombie, Name: "Zombie", Size: vec.Vec2Float{X: 0.6, Y: 1.9}, Gravity: true, Hostile: true},
		{ID: TypeSkeleton, Name: "Skeleton", Size: vec.Vec2Float{X: 0.6, Y: 1.9}, Gravity: true, Hostile: true},
	}
}
