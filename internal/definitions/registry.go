// Package definitions собирает таблицы блоков, сущностей и предметов,
// по которым декодер чанков превращает проводные ID в типы.
package definitions

import (
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/block/implementations"
	"github.com/annel0/tileworld/internal/world/entity"
	"github.com/annel0/tileworld/internal/world/item"
)

// ErrUnknownID возвращается, когда проводной ID не найден в таблице
var ErrUnknownID = errors.New("unknown definition id")

// Kind - вид таблицы, в которой не нашёлся ID
type Kind string

const (
	KindBlock  Kind = "block"
	KindEntity Kind = "entity"
	KindItem   Kind = "item"
)

// UnknownIDError уточняет ErrUnknownID видом таблицы и значением ID
type UnknownIDError struct {
	Kind Kind
	ID   uint16
}

func (e *UnknownIDError) Error() string {
	return fmt.Sprintf("%v: %s %d", ErrUnknownID, e.Kind, e.ID)
}

func (e *UnknownIDError) Unwrap() error { return ErrUnknownID }

// Registry - неизменяемая после построения сводка всех таблиц
type Registry struct {
	blocks   *block.Registry
	entities *entity.Registry
	items    *item.Registry
	air      block.Block
}

// New собирает сводку из готовых таблиц. Блок воздуха обязателен.
func New(blocks *block.Registry, entities *entity.Registry, items *item.Registry) (*Registry, error) {
	air := blocks.Air()
	if air == nil {
		return nil, fmt.Errorf("в таблице блоков нет воздуха (ID %d)", block.AirID)
	}
	return &Registry{blocks: blocks, entities: entities, items: items, air: air}, nil
}

// Default возвращает сводку встроенных определений
func Default() *Registry {
	r, err := New(block.DefaultRegistry(), entity.NewBuiltinRegistry(), item.NewBuiltinRegistry())
	if err != nil {
		panic(err)
	}
	return r
}

// Builtin создает новые таблицы со встроенными определениями, которые можно дополнять
func Builtin() (*block.Registry, *entity.Registry, *item.Registry) {
	blocks := block.NewRegistry()
	if err := implementations.RegisterAll(blocks); err != nil {
		panic(err)
	}
	return blocks, entity.NewBuiltinRegistry(), item.NewBuiltinRegistry()
}

// Block возвращает интернированный экземпляр блока по ID
func (r *Registry) Block(id uint16) (block.Block, error) {
	b, ok := r.blocks.Get(block.ID(id))
	if !ok {
		return nil, &UnknownIDError{Kind: KindBlock, ID: id}
	}
	return b, nil
}

// Entity возвращает тип сущности по ID
func (r *Registry) Entity(id uint16) (*entity.Definition, error) {
	def, ok := r.entities.Get(entity.TypeID(id))
	if !ok {
		return nil, &UnknownIDError{Kind: KindEntity, ID: id}
	}
	return def, nil
}

// Item возвращает тип предмета по ID
func (r *Registry) Item(id uint16) (*item.Definition, error) {
	def, ok := r.items.Get(item.ID(id))
	if !ok {
		return nil, &UnknownIDError{Kind: KindItem, ID: id}
	}
	return def, nil
}

// Air возвращает блок воздуха
func (r *Registry) Air() block.Block { return r.air }

// Blocks возвращает таблицу блоков
func (r *Registry) Blocks() *block.Registry { return r.blocks }

// Entities возвращает таблицу сущностей
func (r *Registry) Entities() *entity.Registry { return r.entities }

// Items возвращает таблицу предметов
func (r *Registry) Items() *item.Registry { return r.items }
