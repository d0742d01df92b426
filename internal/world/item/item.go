package item

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/tileworld/internal/world/block"
)

// ID представляет идентификатор типа предмета на проводе
type ID uint16

// Tool определяет класс инструмента
type Tool uint8

const (
	ToolNone Tool = iota
	ToolPickaxe
	ToolAxe
	ToolShovel
	ToolSword
)

// Definition описывает тип предмета
type Definition struct {
	ID   ID     `yaml:"id" toml:"id" json:"id"`
	Name string `yaml:"name" toml:"name" json:"name"`
	// Places - блок, который ставит предмет; AirID если предмет не ставится
	Places block.ID `yaml:"places" toml:"places" json:"places"`
	Tool   Tool     `yaml:"tool" toml:"tool" json:"tool"`
	// Speed - множитель скорости добычи для инструментов
	Speed    int `yaml:"speed" toml:"speed" json:"speed"`
	MaxStack int `yaml:"max_stack" toml:"max_stack" json:"max_stack"`
}

// Stack - стопка предметов, как она приходит в пакете
type Stack struct {
	Def   *Definition
	Count uint8
	Name  string
}

// Builtin возвращает встроенные типы предметов: по предмету на каждый ставящийся блок и инструменты
func Builtin() []*Definition {
	return []*Definition{
		{ID: 1, Name: "Stone", Places: block.StoneID, MaxStack: 64},
		{ID: 2, Name: "Grass", Places: block.GrassID, MaxStack: 64},
		{ID: 3, Name: "Dirt", Places: block.DirtID, MaxStack: 64},
		{ID: 4, Name: "Sand", Places: block.SandID, MaxStack: 64},
		{ID: 5, Name: "Snow", Places: block.SnowID, MaxStack: 64},
		{ID: 6, Name: "Log", Places: block.LogID, MaxStack: 64},
		{ID: 7, Name: "Planks", Places: block.PlanksID, MaxStack: 64},
		{ID: 20, Name: "WoodenPickaxe", Tool: ToolPickaxe, Speed: 2, MaxStack: 1},
		{ID: 21, Name: "StonePickaxe", Tool: ToolPickaxe, Speed: 4, MaxStack: 1},
		{ID: 22, Name: "WoodenAxe", Tool: ToolAxe, Speed: 2, MaxStack: 1},
		{ID: 23, Name: "WoodenShovel", Tool: ToolShovel, Speed: 2, MaxStack: 1},
		{ID: 24, Name: "WoodenSword", Tool: ToolSword, Speed: 1, MaxStack: 1},
	}
}

// Registry - таблица типов предметов
type Registry struct {
	mu     sync.RWMutex
	byID   map[ID]*Definition
	byName map[string]*Definition
}

// NewRegistry создает пустую таблицу
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Definition), byName: make(map[string]*Definition)}
}

// NewBuiltinRegistry создает таблицу со встроенными предметами
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtin() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register добавляет тип предмета
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("nil определение предмета")
	}
	name := strings.ToLower(def.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("предмет %d уже зарегистрирован", def.ID)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("предмет %q уже зарегистрирован", def.Name)
	}
	r.byID[def.ID] = def
	r.byName[name] = def
	return nil
}

// Get возвращает тип предмета по ID
func (r *Registry) Get(id ID) (*Definition, bool) {
	r.mu.RLock()
	def, ok := r.byID[id]
	r.mu.RUnlock()
	return def, ok
}

// ByName ищет тип предмета по имени без учёта регистра
func (r *Registry) ByName(name string) (*Definition, bool) {
	r.mu.RLock()
	def, ok := r.byName[strings.ToLower(name)]
	r.mu.RUnlock()
	return def, ok
}

// All возвращает все типы по возрастанию ID
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	out := make([]*Definition, 0, len(r.byID))
	for _, def := range r.byID {
		out = append(out, def)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len возвращает число типов
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
