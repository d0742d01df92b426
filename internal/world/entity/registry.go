package entity

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry - таблица типов сущностей по ID
type Registry struct {
	mu     sync.RWMutex
	byID   map[TypeID]*Definition
	byName map[string]*Definition
}

// NewRegistry создает пустую таблицу
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[TypeID]*Definition),
		byName: make(map[string]*Definition),
	}
}

// NewBuiltinRegistry создает таблицу со встроенными типами
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtin() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register добавляет тип. ID 0 зарезервирован.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.ID == 0 {
		return fmt.Errorf("недопустимое определение сущности: ID 0 зарезервирован")
	}
	name := strings.ToLower(def.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("тип сущности %d уже зарегистрирован", def.ID)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("тип сущности %q уже зарегистрирован", def.Name)
	}
	r.byID[def.ID] = def
	r.byName[name] = def
	return nil
}

// Get возвращает тип по ID
func (r *Registry) Get(id TypeID) (*Definition, bool) {
	r.mu.RLock()
	def, ok := r.byID[id]
	r.mu.RUnlock()
	return def, ok
}

// ByName ищет тип по имени без учёта регистра
func (r *Registry) ByName(name string) (*Definition, bool) {
	r.mu.RLock()
	def, ok := r.byName[strings.ToLower(name)]
	r.mu.RUnlock()
	return def, ok
}

// All возвращает все типы, отсортированные по ID
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
