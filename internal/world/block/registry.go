package block

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry хранит по одному экземпляру каждого типа блока.
// Заполняется при старте, после этого используется только на чтение.
type Registry struct {
	mu     sync.RWMutex
	byID   map[ID]Block
	byName map[string]Block
}

// NewRegistry создает пустую таблицу блоков
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[ID]Block),
		byName: make(map[string]Block),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry возвращает глобальную таблицу, которую заполняют init() реализаций
func DefaultRegistry() *Registry { return defaultRegistry }

// Register добавляет блок в глобальную таблицу
func Register(b Block) error { return defaultRegistry.Register(b) }

// Get возвращает блок из глобальной таблицы
func Get(id ID) (Block, bool) { return defaultRegistry.Get(id) }

// Register добавляет блок в таблицу. Повторный ID или имя - ошибка.
func (r *Registry) Register(b Block) error {
	if b == nil {
		return fmt.Errorf("nil блок")
	}
	name := strings.ToLower(b.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.byID[b.ID()]; exists {
		return fmt.Errorf("блок с ID %d уже зарегистрирован (%s)", b.ID(), old.Name())
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("блок с именем %q уже зарегистрирован", b.Name())
	}

	r.byID[b.ID()] = b
	r.byName[name] = b
	return nil
}

// Get возвращает блок по ID
func (r *Registry) Get(id ID) (Block, bool) {
	r.mu.RLock()
	b, ok := r.byID[id]
	r.mu.RUnlock()
	return b, ok
}

// ByName ищет блок по имени без учёта регистра
func (r *Registry) ByName(name string) (Block, bool) {
	r.mu.RLock()
	b, ok := r.byName[strings.ToLower(name)]
	r.mu.RUnlock()
	return b, ok
}

// Air возвращает зарегистрированный блок воздуха или nil
func (r *Registry) Air() Block {
	b, _ := r.Get(AirID)
	return b
}

// Len возвращает число зарегистрированных блоков
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// All возвращает все блоки, отсортированные по ID
func (r *Registry) All() []Block {
	r.mu.RLock()
	out := make([]Block, 0, len(r.byID))
	for _, b := range r.byID {
		out = append(out, b)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Clone копирует таблицу, чтобы дополнить её не трогая оригинал
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, b := range r.byID {
		c.byID[id] = b
	}
	for name, b := range r.byName {
		c.byName[name] = b
	}
	return c
}
