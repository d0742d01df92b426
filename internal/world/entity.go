package world

import (
	"sync"

	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world/entity"
)

// Entity представляет сущность в мире клиента.
// Принадлежность к чанку выводится из позиции и меняется только через Index.
type Entity struct {
	ID   int64
	Def  *entity.Definition
	Name string

	mu       sync.RWMutex
	state    int16
	position vec.Vec2Float
	velocity vec.Vec2Float
	facing   float32
	age      float64
	chunk    *Chunk // не владеющая ссылка, nil если чанк не загружен
}

// NewEntity создаёт сущность в указанной позиции
func NewEntity(id int64, def *entity.Definition, pos vec.Vec2Float) *Entity {
	return &Entity{ID: id, Def: def, position: pos}
}

// EntityState - снимок изменяемых полей сущности
type EntityState struct {
	ID       int64         `json:"id"`
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	State    int16         `json:"state"`
	Position vec.Vec2Float `json:"position"`
	Velocity vec.Vec2Float `json:"velocity"`
	Facing   float32       `json:"facing"`
	Age      float64       `json:"age"`
	Chunk    *vec.Vec2     `json:"chunk,omitempty"`
}

// Snapshot возвращает согласованный снимок полей
func (e *Entity) Snapshot() EntityState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := EntityState{
		ID:       e.ID,
		Name:     e.Name,
		State:    e.state,
		Position: e.position,
		Velocity: e.velocity,
		Facing:   e.facing,
		Age:      e.age,
	}
	if e.Def != nil {
		s.Type = e.Def.Name
	}
	if e.chunk != nil {
		c := e.chunk.Coords()
		s.Chunk = &c
	}
	return s
}

// Position возвращает позицию
func (e *Entity) Position() vec.Vec2Float {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// SetPosition меняет позицию. Чанк пересчитывается только в Index.MoveEntity.
func (e *Entity) SetPosition(p vec.Vec2Float) {
	e.mu.Lock()
	e.position = p
	e.mu.Unlock()
}

// Velocity возвращает скорость
func (e *Entity) Velocity() vec.Vec2Float {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.velocity
}

// SetVelocity меняет скорость
func (e *Entity) SetVelocity(v vec.Vec2Float) {
	e.mu.Lock()
	e.velocity = v
	e.mu.Unlock()
}

// Facing возвращает направление взгляда
func (e *Entity) Facing() float32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.facing
}

// SetFacing меняет направление взгляда
func (e *Entity) SetFacing(f float32) {
	e.mu.Lock()
	e.facing = f
	e.mu.Unlock()
}

// State возвращает состояние из пакета
func (e *Entity) State() int16 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetState меняет состояние
func (e *Entity) SetState(s int16) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Age возвращает возраст в секундах
func (e *Entity) Age() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.age
}

// SetAge меняет возраст
func (e *Entity) SetAge(a float64) {
	e.mu.Lock()
	e.age = a
	e.mu.Unlock()
}

// Chunk возвращает текущий чанк или nil
func (e *Entity) Chunk() *Chunk {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chunk
}

// integrate сдвигает позицию на velocity*dt и увеличивает возраст
func (e *Entity) integrate(dt float64) (from, to vec.Vec2Float) {
	e.mu.Lock()
	defer e.mu.Unlock()
	from = e.position
	e.position = e.position.Add(e.velocity.Mul(dt))
	e.age += dt
	return from, e.position
}
