package world

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/annel0/tileworld/internal/logging"
)

// DefaultTicksPerSecond - частота обновления мира по умолчанию
const DefaultTicksPerSecond = 20

// Updater - периодический цикл обновления мира: интегрирует движение
// сущностей и переносит их между чанками через Index.MoveEntity.
type Updater struct {
	index          *Index
	ticksPerSecond int
	tickCount      atomic.Int64
	onTick         func()
	logger         *logging.Logger
}

// NewUpdater создаёт цикл обновления для индекса
func NewUpdater(index *Index, ticksPerSecond int) *Updater {
	if ticksPerSecond <= 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	return &Updater{
		index:          index,
		ticksPerSecond: ticksPerSecond,
		logger:         logging.GetWorldLogger(),
	}
}

// TicksPerSecond возвращает частоту тиков
func (u *Updater) TicksPerSecond() int { return u.ticksPerSecond }

// TickCount возвращает число выполненных тиков
func (u *Updater) TickCount() int64 { return u.tickCount.Load() }

// SetTickHook задаёт функцию, вызываемую после каждого тика. Вызывать до Run.
func (u *Updater) SetTickHook(fn func()) { u.onTick = fn }

// Run выполняет тики до отмены контекста
func (u *Updater) Run(ctx context.Context) {
	interval := time.Second / time.Duration(u.ticksPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.logger.Info("⏱️ Цикл обновления мира запущен: %d TPS", u.ticksPerSecond)
	for {
		select {
		case <-ctx.Done():
			u.logger.Info("⏹️ Цикл обновления мира остановлен после %d тиков", u.TickCount())
			return
		case <-ticker.C:
			u.Tick(interval.Seconds())
		}
	}
}

// Tick выполняет один шаг обновления длительностью dt секунд
func (u *Updater) Tick(dt float64) {
	u.tickCount.Add(1)

	for _, e := range u.index.Entities() {
		from, to := e.integrate(dt)
		if from == to {
			continue
		}
		u.index.MoveEntity(e)
		if u.logger.Enabled(logging.TRACE) {
			u.logger.LogEntityMovement(e.ID, from.X, from.Y, to.X, to.Y)
		}
	}
	if u.onTick != nil {
		u.onTick()
	}
}
