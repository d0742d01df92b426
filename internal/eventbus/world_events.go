package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
)

// ErrClosed возвращается при публикации в закрытую шину
var ErrClosed = errors.New("event bus closed")

// Типы событий мира
const (
	EventChunkLoaded   = "ChunkLoaded"
	EventChunkUnloaded = "ChunkUnloaded"
	EventBlockChanged  = "BlockChanged"
	EventEntityAdded   = "EntityAdded"
	EventEntityRemoved = "EntityRemoved"
	EventEntityMoved   = "EntityMoved"
)

// PayloadVersion - версия схемы полезной нагрузки событий мира
const PayloadVersion = 1

// NewEnvelope создаёт событие с UUID и полезной нагрузкой structpb
func NewEnvelope(source, eventType string, priority int, fields map[string]interface{}) (*Envelope, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	payload, err := proto.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   PayloadVersion,
		Priority:  priority,
		Payload:   payload,
	}, nil
}

// DecodePayload разбирает полезную нагрузку события
func DecodePayload(ev *Envelope) (*structpb.Struct, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(ev.Payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WorldPublisher транслирует изменения индекса мира в шину событий.
// Уведомления индекса ставятся в очередь и публикуются из Run,
// поэтому медленная шина не задерживает декодирование чанков.
type WorldPublisher struct {
	world.NopListener

	bus     EventBus
	source  string
	queue   chan *Envelope
	dropped atomic.Uint64
	logger  *logging.Logger
}

// NewWorldPublisher создаёт публикатора с очередью размера buffer
func NewWorldPublisher(bus EventBus, source string, buffer int) *WorldPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &WorldPublisher{
		bus:    bus,
		source: source,
		queue:  make(chan *Envelope, buffer),
		logger: logging.GetComponentLogger("eventbus"),
	}
}

// Dropped возвращает число событий, не поместившихся в очередь
func (p *WorldPublisher) Dropped() uint64 { return p.dropped.Load() }

// Run публикует события из очереди до отмены контекста
func (p *WorldPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := p.bus.Publish(pctx, ev); err != nil {
				p.logger.Warn("⚠️ Не удалось опубликовать %s: %v", ev.EventType, err)
			}
			cancel()
		}
	}
}

func (p *WorldPublisher) enqueue(eventType string, priority int, fields map[string]interface{}) {
	ev, err := NewEnvelope(p.source, eventType, priority, fields)
	if err != nil {
		p.logger.Error("❌ Ошибка сборки события %s: %v", eventType, err)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
	}
}

func (p *WorldPublisher) ChunkLoaded(c *world.Chunk, replaced *world.Chunk) {
	p.enqueue(EventChunkLoaded, 5, map[string]interface{}{
		"x":        c.X,
		"y":        c.Y,
		"palette":  len(c.Palette),
		"entities": c.EntityCount(),
		"replaced": replaced != nil,
	})
}

func (p *WorldPublisher) ChunkUnloaded(c *world.Chunk) {
	p.enqueue(EventChunkUnloaded, 5, map[string]interface{}{"x": c.X, "y": c.Y})
}

func (p *WorldPublisher) BlockChanged(x, y int32, b block.Block) {
	p.enqueue(EventBlockChanged, 4, map[string]interface{}{
		"x":     x,
		"y":     y,
		"block": uint32(b.ID()),
		"name":  b.Name(),
	})
}

func (p *WorldPublisher) EntityAdded(e *world.Entity) {
	pos := e.Position()
	fields := map[string]interface{}{
		"id":   e.ID,
		"name": e.Name,
		"x":    pos.X,
		"y":    pos.Y,
	}
	if e.Def != nil {
		fields["type"] = e.Def.Name
	}
	p.enqueue(EventEntityAdded, 4, fields)
}

func (p *WorldPublisher) EntityRemoved(e *world.Entity) {
	p.enqueue(EventEntityRemoved, 4, map[string]interface{}{"id": e.ID})
}

func (p *WorldPublisher) EntityMoved(e *world.Entity, from, to *world.Chunk) {
	fields := map[string]interface{}{"id": e.ID}
	if from != nil {
		fields["from"] = []interface{}{from.X, from.Y}
	}
	if to != nil {
		fields["to"] = []interface{}{to.X, to.Y}
	}
	p.enqueue(EventEntityMoved, 2, fields)
}
