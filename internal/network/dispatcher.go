package network

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/protocol"
	"github.com/annel0/tileworld/internal/world"
)

// WorldHandler применяет разобранные пакеты к миру
type WorldHandler interface {
	HandleChunk(ctx context.Context, payload []byte) (*world.Chunk, error)
	HandleChunkUnload(ctx context.Context, p protocol.ChunkUnload) error
	HandleBlockSet(ctx context.Context, p protocol.BlockSet) error
	HandleEntityMove(ctx context.Context, p protocol.EntityMove) error
	HandleEntityRemove(ctx context.Context, p protocol.EntityRemove) error
}

// Dispatcher маршрутизирует входящие пакеты по коду
type Dispatcher struct {
	handler WorldHandler
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewDispatcher создаёт диспетчер; m может быть nil
func NewDispatcher(handler WorldHandler, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		metrics: m,
		logger:  logging.GetNetworkLogger(),
	}
}

// Dispatch разбирает одно сообщение и вызывает обработчик.
// Неизвестные коды пропускаются без ошибки.
func (d *Dispatcher) Dispatch(ctx context.Context, msg []byte) error {
	packet, err := protocol.ParsePacket(msg)
	if err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.PacketReceived(packet.Code.String())
	}

	switch packet.Code {
	case protocol.PacketChunkData:
		_, err = d.handler.HandleChunk(ctx, packet.Body)
		return err

	case protocol.PacketChunkUnload:
		p, err := protocol.DecodeChunkUnload(packet.Body)
		if err != nil {
			return fmt.Errorf("%s: %w", packet.Code, err)
		}
		return d.handler.HandleChunkUnload(ctx, p)

	case protocol.PacketBlockSet:
		p, err := protocol.DecodeBlockSet(packet.Body)
		if err != nil {
			return fmt.Errorf("%s: %w", packet.Code, err)
		}
		return d.handler.HandleBlockSet(ctx, p)

	case protocol.PacketEntityMove:
		p, err := protocol.DecodeEntityMove(packet.Body)
		if err != nil {
			return fmt.Errorf("%s: %w", packet.Code, err)
		}
		return d.handler.HandleEntityMove(ctx, p)

	case protocol.PacketEntityRemove:
		p, err := protocol.DecodeEntityRemove(packet.Body)
		if err != nil {
			return fmt.Errorf("%s: %w", packet.Code, err)
		}
		return d.handler.HandleEntityRemove(ctx, p)

	default:
		d.logger.Debug("Пропуск пакета с неизвестным кодом %d (%d байт)", byte(packet.Code), len(packet.Body))
		return nil
	}
}

// Run читает пакеты из канала до его закрытия или отмены ctx.
// Ошибка одного пакета логируется и не прерывает чтение.
func (d *Dispatcher) Run(ctx context.Context, ch PacketChannel) error {
	d.logger.Info("📡 Приём пакетов запущен: addr=%s", ch.RemoteAddr())
	for {
		msg, err := ch.Receive(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, ErrChannelClosed):
				d.logger.Info("Соединение закрыто: addr=%s", ch.RemoteAddr())
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return err
			}
		}

		if err := d.Dispatch(ctx, msg); err != nil {
			d.logger.Warn("❌ Ошибка обработки пакета: %v", err)
		}
	}
}
