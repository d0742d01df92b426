package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/protocol"
)

// StreamChannel реализует PacketChannel поверх потокового соединения (TCP, KCP).
// Каждый пакет передаётся кадром uint32 длины (big-endian) и телом.
type StreamChannel struct {
	conn   net.Conn
	config *ChannelConfig
	logger *logging.Logger

	counters channelCounters

	recv    chan []byte
	recvErr error
	closed  chan struct{}
	done    chan struct{}
	once    sync.Once
	writeMu sync.Mutex
}

// NewStreamChannel запускает чтение кадров из conn
func NewStreamChannel(conn net.Conn, config *ChannelConfig) *StreamChannel {
	if config == nil {
		config = DefaultChannelConfig(ChannelTCP)
	}
	sc := &StreamChannel{
		conn:   conn,
		config: config,
		logger: logging.GetNetworkLogger(),
		recv:   make(chan []byte, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go sc.receiveLoop()
	return sc
}

// receiveLoop читает кадры до ошибки или закрытия
func (sc *StreamChannel) receiveLoop() {
	defer close(sc.done)

	for {
		frame, err := protocol.ReadFrame(sc.conn, sc.config.MaxFrameSize)
		if err != nil {
			sc.recvErr = err
			return
		}
		sc.counters.received(len(frame))

		select {
		case sc.recv <- frame:
		case <-sc.closed:
			return
		}
	}
}

// Receive возвращает следующий пакет; io.EOF после штатного закрытия соединения сервером
func (sc *StreamChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-sc.recv:
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-sc.closed:
		return nil, ErrChannelClosed
	case <-sc.done:
		// Дочитываем то, что успело попасть в буфер
		select {
		case frame := <-sc.recv:
			return frame, nil
		default:
		}
		if errors.Is(sc.recvErr, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("receive from %s: %w", sc.RemoteAddr(), sc.recvErr)
	}
}

// Send отправляет пакет одним кадром
func (sc *StreamChannel) Send(ctx context.Context, packet []byte) error {
	select {
	case <-sc.closed:
		return ErrChannelClosed
	default:
	}

	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	deadline := time.Now().Add(sc.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if sc.config.WriteTimeout > 0 {
		_ = sc.conn.SetWriteDeadline(deadline)
	}
	if err := protocol.WriteFrame(sc.conn, packet); err != nil {
		return fmt.Errorf("send to %s: %w", sc.RemoteAddr(), err)
	}
	sc.counters.sent(len(packet))
	return nil
}

// Close закрывает соединение и дожидается остановки чтения
func (sc *StreamChannel) Close() error {
	var err error
	sc.once.Do(func() {
		close(sc.closed)
		err = sc.conn.Close()
		<-sc.done
		sc.logger.Info("Stream channel closed: addr=%s", sc.RemoteAddr())
	})
	return err
}

func (sc *StreamChannel) RemoteAddr() string {
	if addr := sc.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (sc *StreamChannel) Stats() ConnectionStats {
	return sc.counters.snapshot(sc.RemoteAddr())
}
