package network

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/tileworld/internal/logging"
)

// WebSocketChannel реализует PacketChannel поверх WebSocket:
// одно бинарное сообщение - один пакет. Текстовые сообщения пропускаются.
type WebSocketChannel struct {
	conn   *websocket.Conn
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

// DialWebSocket подключается к ws:// или wss:// URL
func DialWebSocket(ctx context.Context, config *ChannelConfig, url string) (*WebSocketChannel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: config.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	wc := NewWebSocketChannel(conn, config)
	wc.logger.Info("🔌 WebSocket канал подключён: url=%s", url)
	return wc, nil
}

// NewWebSocketChannel запускает чтение сообщений из conn
func NewWebSocketChannel(conn *websocket.Conn, config *ChannelConfig) *WebSocketChannel {
	if config == nil {
		config = DefaultChannelConfig(ChannelWebSocket)
	}
	if config.MaxFrameSize > 0 {
		conn.SetReadLimit(int64(config.MaxFrameSize))
	}
	wc := &WebSocketChannel{
		conn:   conn,
		config: config,
		logger: logging.GetNetworkLogger(),
		recv:   make(chan []byte, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go wc.receiveLoop()
	return wc
}

func (wc *WebSocketChannel) receiveLoop() {
	defer close(wc.done)

	for {
		kind, msg, err := wc.conn.ReadMessage()
		if err != nil {
			wc.recvErr = err
			return
		}
		if kind != websocket.BinaryMessage {
			wc.logger.Debug("Пропуск не бинарного сообщения (%d байт)", len(msg))
			continue
		}
		wc.counters.received(len(msg))

		select {
		case wc.recv <- msg:
		case <-wc.closed:
			return
		}
	}
}

// Receive возвращает следующий пакет; io.EOF после штатного закрытия соединения сервером
func (wc *WebSocketChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-wc.recv:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wc.closed:
		return nil, ErrChannelClosed
	case <-wc.done:
		select {
		case msg := <-wc.recv:
			return msg, nil
		default:
		}
		if websocket.IsCloseError(wc.recvErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("websocket receive: %w", wc.recvErr)
	}
}

// Send отправляет пакет бинарным сообщением
func (wc *WebSocketChannel) Send(ctx context.Context, packet []byte) error {
	select {
	case <-wc.closed:
		return ErrChannelClosed
	default:
	}

	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()

	if wc.config.WriteTimeout > 0 {
		_ = wc.conn.SetWriteDeadline(time.Now().Add(wc.config.WriteTimeout))
	}
	if err := wc.conn.WriteMessage(websocket.BinaryMessage, packet); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	wc.counters.sent(len(packet))
	return nil
}

// Close отправляет кадр закрытия и закрывает соединение
func (wc *WebSocketChannel) Close() error {
	var err error
	wc.once.Do(func() {
		close(wc.closed)

		wc.writeMu.Lock()
		_ = wc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		wc.writeMu.Unlock()

		err = wc.conn.Close()
		<-wc.done
		wc.logger.Info("WebSocket channel closed: addr=%s", wc.RemoteAddr())
	})
	return err
}

func (wc *WebSocketChannel) RemoteAddr() string {
	return wc.conn.RemoteAddr().String()
}

func (wc *WebSocketChannel) Stats() ConnectionStats {
	return wc.counters.snapshot(wc.RemoteAddr())
}
