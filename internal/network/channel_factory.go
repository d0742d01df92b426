package network

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/tileworld/internal/logging"
)

// Dial подключается к серверу по транспорту из config.
// Для ws/wss addr - URL, для kcp/tcp - host:port (схема kcp:// или tcp:// допускается).
func Dial(ctx context.Context, config *ChannelConfig, addr string) (PacketChannel, error) {
	logger := logging.GetNetworkLogger()

	switch config.Type {
	case ChannelWebSocket:
		wc, err := DialWebSocket(ctx, config, addr)
		if err != nil {
			return nil, err
		}
		return wc, nil

	case ChannelTCP:
		d := net.Dialer{Timeout: config.DialTimeout, KeepAlive: config.KeepAlive}
		conn, err := d.DialContext(ctx, "tcp", hostPort(addr))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		logger.Info("🔌 TCP канал подключён: addr=%s", conn.RemoteAddr())
		return NewStreamChannel(conn, config), nil

	case ChannelKCP:
		conn, err := kcp.DialWithOptions(hostPort(addr), nil, 10, 3)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		tuneKCP(conn)
		logger.Info("🔌 KCP канал подключён: addr=%s", conn.RemoteAddr())
		return NewStreamChannel(conn, config), nil

	default:
		return nil, fmt.Errorf("unsupported channel type: %v", config.Type)
	}
}

// tuneKCP настраивает KCP параметры для игрового трафика
func tuneKCP(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1)
	conn.SetWindowSize(512, 512)
	conn.SetMtu(1400)
}

// hostPort отбрасывает схему и путь, если addr задан как URL
func hostPort(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		return u.Host
	}
	return addr
}
