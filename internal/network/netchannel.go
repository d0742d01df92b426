// Package network доставляет пакеты мира от сервера до загрузчика чанков.
package network

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ChannelType определяет тип канала связи
type ChannelType int

const (
	ChannelWebSocket ChannelType = iota
	ChannelKCP
	ChannelTCP
)

func (t ChannelType) String() string {
	switch t {
	case ChannelWebSocket:
		return "ws"
	case ChannelKCP:
		return "kcp"
	case ChannelTCP:
		return "tcp"
	default:
		return fmt.Sprintf("channel(%d)", int(t))
	}
}

// ParseChannelType разбирает имя транспорта из конфигурации
func ParseChannelType(s string) (ChannelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ws", "wss", "websocket":
		return ChannelWebSocket, nil
	case "kcp":
		return ChannelKCP, nil
	case "tcp":
		return ChannelTCP, nil
	default:
		return 0, fmt.Errorf("unknown transport %q", s)
	}
}

// ErrChannelClosed возвращается операциями закрытого канала
var ErrChannelClosed = errors.New("channel closed")

// ConnectionStats содержит статистику соединения
type ConnectionStats struct {
	PacketsSent     uint64    `json:"packets_sent"`
	PacketsReceived uint64    `json:"packets_received"`
	BytesSent       uint64    `json:"bytes_sent"`
	BytesReceived   uint64    `json:"bytes_received"`
	LastActivity    time.Time `json:"last_activity"`
	RemoteAddr      string    `json:"remote_addr"`
}

// PacketChannel - двунаправленный канал целых пакетов (код + тело)
type PacketChannel interface {
	// Receive блокируется до следующего пакета, отмены ctx или закрытия канала
	Receive(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, packet []byte) error
	Close() error
	RemoteAddr() string
	Stats() ConnectionStats
}

// ChannelConfig содержит конфигурацию канала
type ChannelConfig struct {
	Type         ChannelType
	MaxFrameSize int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	KeepAlive    time.Duration
}

// DefaultChannelConfig возвращает конфигурацию канала по умолчанию
func DefaultChannelConfig(channelType ChannelType) *ChannelConfig {
	return &ChannelConfig{
		Type:         channelType,
		MaxFrameSize: 1 << 20,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		KeepAlive:    15 * time.Second,
	}
}

// channelCounters - общие счётчики реализаций PacketChannel
type channelCounters struct {
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	lastActivity    atomic.Int64
}

func (c *channelCounters) received(n int) {
	c.packetsReceived.Add(1)
	c.bytesReceived.Add(uint64(n))
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *channelCounters) sent(n int) {
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(n))
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *channelCounters) snapshot(remote string) ConnectionStats {
	s := ConnectionStats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		RemoteAddr:      remote,
	}
	if ts := c.lastActivity.Load(); ts != 0 {
		s.LastActivity = time.Unix(0, ts)
	}
	return s
}
