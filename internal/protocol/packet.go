package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PacketCode определяет тип входящего пакета (первый байт)
type PacketCode byte

// Определение констант для кодов пакетов
const (
	// Блоки
	PacketBlockSet PacketCode = 8

	// Чанки
	PacketChunkData   PacketCode = 16
	PacketChunkUnload PacketCode = 17

	// Сущности
	PacketEntityMove   PacketCode = 20
	PacketEntityRemove PacketCode = 21
)

// String возвращает имя кода для логов и меток метрик
func (c PacketCode) String() string {
	switch c {
	case PacketBlockSet:
		return "block_set"
	case PacketChunkData:
		return "chunk_data"
	case PacketChunkUnload:
		return "chunk_unload"
	case PacketEntityMove:
		return "entity_move"
	case PacketEntityRemove:
		return "entity_remove"
	default:
		return fmt.Sprintf("unknown_%d", byte(c))
	}
}

// MaxFrameSize ограничивает размер кадра потокового транспорта
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge возвращается при чтении кадра больше лимита
var ErrFrameTooLarge = errors.New("frame too large")

// Packet - разобранный пакет: код и тело без кода
type Packet struct {
	Code PacketCode
	Body []byte
}

// ParsePacket отделяет код пакета от тела. Тело ссылается на исходный буфер.
func ParsePacket(msg []byte) (Packet, error) {
	c := NewCursor(msg)
	code, err := c.Byte()
	if err != nil {
		return Packet{}, fmt.Errorf("чтение кода пакета: %w", err)
	}
	return Packet{Code: PacketCode(code), Body: msg[1:]}, nil
}

// Encode собирает пакет обратно в сообщение: код и тело
func (p Packet) Encode() []byte {
	out := make([]byte, 0, len(p.Body)+1)
	out = append(out, byte(p.Code))
	return append(out, p.Body...)
}

// ReadFrame читает кадр потокового транспорта: uint32 длина и пакет
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if maxSize > 0 && int64(n) > int64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("чтение тела кадра (%d байт): %w", n, err)
	}
	return buf, nil
}

// WriteFrame записывает кадр потокового транспорта
func WriteFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

// EntityRef - идентификатор сущности в проводном виде (младшие 32 и старшие 16 бит)
type EntityRef struct {
	Low  uint32
	High uint16
}

func readEntityRef(c *Cursor) (EntityRef, error) {
	low, err := c.Uint32()
	if err != nil {
		return EntityRef{}, err
	}
	high, err := c.Uint16()
	if err != nil {
		return EntityRef{}, err
	}
	return EntityRef{Low: low, High: high}, nil
}

func (r EntityRef) write(w *Writer) {
	w.Uint32(r.Low)
	w.Uint16(r.High)
}

// BlockSet - установка блока по мировым координатам
type BlockSet struct {
	X, Y int32
	ID   uint16
}

// DecodeBlockSet разбирает тело пакета BlockSet
func DecodeBlockSet(body []byte) (BlockSet, error) {
	c := NewCursor(body)
	var p BlockSet
	var err error
	if p.X, err = c.Int32(); err != nil {
		return p, err
	}
	if p.Y, err = c.Int32(); err != nil {
		return p, err
	}
	p.ID, err = c.Uint16()
	return p, err
}

// Encode кодирует пакет целиком вместе с кодом
func (p BlockSet) Encode() []byte {
	w := NewWriter(11)
	w.Byte(byte(PacketBlockSet))
	w.Int32(p.X)
	w.Int32(p.Y)
	w.Uint16(p.ID)
	return w.Bytes()
}

// ChunkUnload - выгрузка чанка по координатам чанка
type ChunkUnload struct {
	X, Y int32
}

// DecodeChunkUnload разбирает тело пакета ChunkUnload
func DecodeChunkUnload(body []byte) (ChunkUnload, error) {
	c := NewCursor(body)
	var p ChunkUnload
	var err error
	if p.X, err = c.Int32(); err != nil {
		return p, err
	}
	p.Y, err = c.Int32()
	return p, err
}

// Encode кодирует пакет целиком вместе с кодом
func (p ChunkUnload) Encode() []byte {
	w := NewWriter(9)
	w.Byte(byte(PacketChunkUnload))
	w.Int32(p.X)
	w.Int32(p.Y)
	return w.Bytes()
}

// EntityMove - новое положение и скорость сущности
type EntityMove struct {
	Ref        EntityRef
	X, Y       float64
	VelX, VelY float32
	Facing     float32
}

// DecodeEntityMove разбирает тело пакета EntityMove
func DecodeEntityMove(body []byte) (EntityMove, error) {
	c := NewCursor(body)
	var p EntityMove
	var err error
	if p.Ref, err = readEntityRef(c); err != nil {
		return p, err
	}
	if p.X, err = c.Float64(); err != nil {
		return p, err
	}
	if p.Y, err = c.Float64(); err != nil {
		return p, err
	}
	if p.VelX, err = c.Float32(); err != nil {
		return p, err
	}
	if p.VelY, err = c.Float32(); err != nil {
		return p, err
	}
	p.Facing, err = c.Float32()
	return p, err
}

// Encode кодирует пакет целиком вместе с кодом
func (p EntityMove) Encode() []byte {
	w := NewWriter(35)
	w.Byte(byte(PacketEntityMove))
	p.Ref.write(w)
	w.Float64(p.X)
	w.Float64(p.Y)
	w.Float32(p.VelX)
	w.Float32(p.VelY)
	w.Float32(p.Facing)
	return w.Bytes()
}

// EntityRemove - удаление сущности
type EntityRemove struct {
	Ref EntityRef
}

// DecodeEntityRemove разбирает тело пакета EntityRemove
func DecodeEntityRemove(body []byte) (EntityRemove, error) {
	ref, err := readEntityRef(NewCursor(body))
	return EntityRemove{Ref: ref}, err
}

// Encode кодирует пакет целиком вместе с кодом
func (p EntityRemove) Encode() []byte {
	w := NewWriter(7)
	w.Byte(byte(PacketEntityRemove))
	p.Ref.write(w)
	return w.Bytes()
}
