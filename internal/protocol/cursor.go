package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnexpectedEndOfData возвращается, когда в буфере осталось меньше байт, чем требует чтение
var ErrUnexpectedEndOfData = errors.New("unexpected end of data")

// ReadError описывает неудачное чтение: смещение, сколько байт требовалось и сколько осталось
type ReadError struct {
	Offset int
	Want   int
	Have   int
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%v: offset %d, want %d bytes, have %d", ErrUnexpectedEndOfData, e.Offset, e.Want, e.Have)
}

// Unwrap позволяет использовать errors.Is(err, ErrUnexpectedEndOfData)
func (e *ReadError) Unwrap() error { return ErrUnexpectedEndOfData }

// Cursor - изменяемая позиция чтения поверх неизменяемого буфера.
// Все многобайтные значения читаются в порядке big-endian.
// При ошибке позиция не сдвигается.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor создает курсор на начале буфера
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset возвращает текущую позицию
func (c *Cursor) Offset() int { return c.off }

// Remaining возвращает число непрочитанных байт
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Len возвращает полный размер буфера
func (c *Cursor) Len() int { return len(c.buf) }

// take возвращает следующие n байт и сдвигает позицию
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, &ReadError{Offset: c.off, Want: n, Have: c.Remaining()}
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Byte читает один байт
func (c *Cursor) Byte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 читает беззнаковое 16-битное число
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Int16 читает знаковое 16-битное число
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

// Uint32 читает беззнаковое 32-битное число
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Int32 читает знаковое 32-битное число
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

// Uint64 читает беззнаковое 64-битное число
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Int64 читает знаковое 64-битное число
func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()
	return int64(v), err
}

// Float32 читает число IEEE-754 одинарной точности
func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	return math.Float32frombits(v), err
}

// Float64 читает число IEEE-754 двойной точности
func (c *Cursor) Float64() (float64, error) {
	v, err := c.Uint64()
	return math.Float64frombits(v), err
}

// String читает строку: uint16 длина в байтах и затем UTF-8 байты.
// Если тело строки не помещается, позиция остается перед префиксом длины.
func (c *Cursor) String() (string, error) {
	start := c.off
	n, err := c.Uint16()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		c.off = start
		return "", err
	}
	return string(b), nil
}

// Bytes возвращает следующие n байт без копирования
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.take(n)
}

// Skip пропускает n байт
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}
