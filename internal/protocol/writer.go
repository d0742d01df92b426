package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer - буфер для записи значений в том же формате, который читает Cursor
type Writer struct {
	buf []byte
}

// NewWriter создает писатель с заранее выделенной емкостью
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes возвращает записанные данные
func (w *Writer) Bytes() []byte { return w.buf }

// Len возвращает число записанных байт
func (w *Writer) Len() int { return len(w.buf) }

// Reset очищает буфер, сохраняя емкость
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) Byte(v byte) { w.buf = append(w.buf, v) }

func (w *Writer) Uint16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Uint32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }

func (w *Writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

// Raw дописывает байты как есть
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// String записывает строку с префиксом длины uint16
func (w *Writer) String(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("строка длиной %d байт не помещается в префикс uint16", len(s))
	}
	w.Uint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}
