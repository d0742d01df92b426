package codec

import (
	"github.com/annel0/tileworld/internal/world"
)

// BitsPerTile возвращает ширину индекса палитры для длины палитры
func BitsPerTile(paletteLength int) int {
	switch {
	case paletteLength < 2:
		return 0
	case paletteLength == 2:
		return 1
	case paletteLength <= 4:
		return 2
	case paletteLength <= 16:
		return 4
	case paletteLength <= 256:
		return 8
	default:
		return 12
	}
}

// PackedSize возвращает размер упакованной сетки в байтах
func PackedSize(paletteLength int) int {
	return BitsPerTile(paletteLength) * world.TileCount / 8
}

// unpackIndices раскладывает упакованную сетку в индексы палитры.
// data должен иметь длину PackedSize(paletteLength).
func unpackIndices(data []byte, paletteLength int, out *[world.TileCount]uint16) {
	bits := BitsPerTile(paletteLength)
	switch bits {
	case 0:
		for i := range out {
			out[i] = 0
		}
	case 12:
		// Тройка байт b0 b1 b2 несёт две клетки:
		// первая = b0 | младший полубайт b1 << 8, вторая = b2 | старший полубайт b1 << 4
		for g := 0; g < world.TileCount/2; g++ {
			b0, b1, b2 := data[3*g], data[3*g+1], data[3*g+2]
			out[2*g] = uint16(b0) | uint16(b1&0x0F)<<8
			out[2*g+1] = uint16(b2) | uint16(b1&0xF0)<<4
		}
	default:
		// 1, 2, 4, 8 бит: поля внутри байта идут от младших бит к старшим
		perByte := 8 / bits
		mask := byte(1<<bits - 1)
		for i := range out {
			shift := uint(i%perByte) * uint(bits)
			out[i] = uint16(data[i/perByte] >> shift & mask)
		}
	}
}

// packIndices упаковывает индексы палитры в формат для paletteLength
func packIndices(indices *[world.TileCount]uint16, paletteLength int) []byte {
	bits := BitsPerTile(paletteLength)
	out := make([]byte, PackedSize(paletteLength))
	switch bits {
	case 0:
	case 12:
		for g := 0; g < world.TileCount/2; g++ {
			i0, i1 := indices[2*g], indices[2*g+1]
			out[3*g] = byte(i0)
			out[3*g+1] = byte(i0>>8&0x0F) | byte(i1>>4&0xF0)
			out[3*g+2] = byte(i1)
		}
	default:
		perByte := 8 / bits
		for i, idx := range indices {
			shift := uint(i%perByte) * uint(bits)
			out[i/perByte] |= byte(idx) << shift
		}
	}
	return out
}
