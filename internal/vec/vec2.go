package vec

import "math"

const (
	// ChunkShift - log2 стороны чанка
	ChunkShift = 6
	// ChunkSize - сторона чанка в блоках
	ChunkSize = 1 << ChunkShift
	// ChunkMask выделяет локальную координату внутри чанка
	ChunkMask = ChunkSize - 1

	// chunkRowStride - число чанков в одной строке ключевого пространства (2^26)
	chunkRowStride = 1 << 26
)

// Vec2 представляет целочисленные координаты блока в мире
type Vec2 struct {
	X, Y int32
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Y: v.Y >> ChunkShift} // Деление на 64
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & ChunkMask, Y: v.Y & ChunkMask} // Модуль 64
}

// ChunkOrigin возвращает координату угла чанка в блоках для координат чанка v
func (v Vec2) ChunkOrigin() Vec2 {
	return Vec2{X: v.X << ChunkShift, Y: v.Y << ChunkShift}
}

// Key возвращает ключ чанка, содержащего блок v
func (v Vec2) Key() int64 {
	return ChunkKey(v.X, v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X) - float64(other.X)
	dy := float64(v.Y) - float64(other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ChunkKey упаковывает координаты блока в ключ чанка.
// Ключ зависит только от x>>>6 и y>>>6 (беззнаковый сдвиг) и считается в int64,
// поэтому разные чанки из 26-битного пространства никогда не совпадают.
func ChunkKey(x, y int32) int64 {
	return int64(uint32(x)>>ChunkShift) + int64(uint32(y)>>ChunkShift)*chunkRowStride
}

// ChunkKeyOf возвращает ключ чанка по его координатам (в единицах чанков)
func ChunkKeyOf(cx, cy int32) int64 {
	return ChunkKey(cx<<ChunkShift, cy<<ChunkShift)
}

// TileIndex возвращает индекс клетки в массиве тайлов чанка: x | y<<6
func TileIndex(x, y int32) int {
	return int(x&ChunkMask) | int(y&ChunkMask)<<ChunkShift
}
