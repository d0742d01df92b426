// Package worldgen генерирует синтетические чанки бокового вида на шуме Перлина.
// Используется утилитой chunkgen и тестами для получения правдоподобных полезных нагрузок.
package worldgen

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/entity"
)

// BiomeType представляет тип биома колонки
type BiomeType byte

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeOcean
	BiomeTundra
)

// Параметры шума, как в серверном генераторе
const (
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = int32(3)
)

// Generator строит чанки по координатам. Один и тот же сид даёт одинаковый ландшафт.
type Generator struct {
	Seed int64

	// SeaLevel - мировая высота уровня воды
	SeaLevel int32
	// Amplitude - размах высот поверхности относительно SeaLevel
	Amplitude float64
	// HeightScale и BiomeScale - масштабы шума высоты и биомов
	HeightScale float64
	BiomeScale  float64
	// CaveScale и CaveThreshold задают пещеры: шум выше порога вырезает камень
	CaveScale     float64
	CaveThreshold float64
	// LavaLevel - ниже этой высоты пещеры заполнены лавой
	LavaLevel int32
	// BedrockLevel - ниже этой высоты только бедрок
	BedrockLevel int32
	// TreeChance - вероятность дерева на колонке травы
	TreeChance float64
	// AnimalsPerChunk - число животных, размещаемых на поверхности чанка
	AnimalsPerChunk int

	defs    *definitions.Registry
	height  *perlin.Perlin
	biome   *perlin.Perlin
	cave    *perlin.Perlin
	blocks  map[block.ID]block.Block
	animals []*entity.Definition
	nextID  atomic.Int64
}

// New создаёт генератор с параметрами по умолчанию
func New(defs *definitions.Registry, seed int64) (*Generator, error) {
	g := &Generator{
		Seed:            seed,
		SeaLevel:        0,
		Amplitude:       48,
		HeightScale:     0.01,
		BiomeScale:      0.002,
		CaveScale:       0.06,
		CaveThreshold:   0.72,
		LavaLevel:       -150,
		BedrockLevel:    -192,
		TreeChance:      0.08,
		AnimalsPerChunk: 2,
		defs:            defs,
		height:          perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		biome:           perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed+42),
		cave:            perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed+1337),
		blocks:          make(map[block.ID]block.Block),
	}

	for _, id := range []block.ID{
		block.AirID, block.StoneID, block.GrassID, block.WaterID, block.SandID, block.DirtID,
		block.LavaID, block.SnowID, block.IceID, block.LogID, block.LeavesID, block.BedrockID,
	} {
		b, err := defs.Block(uint16(id))
		if err != nil {
			return nil, fmt.Errorf("worldgen: %w", err)
		}
		g.blocks[id] = b
	}
	for _, t := range []entity.TypeID{entity.TypeCow, entity.TypeSheep, entity.TypePig, entity.TypeChicken} {
		def, err := defs.Entity(uint16(t))
		if err != nil {
			return nil, fmt.Errorf("worldgen: %w", err)
		}
		g.animals = append(g.animals, def)
	}
	return g, nil
}

// noise01 переводит шум из [-1, 1] в [0, 1]
func noise01(v float64) float64 {
	return (v + 1) / 2
}

// SurfaceHeight возвращает мировую высоту поверхности в колонке x
func (g *Generator) SurfaceHeight(x int32) int32 {
	n := g.height.Noise1D(float64(x) * g.HeightScale)
	return g.SeaLevel + int32(n*g.Amplitude)
}

// Biome возвращает биом колонки x
func (g *Generator) Biome(x int32) BiomeType {
	h := g.SurfaceHeight(x)
	switch {
	case h < g.SeaLevel-4:
		return BiomeOcean
	case float64(h) > float64(g.SeaLevel)+g.Amplitude*0.6:
		return BiomeMountains
	}

	v := noise01(g.biome.Noise1D(float64(x) * g.BiomeScale))
	switch {
	case v < 0.3:
		return BiomeDesert
	case v > 0.75:
		return BiomeTundra
	case v > 0.55:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// blockAt выбирает блок клетки без учёта деревьев
func (g *Generator) blockAt(x, y, surface int32, biome BiomeType) block.ID {
	switch {
	case y < g.BedrockLevel:
		return block.BedrockID
	case y > surface:
		if y <= g.SeaLevel {
			if biome == BiomeTundra && y == g.SeaLevel {
				return block.IceID
			}
			return block.WaterID
		}
		return block.AirID
	}

	// Пещеры не выходят на поверхность
	if y < surface-6 {
		c := noise01(g.cave.Noise2D(float64(x)*g.CaveScale, float64(y)*g.CaveScale))
		if c > g.CaveThreshold {
			if y < g.LavaLevel {
				return block.LavaID
			}
			return block.AirID
		}
	}

	depth := surface - y
	switch biome {
	case BiomeDesert, BiomeOcean:
		if depth < 4 {
			return block.SandID
		}
	case BiomeMountains:
		if depth == 0 && surface > g.SeaLevel+int32(g.Amplitude*0.75) {
			return block.SnowID
		}
	case BiomeTundra:
		if depth == 0 {
			return block.SnowID
		}
		if depth < 4 {
			return block.DirtID
		}
	default:
		if depth == 0 {
			if surface < g.SeaLevel {
				return block.DirtID
			}
			return block.GrassID
		}
		if depth < 4 {
			return block.DirtID
		}
	}
	return block.StoneID
}

// Chunk генерирует чанк с координатами (cx, cy)
func (g *Generator) Chunk(cx, cy int32) *world.Chunk {
	c := world.NewChunk(cx, cy)
	origin := c.Origin()

	// Детерминированный генератор случайных чисел на чанк
	rng := rand.New(rand.NewSource(g.Seed + int64(cx)*31 + int64(cy)*17))

	var surfaces [vec.ChunkSize]int32
	var biomes [vec.ChunkSize]BiomeType
	for lx := int32(0); lx < vec.ChunkSize; lx++ {
		wx := origin.X + lx
		surfaces[lx] = g.SurfaceHeight(wx)
		biomes[lx] = g.Biome(wx)
		for ly := int32(0); ly < vec.ChunkSize; ly++ {
			c.Tiles[vec.TileIndex(lx, ly)] = g.blocks[g.blockAt(wx, origin.Y+ly, surfaces[lx], biomes[lx])]
		}
	}

	g.placeTrees(c, surfaces, biomes, rng)
	for i := range c.Biomes {
		c.Biomes[i] = byte(biomes[i*vec.ChunkSize/world.BiomeCount])
	}
	c.Palette = paletteOf(c)
	g.spawnAnimals(c, surfaces, rng)
	return c
}

// placeTrees ставит деревья, целиком помещающиеся в чанк
func (g *Generator) placeTrees(c *world.Chunk, surfaces [vec.ChunkSize]int32, biomes [vec.ChunkSize]BiomeType, rng *rand.Rand) {
	origin := c.Origin()
	for lx := int32(2); lx < vec.ChunkSize-2; lx++ {
		chance := g.TreeChance
		switch biomes[lx] {
		case BiomeForest:
			chance *= 3
		case BiomePlains, BiomeTundra:
		default:
			continue
		}
		if rng.Float64() >= chance {
			continue
		}

		base := surfaces[lx] - origin.Y + 1
		trunk := int32(3 + rng.Intn(3))
		if base < 1 || base+trunk+2 > vec.ChunkSize {
			continue
		}
		if ground := c.Tiles[vec.TileIndex(lx, base-1)]; ground.ID() != block.GrassID && ground.ID() != block.SnowID {
			continue
		}

		for dy := int32(0); dy < trunk; dy++ {
			c.Tiles[vec.TileIndex(lx, base+dy)] = g.blocks[block.LogID]
		}
		top := base + trunk
		for dx := int32(-2); dx <= 2; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				i := vec.TileIndex(lx+dx, top+dy)
				if c.Tiles[i].ID() == block.AirID {
					c.Tiles[i] = g.blocks[block.LeavesID]
				}
			}
		}
		lx += 3
	}
}

// spawnRange - сущности ставятся в нижнюю левую четверть чанка,
// где смещение от начала чанка помещается в проводной int16
const spawnRange = vec.ChunkSize / 2

// spawnAnimals размещает животных на суше над поверхностью
func (g *Generator) spawnAnimals(c *world.Chunk, surfaces [vec.ChunkSize]int32, rng *rand.Rand) {
	origin := c.Origin()
	for i := 0; i < g.AnimalsPerChunk; i++ {
		lx := int32(rng.Intn(spawnRange))
		ly := surfaces[lx] - origin.Y + 1
		if ly < 0 || ly >= spawnRange || surfaces[lx] < g.SeaLevel {
			continue
		}
		def := g.animals[rng.Intn(len(g.animals))]
		pos := vec.Vec2Float{X: float64(origin.X+lx) + 0.5, Y: float64(origin.Y + ly)}
		e := world.NewEntity(g.nextID.Add(1), def, pos)
		e.SetFacing(float32(rng.Intn(2)))
		c.Adopt(e)
	}
}

// paletteOf собирает палитру в порядке первого появления блока в клетках
func paletteOf(c *world.Chunk) []block.Block {
	seen := make(map[block.ID]bool)
	var palette []block.Block
	for _, b := range c.Tiles {
		if !seen[b.ID()] {
			seen[b.ID()] = true
			palette = append(palette, b)
		}
	}
	return palette
}
