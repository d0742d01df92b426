package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/tileworld/internal/loader"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/annel0/tileworld/internal/world/block"
)

// BlockView - описание блока в ответах API
type BlockView struct {
	ID        uint16        `json:"id"`
	Name      string        `json:"name"`
	Solid     bool          `json:"solid"`
	Climbable bool          `json:"climbable"`
	Viscosity float32       `json:"viscosity"`
	BreakTime float32       `json:"break_time"`
	Texture   block.Texture `json:"texture"`
}

func newBlockView(b block.Block) BlockView {
	return BlockView{
		ID:        uint16(b.ID()),
		Name:      b.Name(),
		Solid:     b.Solid(),
		Climbable: b.Climbable(),
		Viscosity: b.Viscosity(),
		BreakTime: b.BreakTime(),
		Texture:   b.Texture(),
	}
}

// ChunkSummary - краткая запись списка чанков
type ChunkSummary struct {
	X          int32 `json:"x"`
	Y          int32 `json:"y"`
	PaletteLen int   `json:"palette_len"`
	Entities   int   `json:"entities"`
}

// ChunkView - подробное описание чанка
type ChunkView struct {
	ChunkSummary
	Origin  vec.Vec2               `json:"origin"`
	Biomes  [world.BiomeCount]byte `json:"biomes"`
	Palette []BlockView            `json:"palette"`
	Members []world.EntityState    `json:"entity_list"`
	Tiles   []uint16               `json:"tiles,omitempty"`
}

func summarize(c *world.Chunk) ChunkSummary {
	return ChunkSummary{X: c.X, Y: c.Y, PaletteLen: len(c.Palette), Entities: c.EntityCount()}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает состояние мира, соединения и процесса
func (s *Server) handleStats(c *gin.Context) {
	ix := s.config.Index
	stats := gin.H{
		"world": gin.H{
			"dimension":       ix.Dimension(),
			"chunks":          ix.ChunkCount(),
			"entities":        ix.EntityCount(),
			"local_player_id": ix.LocalPlayerID(),
		},
	}
	if s.config.Connection != nil {
		stats["connection"] = s.config.Connection.Stats()
	}

	process := gin.H{"uptime": s.stats.Uptime()}
	if cpu, err := s.stats.CPUPercent(); err == nil {
		process["cpu_percent"] = cpu
	}
	if rss, err := s.stats.RSSMegabytes(); err == nil {
		process["rss_mb"] = rss
	}
	stats["process"] = process
	stats["memory_details"] = s.stats.MemoryDetails()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика получена", Data: stats})
}

func (s *Server) handleChunks(c *gin.Context) {
	chunks := s.config.Index.Chunks()
	out := make([]ChunkSummary, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, summarize(ch))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список чанков получен",
		Data:    gin.H{"chunks": out, "total": len(out)},
	})
}

// handleChunk возвращает чанк; ?tiles=true добавляет ID всех клеток в порядке x | y<<6
func (s *Server) handleChunk(c *gin.Context) {
	cx, cy, ok := chunkCoords(c)
	if !ok {
		return
	}
	ch, found := s.config.Index.Chunk(cx, cy)
	if !found {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк не загружен"})
		return
	}

	view := ChunkView{
		ChunkSummary: summarize(ch),
		Origin:       ch.Origin(),
		Biomes:       ch.Biomes,
		Palette:      make([]BlockView, 0, len(ch.Palette)),
	}
	for _, b := range ch.Palette {
		view.Palette = append(view.Palette, newBlockView(b))
	}
	for _, e := range ch.Entities() {
		view.Members = append(view.Members, e.Snapshot())
	}
	if c.Query("tiles") == "true" {
		view.Tiles = make([]uint16, 0, world.TileCount)
		ch.ForEachTile(func(_, _ int32, b block.Block) {
			var id uint16
			if b != nil {
				id = uint16(b.ID())
			}
			view.Tiles = append(view.Tiles, id)
		})
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк получен", Data: view})
}

// handleRestore загружает выгруженный чанк из кэша полезных нагрузок
func (s *Server) handleRestore(c *gin.Context) {
	if s.config.Loader == nil || s.config.Source == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Success: false, Message: "Кэш чанков не настроен"})
		return
	}
	cx, cy, ok := chunkCoords(c)
	if !ok {
		return
	}

	ch, err := s.config.Loader.Restore(c.Request.Context(), s.config.Source, cx, cy)
	switch {
	case errors.Is(err, loader.ErrNotCached):
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: err.Error()})
		return
	case err != nil:
		s.logger.Warn("Не удалось восстановить чанк (%d,%d): %v", cx, cy, err)
		c.JSON(http.StatusUnprocessableEntity, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк восстановлен", Data: summarize(ch)})
}

func (s *Server) handleBlock(c *gin.Context) {
	x, errX := strconv.ParseInt(c.Query("x"), 10, 32)
	y, errY := strconv.ParseInt(c.Query("y"), 10, 32)
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Нужны целые параметры x и y"})
		return
	}

	_, loaded := s.config.Index.ChunkAt(int32(x), int32(y))
	b := s.config.Index.GetBlock(int32(x), int32(y))
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок получен",
		Data:    gin.H{"x": x, "y": y, "loaded": loaded, "block": newBlockView(b)},
	})
}

func (s *Server) handleEntities(c *gin.Context) {
	entities := s.config.Index.Entities()
	out := make([]world.EntityState, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список сущностей получен",
		Data:    gin.H{"entities": out, "total": len(out)},
	})
}

func (s *Server) handleEntity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Некорректный ID сущности"})
		return
	}
	e, ok := s.config.Index.Entity(id)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Сущность не найдена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущность получена", Data: e.Snapshot()})
}

func chunkCoords(c *gin.Context) (int32, int32, bool) {
	x, errX := strconv.ParseInt(c.Param("x"), 10, 32)
	y, errY := strconv.ParseInt(c.Param("y"), 10, 32)
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Некорректные координаты чанка"})
		return 0, 0, false
	}
	return int32(x), int32(y), true
}
