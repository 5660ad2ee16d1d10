package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/brush"
	"github.com/annel0/terrain-editor/internal/cache"
	"github.com/annel0/terrain-editor/internal/chunkio"
	"github.com/annel0/terrain-editor/internal/middleware"
	"github.com/annel0/terrain-editor/internal/observability"
	"github.com/annel0/terrain-editor/internal/preview"
	"github.com/annel0/terrain-editor/internal/storage"
	"github.com/annel0/terrain-editor/internal/terrain"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// LayerInfo описывает слой в ответе API
type LayerInfo struct {
	Index    int     `json:"index"`
	Texture  string  `json:"texture"`
	Flags    uint32  `json:"flags"`
	Effect   uint32  `json:"effect"`
	Animated bool    `json:"animated"`
	Explicit bool    `json:"explicit"`
	Coverage float64 `json:"coverage"` // средняя доля покрытия 0..1
}

// ChunkInfo описывает чанк в ответе API
type ChunkInfo struct {
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Dirty   bool        `json:"dirty"`
	Layers  []LayerInfo `json:"layers"`
	Uploads int         `json:"uploads,omitempty"`
}

// PaintRequest мазок в мировых координатах. Если задана конечная точка,
// мазок интерполируется с шагом spacing.
type PaintRequest struct {
	X        float64  `json:"x"`
	Z        float64  `json:"z"`
	ToX      *float64 `json:"to_x,omitempty"`
	ToZ      *float64 `json:"to_z,omitempty"`
	Spacing  float64  `json:"spacing,omitempty"`
	Texture  string   `json:"texture" binding:"required"`
	Radius   *float64 `json:"radius,omitempty"`
	Hardness *float64 `json:"hardness,omitempty"`
	Strength *float64 `json:"strength,omitempty"`
	Pressure *float64 `json:"pressure,omitempty"`
}

// SwitchRequest замена текстуры во всех чанках
type SwitchRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// chunkParam находит чанк по :x/:y; при ошибке ответ уже отправлен
func (s *Server) chunkParam(c *gin.Context) (*terrain.Chunk, bool) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		fail(c, http.StatusBadRequest, "Неверные координаты чанка")
		return nil, false
	}

	chunk, err := s.cfg.Map.Chunk(vec.Vec2{X: x, Y: y})
	if errors.Is(err, terrain.ErrNoChunk) {
		fail(c, http.StatusNotFound, "Чанк не загружен")
		return nil, false
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return chunk, true
}

func chunkInfo(chunk *terrain.Chunk) ChunkInfo {
	chunk.Mu.RLock()
	defer chunk.Mu.RUnlock()

	ts := chunk.Textures
	info := ChunkInfo{
		X:      chunk.Coords.X,
		Y:      chunk.Coords.Y,
		Dirty:  chunk.ChangeCounter > 0,
		Layers: make([]LayerInfo, 0, ts.NumLayers()),
	}
	for k, l := range ts.Layers() {
		plane, _ := ts.Plane(k)
		sum := 0
		for _, v := range plane {
			sum += int(v)
		}
		info.Layers = append(info.Layers, LayerInfo{
			Index:    k,
			Texture:  l.Texture.Filename(),
			Flags:    uint32(l.Flags),
			Effect:   l.Effect,
			Animated: ts.IsAnimated(k),
			Explicit: l.Kind() == textureset.AlphaExplicit,
			Coverage: float64(sum) / (255 * alphamap.Samples),
		})
	}
	if buf, ok := chunk.Sink.(*preview.Buffer); ok {
		info.Uploads, _ = buf.Stats()
	}
	return info
}

// handleListChunks возвращает загруженные чанки
func (s *Server) handleListChunks(c *gin.Context) {
	coords := s.cfg.Map.Coords()
	out := make([]ChunkInfo, 0, len(coords))
	for _, cc := range coords {
		chunk, err := s.cfg.Map.Chunk(cc)
		if err != nil {
			continue
		}
		out = append(out, chunkInfo(chunk))
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: out})
}

// handleChunkInfo возвращает слои одного чанка
func (s *Server) handleChunkInfo(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: chunkInfo(chunk)})
}

// writeImage кодирует изображение из render и отдаёт его; готовые превью
// берутся из кеша по ключу (чанк, kind, формат, масштаб).
func (s *Server) writeImage(c *gin.Context, coords vec.Vec2, kind string, render func() (image.Image, bool)) {
	format := c.DefaultQuery("format", "webp")
	if format != "webp" && format != "png" {
		fail(c, http.StatusBadRequest, "Неизвестный формат изображения")
		return
	}
	scale := s.cfg.Preview.Scale
	if v := c.Query("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 32 {
			fail(c, http.StatusBadRequest, "Неверный масштаб")
			return
		}
		scale = n
	}

	key := cache.PreviewKey(coords, kind, format, scale)
	if s.cfg.Previews != nil {
		data, err := s.cfg.Previews.Get(c.Request.Context(), key)
		if err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "image/"+format, data)
			return
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("preview cache get %s: %v", key, err)
		}
	}

	img, ok := render()
	if !ok {
		fail(c, http.StatusNotFound, "Слой не найден")
		return
	}

	var buf bytes.Buffer
	if err := preview.Encode(&buf, preview.Scale(img, scale), format); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if s.cfg.Previews != nil {
		if err := s.cfg.Previews.Set(c.Request.Context(), key, buf.Bytes(), 0); err != nil {
			s.logger.Warn("preview cache set %s: %v", key, err)
		}
	}
	c.Data(http.StatusOK, "image/"+format, buf.Bytes())
}

// invalidatePreviews сбрасывает закешированные превью изменённых чанков
func (s *Server) invalidatePreviews(ctx context.Context, coords []vec.Vec2) {
	if s.cfg.Previews == nil {
		return
	}
	for _, cc := range coords {
		if err := s.cfg.Previews.InvalidateChunk(ctx, cc); err != nil {
			s.logger.Warn("preview invalidation %d,%d: %v", cc.X, cc.Y, err)
		}
	}
}

// handleAlphaImage отдаёт плоскость покрытия слоя в оттенках серого
func (s *Server) handleAlphaImage(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}
	layer, err := strconv.Atoi(c.Param("layer"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Неверный номер слоя")
		return
	}

	s.writeImage(c, chunk.Coords, fmt.Sprintf("alpha%d", layer), func() (image.Image, bool) {
		chunk.Mu.RLock()
		plane, ok := chunk.Textures.Plane(layer)
		chunk.Mu.RUnlock()
		if !ok {
			return nil, false
		}
		return preview.PlaneImage(&plane), true
	})
}

// handlePreview отдаёт композит текстур чанка
func (s *Server) handlePreview(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}

	var thumbs preview.Thumbnailer
	if s.cfg.Cache != nil {
		thumbs = s.cfg.Cache
	}

	s.writeImage(c, chunk.Coords, "composite", func() (image.Image, bool) {
		chunk.Mu.RLock()
		defer chunk.Mu.RUnlock()
		return preview.Compose(chunk.Textures, thumbs), true
	})
}

// handleExport отдаёт слои чанка в бинарном формате файла чанка
func (s *Server) handleExport(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}
	format, err := chunkio.ParseFormat(c.DefaultQuery("alpha", "compressed"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	chunk.Mu.RLock()
	file := chunkio.NewFile(chunk.Textures, format)
	chunk.Mu.RUnlock()

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

// handlePaint применяет мазок к карте
func (s *Server) handlePaint(c *gin.Context) {
	var req PaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	bc := s.cfg.Brush
	radius, hardness := bc.Radius, bc.Hardness
	strength, pressure := bc.Strength, bc.Pressure
	if req.Radius != nil {
		radius = *req.Radius
	}
	if req.Hardness != nil {
		hardness = *req.Hardness
	}
	if req.Strength != nil {
		strength = *req.Strength
	}
	if req.Pressure != nil {
		pressure = *req.Pressure
	}
	if radius <= 0 || strength < 0 || strength > 255 || pressure < 0 || pressure > 1 {
		fail(c, http.StatusBadRequest, "Неверные параметры кисти")
		return
	}

	tex := texture.NewHandle(req.Texture)
	if tex.IsZero() {
		fail(c, http.StatusBadRequest, "Пустое имя текстуры")
		return
	}
	from := vec.Vec2Float{X: req.X, Y: req.Z}

	var to *vec.Vec2Float
	spacing := req.Spacing
	if req.ToX != nil && req.ToZ != nil {
		to = &vec.Vec2Float{X: *req.ToX, Y: *req.ToZ}
		if spacing <= 0 {
			spacing = radius / 2
		}
		if terrain.StrokeSteps(from, *to, spacing) > terrain.MaxStrokeSteps {
			fail(c, http.StatusBadRequest, "Слишком длинный мазок для заданного шага")
			return
		}
	}

	_, span := observability.Tracer().Start(c.Request.Context(), "terrain.paint")
	defer span.End()

	b := brush.NewFalloff(radius, hardness)

	var changed []vec.Vec2
	if to != nil {
		changed = s.cfg.Map.Stroke(from, *to, spacing, b, strength, pressure, tex)
	} else {
		changed = s.cfg.Map.Paint(from, b, strength, pressure, tex)
	}
	if changed == nil {
		changed = []vec.Vec2{}
	}
	span.SetAttributes(
		attribute.String("terrain.texture", tex.Filename()),
		attribute.Int("terrain.changed_chunks", len(changed)),
	)
	s.invalidatePreviews(c.Request.Context(), changed)

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: gin.H{"changed": changed}})
}

// handleSwitchTexture заменяет текстуру во всех чанках
func (s *Server) handleSwitchTexture(c *gin.Context) {
	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	n := s.cfg.Map.SwitchTexture(texture.NewHandle(req.From), texture.NewHandle(req.To))
	if n > 0 {
		s.invalidatePreviews(c.Request.Context(), s.cfg.Map.Coords())
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: gin.H{"chunks": n}})
}

// handleCleanup сливает дубликаты и удаляет невидимые слои по всей карте
func (s *Server) handleCleanup(c *gin.Context) {
	merged := s.cfg.Map.RemoveDuplicates()
	erased := s.cfg.Map.EraseUnused()
	if merged+erased > 0 {
		s.invalidatePreviews(c.Request.Context(), s.cfg.Map.Coords())
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: gin.H{
		"merged": merged,
		"erased": erased,
	}})
}

// handleSave сохраняет изменённые чанки; ?snapshot=1 снимает версию до перезаписи
func (s *Server) handleSave(c *gin.Context) {
	if s.cfg.Store == nil {
		fail(c, http.StatusServiceUnavailable, "Хранилище не подключено")
		return
	}
	snapshot := c.Query("snapshot") == "1"

	_, span := observability.Tracer().Start(c.Request.Context(), "terrain.save")
	defer span.End()

	note := "api save " + time.Now().UTC().Format(time.RFC3339)
	if editor := c.GetString(middleware.EditorKey); editor != "" {
		note += " by " + editor
	}

	saved := make([]vec.Vec2, 0)
	for _, coords := range s.cfg.Map.Dirty() {
		chunk, err := s.cfg.Map.Chunk(coords)
		if err != nil {
			continue
		}
		if snapshot && s.cfg.Store.Has(coords) {
			if _, err := s.cfg.Store.Snapshot(coords, note); err != nil {
				s.logger.Warn("snapshot %d,%d: %v", coords.X, coords.Y, err)
			}
		}

		chunk.Mu.Lock()
		err = s.cfg.Store.Save(coords, chunk.Textures)
		if err == nil {
			chunk.ChangeCounter = 0
		}
		chunk.Mu.Unlock()

		if err != nil {
			s.logger.Error("save %d,%d: %v", coords.X, coords.Y, err)
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		saved = append(saved, coords)
	}
	span.SetAttributes(attribute.Int("terrain.saved_chunks", len(saved)))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: gin.H{"saved": saved}})
}

// handleSnapshots возвращает историю чанка
func (s *Server) handleSnapshots(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}
	if s.cfg.Store == nil {
		fail(c, http.StatusServiceUnavailable, "Хранилище не подключено")
		return
	}
	snaps, err := s.cfg.Store.Snapshots(chunk.Coords)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: snaps})
}

// handleRestore возвращает чанк к снимку и перечитывает его в карту
func (s *Server) handleRestore(c *gin.Context) {
	chunk, ok := s.chunkParam(c)
	if !ok {
		return
	}
	if s.cfg.Store == nil {
		fail(c, http.StatusServiceUnavailable, "Хранилище не подключено")
		return
	}

	err := s.cfg.Store.Restore(chunk.Coords, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		fail(c, http.StatusNotFound, "Снимок не найден")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	chunk.Mu.Lock()
	err = s.cfg.Store.Load(chunk.Coords, chunk.Textures, s.cfg.Cache)
	chunk.ChangeCounter = 0
	chunk.Mu.Unlock()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.invalidatePreviews(c.Request.Context(), []vec.Vec2{chunk.Coords})
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: chunkInfo(chunk)})
}

// handleHealth проверка состояния сервера
func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"chunks":    s.cfg.Map.Len(),
		"time":      time.Now().Unix(),
		"uptime":    s.stats.Uptime(),
		"memory_mb": s.stats.MemoryMB(),
	}
	if rss, cpu, err := s.stats.Process(); err == nil {
		resp["rss_mb"] = rss
		resp["cpu_percent"] = cpu
	}
	c.JSON(http.StatusOK, resp)
}
