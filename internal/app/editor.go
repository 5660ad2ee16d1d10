// Package app собирает компоненты редактора в одну сессию: конфигурация,
// кеш текстур, карта чанков, хранилище, автотекстурирование и метрики.
package app

import (
	"errors"
	"fmt"

	"github.com/annel0/terrain-editor/internal/chunkio"
	"github.com/annel0/terrain-editor/internal/config"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/metrics"
	"github.com/annel0/terrain-editor/internal/preview"
	"github.com/annel0/terrain-editor/internal/procgen"
	"github.com/annel0/terrain-editor/internal/storage"
	"github.com/annel0/terrain-editor/internal/terrain"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
)

// Editor рабочая сессия редактора
type Editor struct {
	Config    *config.Config
	Cache     *texture.Cache
	Map       *terrain.Map
	Store     *storage.TextureStore
	Metrics   *metrics.EditorMetrics
	Generator *procgen.Generator
	Format    chunkio.Format

	logger *logging.Logger
}

// NewEditor открывает хранилище и создаёт пустую карту
func NewEditor(cfg *config.Config, reg prometheus.Registerer) (*Editor, error) {
	format, err := chunkio.ParseFormat(cfg.Editor.AlphaFormat)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewTextureStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	cache := texture.NewCache(texture.FileLoader{Root: cfg.Textures.Root})
	m := metrics.NewEditorMetrics(reg)

	palette := make([]texture.Handle, 0, len(cfg.Textures.Palette))
	for _, name := range cfg.Textures.Palette {
		palette = append(palette, texture.NewHandle(name))
	}

	return &Editor{
		Config: cfg,
		Cache:  cache,
		Map: terrain.NewMap(
			terrain.WithCache(cache),
			terrain.WithObserver(m),
			terrain.WithSinkFactory(func(vec.Vec2) textureset.Sink { return preview.NewBuffer() }),
		),
		Store:     store,
		Metrics:   m,
		Generator: procgen.NewGenerator(cfg.Editor.Seed, procgen.DefaultNoiseScale, palette),
		Format:    format,
		logger:    logging.GetEditorLogger(),
	}, nil
}

// Close закрывает хранилище
func (e *Editor) Close() error {
	return e.Store.Close()
}

// EnsureChunk загружает чанк из хранилища или генерирует новый.
// Уже загруженный чанк возвращается как есть.
func (e *Editor) EnsureChunk(coords vec.Vec2) (*terrain.Chunk, error) {
	c, created := e.Map.AddChunk(coords)
	if !created {
		return c, nil
	}

	c.Mu.Lock()
	defer c.Mu.Unlock()

	err := e.Store.Load(coords, c.Textures, e.Cache)
	if errors.Is(err, storage.ErrNotFound) {
		e.Generator.Texture(c.Textures, c.Origin())
		c.ChangeCounter++
		e.logger.Debug("generated chunk %d,%d with %d layers", coords.X, coords.Y, c.Textures.NumLayers())
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk %d,%d: %w", coords.X, coords.Y, err)
	}
	return c, nil
}

// EnsureArea загружает прямоугольник чанков [min, max] включительно
func (e *Editor) EnsureArea(min, max vec.Vec2) error {
	for y := min.Y; y <= max.Y; y++ {
		for x := min.X; x <= max.X; x++ {
			if _, err := e.EnsureChunk(vec.Vec2{X: x, Y: y}); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadAll загружает в карту все сохранённые чанки
func (e *Editor) LoadAll() (int, error) {
	coords, err := e.Store.List()
	if err != nil {
		return 0, err
	}
	for _, c := range coords {
		if _, err := e.EnsureChunk(c); err != nil {
			return 0, err
		}
	}
	return len(coords), nil
}

// SaveDirty сохраняет изменённые чанки. snapshot == true снимает предыдущую
// версию каждого уже сохранённого чанка в историю.
func (e *Editor) SaveDirty(snapshot bool, note string) ([]vec.Vec2, error) {
	var saved []vec.Vec2
	for _, coords := range e.Map.Dirty() {
		c, err := e.Map.Chunk(coords)
		if err != nil {
			continue
		}
		if snapshot && e.Store.Has(coords) {
			if _, err := e.Store.Snapshot(coords, note); err != nil {
				return saved, err
			}
		}

		c.Mu.Lock()
		err = e.Store.Save(coords, c.Textures)
		if err == nil {
			c.ChangeCounter = 0
		}
		c.Mu.Unlock()
		if err != nil {
			return saved, err
		}
		saved = append(saved, coords)
	}
	e.logger.Info("saved %d chunks", len(saved))
	return saved, nil
}
