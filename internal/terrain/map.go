// Package terrain описывает карту редактора: сетку чанков, каждый со своим набором
// текстур, и мазки кистью в мировых координатах через границы чанков.
package terrain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/annel0/terrain-editor/internal/brush"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
)

// ErrNoChunk чанк не загружен в карту
var ErrNoChunk = errors.New("terrain: chunk not loaded")

// StrokeObserver получает сведения о завершённых мазках (обычно *metrics.EditorMetrics)
type StrokeObserver interface {
	textureset.Observer
	ObserveStroke(changedChunks int, elapsed time.Duration)
	SetChunksLoaded(n int)
}

// Option настраивает Map
type Option func(*Map)

// WithCache включает учёт ссылок на текстуры во всех чанках
func WithCache(c *texture.Cache) Option {
	return func(m *Map) { m.cache = c }
}

// WithObserver подключает метрики
func WithObserver(o StrokeObserver) Option {
	return func(m *Map) { m.observer = o }
}

// WithSinkFactory задаёт приёмник загрузок альфы для каждого нового чанка
func WithSinkFactory(f func(coords vec.Vec2) textureset.Sink) Option {
	return func(m *Map) { m.sinks = f }
}

// Map загруженные чанки редактора
type Map struct {
	chunks map[vec.Vec2]*Chunk
	mu     sync.RWMutex

	cache    *texture.Cache
	observer StrokeObserver
	sinks    func(coords vec.Vec2) textureset.Sink
	logger   *logging.Logger
}

// NewMap создаёт пустую карту
func NewMap(opts ...Option) *Map {
	m := &Map{
		chunks: make(map[vec.Vec2]*Chunk),
		logger: logging.GetEditorLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Map) setOptions() []textureset.Option {
	var opts []textureset.Option
	if m.cache != nil {
		opts = append(opts, textureset.WithRefs(m.cache))
	}
	if m.observer != nil {
		opts = append(opts, textureset.WithObserver(m.observer))
	}
	return opts
}

// AddChunk возвращает чанк по координатам, создавая пустой при отсутствии.
// created == true, если чанк создан этим вызовом.
func (m *Map) AddChunk(coords vec.Vec2) (c *Chunk, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.chunks[coords]; ok {
		return c, false
	}

	var sink textureset.Sink
	if m.sinks != nil {
		sink = m.sinks(coords)
	}
	c = NewChunk(coords, sink, m.setOptions()...)
	m.chunks[coords] = c

	if m.observer != nil {
		m.observer.SetChunksLoaded(len(m.chunks))
	}
	return c, true
}

// RemoveChunk выгружает чанк и освобождает его текстуры
func (m *Map) RemoveChunk(coords vec.Vec2) error {
	m.mu.Lock()
	c, ok := m.chunks[coords]
	delete(m.chunks, coords)
	n := len(m.chunks)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("chunk %d,%d: %w", coords.X, coords.Y, ErrNoChunk)
	}

	c.Mu.Lock()
	c.Textures.EraseAll()
	c.Mu.Unlock()

	if m.observer != nil {
		m.observer.SetChunksLoaded(n)
	}
	return nil
}

// Chunk возвращает загруженный чанк
func (m *Map) Chunk(coords vec.Vec2) (*Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chunks[coords]
	if !ok {
		return nil, fmt.Errorf("chunk %d,%d: %w", coords.X, coords.Y, ErrNoChunk)
	}
	return c, nil
}

// ChunkAt возвращает чанк, содержащий мировую точку
func (m *Map) ChunkAt(pos vec.Vec2Float) (*Chunk, error) {
	return m.Chunk(pos.ChunkOf(textureset.ChunkSize))
}

// Coords возвращает координаты загруженных чанков в порядке (Y, X)
func (m *Map) Coords() []vec.Vec2 {
	m.mu.RLock()
	out := make([]vec.Vec2, 0, len(m.chunks))
	for c := range m.chunks {
		out = append(out, c)
	}
	m.mu.RUnlock()

	sortCoords(out)
	return out
}

// Len возвращает число загруженных чанков
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func sortCoords(cs []vec.Vec2) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Y != cs[j].Y {
			return cs[i].Y < cs[j].Y
		}
		return cs[i].X < cs[j].X
	})
}

// chunksInRadius возвращает загруженные чанки, квадраты которых могут попасть под кисть
func (m *Map) chunksInRadius(pos vec.Vec2Float, radius float64) []*Chunk {
	// запас в один тексель на сдвиг у шва
	r := radius + textureset.TexDetailSize
	minX := int(math.Floor((pos.X - r) / textureset.ChunkSize))
	maxX := int(math.Floor((pos.X + r) / textureset.ChunkSize))
	minY := int(math.Floor((pos.Y - r) / textureset.ChunkSize))
	maxY := int(math.Floor((pos.Y + r) / textureset.ChunkSize))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Chunk
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if c, ok := m.chunks[vec.Vec2{X: x, Y: y}]; ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// Paint применяет мазок с центром pos ко всем чанкам в радиусе кисти.
// Возвращает координаты изменённых чанков.
func (m *Map) Paint(pos vec.Vec2Float, b brush.Brush, strength, pressure float64, tex texture.Handle) []vec.Vec2 {
	start := time.Now()

	var changed []vec.Vec2
	for _, c := range m.chunksInRadius(pos, b.Radius()) {
		origin := c.Origin()

		c.Mu.Lock()
		ok := c.Textures.Paint(origin.X, origin.Y, pos.X, pos.Y, b, strength, pressure, tex)
		if ok {
			c.ChangeCounter++
		}
		c.Mu.Unlock()

		if ok {
			changed = append(changed, c.Coords)
		}
	}

	sortCoords(changed)
	m.logger.Debug("stroke %s at (%.2f, %.2f) r=%.2f changed %d chunks", tex, pos.X, pos.Y, b.Radius(), len(changed))

	if m.observer != nil {
		m.observer.ObserveStroke(len(changed), time.Since(start))
	}
	return changed
}

// MaxStrokeSteps ограничивает число шагов одного мазка
const MaxStrokeSteps = 4096

// StrokeSteps возвращает число шагов мазка от from до to с шагом spacing.
// Шаг меньше текселя не дробит мазок сильнее, чем на тексели.
func StrokeSteps(from, to vec.Vec2Float, spacing float64) int {
	if spacing <= 0 {
		return 1
	}
	spacing = math.Max(spacing, textureset.TexDetailSize)
	steps := math.Ceil(from.DistanceTo(to) / spacing)
	if steps < 1 {
		return 1
	}
	if steps > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(steps)
}

// Stroke интерполирует мазок от from до to с шагом spacing.
// Число шагов не превышает MaxStrokeSteps.
func (m *Map) Stroke(from, to vec.Vec2Float, spacing float64, b brush.Brush, strength, pressure float64, tex texture.Handle) []vec.Vec2 {
	steps := StrokeSteps(from, to, spacing)
	if steps > MaxStrokeSteps {
		m.logger.Warn("stroke of %d steps clamped to %d", steps, MaxStrokeSteps)
		steps = MaxStrokeSteps
	}

	seen := make(map[vec.Vec2]struct{})
	var changed []vec.Vec2
	for i := 0; i <= steps; i++ {
		p := from.Lerp(to, float64(i)/float64(steps))
		for _, c := range m.Paint(p, b, strength, pressure, tex) {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				changed = append(changed, c)
			}
		}
	}
	sortCoords(changed)
	return changed
}

// forEach вызывает fn для каждого чанка под его мьютексом; true от fn отмечает изменение
func (m *Map) forEach(fn func(c *Chunk) bool) int {
	m.mu.RLock()
	chunks := make([]*Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		chunks = append(chunks, c)
	}
	m.mu.RUnlock()

	n := 0
	for _, c := range chunks {
		c.Mu.Lock()
		if fn(c) {
			c.ChangeCounter++
			n++
		}
		c.Mu.Unlock()
	}
	return n
}

// SwitchTexture заменяет текстуру во всех чанках. Возвращает число изменённых чанков.
func (m *Map) SwitchTexture(oldTex, newTex texture.Handle) int {
	n := m.forEach(func(c *Chunk) bool {
		return c.Textures.SwitchTexture(oldTex, newTex)
	})
	m.logger.Info("switch %s -> %s in %d chunks", oldTex, newTex, n)
	return n
}

// RemoveDuplicates сливает повторяющиеся текстуры во всех чанках
func (m *Map) RemoveDuplicates() int {
	return m.forEach(func(c *Chunk) bool {
		return c.Textures.RemoveDuplicates()
	})
}

// EraseUnused удаляет невидимые слои во всех чанках
func (m *Map) EraseUnused() int {
	return m.forEach(func(c *Chunk) bool {
		return c.Textures.EraseUnused()
	})
}

// Dirty возвращает координаты чанков с несохранёнными изменениями
func (m *Map) Dirty() []vec.Vec2 {
	m.mu.RLock()
	var out []vec.Vec2
	for coords, c := range m.chunks {
		if c.HasChanges() {
			out = append(out, coords)
		}
	}
	m.mu.RUnlock()

	sortCoords(out)
	return out
}
