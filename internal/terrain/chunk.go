package terrain

import (
	"sync"

	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
)

// Chunk участок карты со своим набором текстур
type Chunk struct {
	Coords   vec.Vec2               // Координаты чанка на карте
	Textures *textureset.TextureSet // Слои и альфа чанка
	Sink     textureset.Sink        // Приёмник загрузок альфы, может быть nil

	ChangeCounter int          // Счетчик изменений с последнего сохранения
	Mu            sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт чанк с пустым набором текстур
func NewChunk(coords vec.Vec2, sink textureset.Sink, opts ...textureset.Option) *Chunk {
	if sink != nil {
		opts = append(opts, textureset.WithSink(sink))
	}
	return &Chunk{
		Coords:   coords,
		Textures: textureset.New(opts...),
		Sink:     sink,
	}
}

// Origin возвращает мировые координаты угла чанка
func (c *Chunk) Origin() vec.Vec2Float {
	return vec.FromVec2(c.Coords, textureset.ChunkSize)
}

// MarkChanged отмечает чанк изменённым
func (c *Chunk) MarkChanged() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.ChangeCounter++
}

// HasChanges возвращает true, если в чанке есть несохранённые изменения
func (c *Chunk) HasChanges() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счётчик изменений
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.ChangeCounter = 0
}
