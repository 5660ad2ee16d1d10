// Package preview реализует приёмники загрузок альфы и строит 2D-превью
// чанков: изображения плоскостей, композит текстур, экспорт в WebP и PNG.
package preview

import (
	"image"
	"sync"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/textureset"
)

// Buffer приёмник загрузок в памяти вместо GPU. Реализует textureset.Sink.
type Buffer struct {
	mu      sync.RWMutex
	rgb     [alphamap.Samples * 3]byte
	planes  [textureset.MaxLayers - 1]alphamap.Plane
	uploads int
	dirty   image.Rectangle
}

// NewBuffer создаёт пустой буфер
func NewBuffer() *Buffer {
	return &Buffer{}
}

// UploadAlpha копирует изменённый прямоугольник RGB буфера
func (b *Buffer) UploadAlpha(rgb []byte, dirty image.Rectangle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dirty = dirty.Intersect(image.Rect(0, 0, alphamap.Size, alphamap.Size))
	for j := dirty.Min.Y; j < dirty.Max.Y; j++ {
		from := alphamap.Index(dirty.Min.X, j) * 3
		to := alphamap.Index(dirty.Max.X, j) * 3
		copy(b.rgb[from:to], rgb[from:to])
	}
	b.uploads++
	b.dirty = b.dirty.Union(dirty)
}

// UploadPlane сохраняет плоскость явного слоя 1..3
func (b *Buffer) UploadPlane(layer int, plane *alphamap.Plane) {
	if layer < 1 || layer >= textureset.MaxLayers {
		return
	}
	b.mu.Lock()
	b.planes[layer-1] = *plane
	b.mu.Unlock()
}

// RGB возвращает копию последнего загруженного буфера
func (b *Buffer) RGB() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, len(b.rgb))
	copy(out, b.rgb[:])
	return out
}

// Plane возвращает последнюю загруженную плоскость слоя 1..3
func (b *Buffer) Plane(layer int) (alphamap.Plane, bool) {
	if layer < 1 || layer >= textureset.MaxLayers {
		return alphamap.Plane{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.planes[layer-1], true
}

// Stats возвращает число загрузок и объединение изменённых областей с последнего сброса
func (b *Buffer) Stats() (uploads int, dirty image.Rectangle) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.uploads, b.dirty
}

// ResetStats обнуляет счётчики
func (b *Buffer) ResetStats() {
	b.mu.Lock()
	b.uploads = 0
	b.dirty = image.Rectangle{}
	b.mu.Unlock()
}
