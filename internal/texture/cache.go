package texture

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// Loader загружает декодированное изображение текстуры по нормализованному имени
type Loader interface {
	Load(name string) (*image.NRGBA, error)
}

// Cache потокобезопасный кеш текстур с подсчётом ссылок.
// Один Handle может одновременно использоваться многими чанками.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*cacheEntry
	loader Loader
}

type cacheEntry struct {
	refs   int
	img    *image.NRGBA
	thumbs map[int]*image.NRGBA
	loaded bool // true если загрузка уже выполнялась (img может остаться nil)
	err    error
}

// NewCache создаёт кеш. loader может быть nil: тогда изображения недоступны,
// а Handle работают только как идентификаторы.
func NewCache(loader Loader) *Cache {
	return &Cache{
		items:  make(map[string]*cacheEntry),
		loader: loader,
	}
}

// Acquire возвращает Handle на текстуру и увеличивает счётчик ссылок
func (c *Cache) Acquire(filename string) Handle {
	h := NewHandle(filename)
	if h.IsZero() {
		return h
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[h.name]
	if !ok {
		entry = &cacheEntry{}
		c.items[h.name] = entry
	}
	entry.refs++
	return h
}

// Retain увеличивает счётчик ссылок уже полученного Handle
func (c *Cache) Retain(h Handle) {
	if h.IsZero() {
		return
	}
	c.Acquire(h.name)
}

// Release уменьшает счётчик ссылок; при нуле запись удаляется вместе с пикселями
func (c *Cache) Release(h Handle) {
	if h.IsZero() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[h.name]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(c.items, h.name)
	}
}

// RefCount возвращает текущее число ссылок на текстуру
func (c *Cache) RefCount(h Handle) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.items[h.name]; ok {
		return entry.refs
	}
	return 0
}

// Len возвращает число живых записей кеша
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Image загружает и кеширует изображение текстуры
func (c *Cache) Image(h Handle) (*image.NRGBA, error) {
	// Fast path: read lock
	c.mu.RLock()
	entry, ok := c.items[h.name]
	if ok && entry.loaded {
		img, err := entry.img, entry.err
		c.mu.RUnlock()
		return img, err
	}
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("texture: %q is not acquired", h.name)
	}
	if c.loader == nil {
		return nil, fmt.Errorf("texture: no loader for %q", h.name)
	}

	// Slow path: загрузка вне блокировки
	img, err := c.loader.Load(h.name)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok = c.items[h.name]
	if !ok {
		return img, err
	}
	if entry.loaded {
		return entry.img, entry.err
	}
	entry.img, entry.err, entry.loaded = img, err, true
	return img, err
}

// Thumbnail возвращает изображение текстуры, масштабированное до size x size
func (c *Cache) Thumbnail(h Handle, size int) (*image.NRGBA, error) {
	c.mu.RLock()
	if entry, ok := c.items[h.name]; ok && entry.thumbs != nil {
		if thumb, ok := entry.thumbs[size]; ok {
			c.mu.RUnlock()
			return thumb, nil
		}
	}
	c.mu.RUnlock()

	img, err := c.Image(h)
	if err != nil {
		return nil, err
	}

	thumb := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)

	c.mu.Lock()
	if entry, ok := c.items[h.name]; ok {
		if entry.thumbs == nil {
			entry.thumbs = make(map[int]*image.NRGBA)
		}
		entry.thumbs[size] = thumb
	}
	c.mu.Unlock()

	return thumb, nil
}
