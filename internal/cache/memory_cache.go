package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/annel0/terrain-editor/internal/vec"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache кеш превью в памяти процесса
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryCache создаёт пустой кеш
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get возвращает значение, если оно не истекло
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && m.now().After(e.expires)) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set сохраняет копию значения
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// InvalidateChunk удаляет превью чанка и заодно истёкшие записи
func (m *MemoryCache) InvalidateChunk(_ context.Context, coords vec.Vec2) error {
	prefix := chunkPrefix(coords)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if strings.HasPrefix(key, prefix) || (!e.expires.IsZero() && now.After(e.expires)) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len возвращает число записей (включая ещё не вычищенные истёкшие)
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}
