// Package cache хранит закодированные превью чанков (WebP/PNG), чтобы не
// пересобирать композит на каждый запрос. Горячий кеш: Redis или память
// процесса; инвалидация между экземплярами редактора идёт через NATS.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/terrain-editor/internal/vec"
)

// PreviewCache определяет интерфейс кеша превью.
//
// Использование:
//
//	key := cache.PreviewKey(coords, "composite", "webp", 4)
//	data, err := previews.Get(ctx, key)
//	err = previews.Set(ctx, key, data, time.Minute)
//	err = previews.InvalidateChunk(ctx, coords)
type PreviewCache interface {
	// Get возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL. TTL = 0 означает значение по умолчанию.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// InvalidateChunk удаляет все превью чанка.
	InvalidateChunk(ctx context.Context, coords vec.Vec2) error

	Close() error
}

// CacheInvalidator рассылает инвалидации чанков другим экземплярам.
type CacheInvalidator interface {
	PublishInvalidation(ctx context.Context, coords vec.Vec2) error
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error
	Close() error
}

// InvalidationHandler обрабатывает уведомления об инвалидации чанка.
type InvalidationHandler func(coords vec.Vec2) error

// CacheConfig содержит конфигурацию кеша превью. Пустой RedisURL: кеш в памяти,
// пустой NATSURL: без распределённой инвалидации.
type CacheConfig struct {
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxTTL        time.Duration `yaml:"max_ttl"`

	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

func (c *CacheConfig) setDefaults() {
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 5 * time.Minute
	}
	if c.MaxTTL == 0 {
		c.MaxTTL = time.Hour
	}
	if c.Subject == "" {
		c.Subject = "terrain.preview.invalidation"
	}
}

// ErrCacheMiss ключа нет в кеше
var ErrCacheMiss = errors.New("cache miss")

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

const keyPrefix = "preview"

// chunkPrefix общий префикс всех ключей чанка
func chunkPrefix(coords vec.Vec2) string {
	return fmt.Sprintf("%s:%d:%d:", keyPrefix, coords.X, coords.Y)
}

// PreviewKey строит ключ превью, kind равен "composite" или "alpha<N>"
func PreviewKey(coords vec.Vec2, kind, format string, scale int) string {
	return fmt.Sprintf("%s%s:%s:%d", chunkPrefix(coords), kind, format, scale)
}

// New собирает кеш по конфигурации: Redis или память, поверх них NATS при наличии URL.
func New(cfg CacheConfig) (PreviewCache, error) {
	cfg.setDefaults()

	var local PreviewCache
	if cfg.RedisURL != "" {
		rc, err := NewRedisCache(&cfg)
		if err != nil {
			return nil, err
		}
		local = rc
	} else {
		local = NewMemoryCache(cfg.DefaultTTL)
	}

	if cfg.NATSURL == "" {
		return local, nil
	}

	inv, err := NewNATSInvalidator(&cfg, "")
	if err != nil {
		local.Close()
		return nil, err
	}
	return NewDistributed(context.Background(), local, inv)
}
