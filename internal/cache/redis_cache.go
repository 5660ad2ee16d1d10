package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализует PreviewCache поверх Redis.
// Несколько экземпляров редактора могут делить один Redis.
type RedisCache struct {
	client *redis.Client
	config *CacheConfig
	logger *logging.Logger

	hits   int64
	misses int64
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(config *CacheConfig) (*RedisCache, error) {
	config.setDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := logging.GetComponentLogger("cache")
	logger.Info("Redis preview cache initialized: %s", config.RedisURL)
	return &RedisCache{client: rdb, config: config, logger: logger}, nil
}

// Get получает превью по ключу
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.hits, 1)
		return val, nil
	}

	atomic.AddInt64(&r.misses, 1)
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	r.logger.Error("Redis Get error for key %s: %v", key, err)
	return nil, fmt.Errorf("redis get error: %w", err)
}

// Set сохраняет превью; TTL ограничен MaxTTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl > r.config.MaxTTL {
		ttl = r.config.MaxTTL
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// InvalidateChunk удаляет ключи чанка, найденные через SCAN
func (r *RedisCache) InvalidateChunk(ctx context.Context, coords vec.Vec2) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, chunkPrefix(coords)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	r.logger.Debug("invalidated %d previews of chunk %d,%d", len(keys), coords.X, coords.Y)
	return nil
}

// HitRatio возвращает долю попаданий с момента запуска
func (r *RedisCache) HitRatio() float64 {
	hits := atomic.LoadInt64(&r.hits)
	total := hits + atomic.LoadInt64(&r.misses)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}
