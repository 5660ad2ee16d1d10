package cache

import (
	"context"
	"time"

	"github.com/annel0/terrain-editor/internal/vec"
)

// Distributed: локальный кеш, инвалидации которого рассылаются другим узлам
// и принимаются от них.
type Distributed struct {
	local       PreviewCache
	invalidator CacheInvalidator
	cancel      context.CancelFunc
}

// NewDistributed подписывает local на чужие инвалидации
func NewDistributed(ctx context.Context, local PreviewCache, inv CacheInvalidator) (*Distributed, error) {
	ctx, cancel := context.WithCancel(ctx)
	err := inv.SubscribeInvalidations(ctx, func(coords vec.Vec2) error {
		return local.InvalidateChunk(context.Background(), coords)
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &Distributed{local: local, invalidator: inv, cancel: cancel}, nil
}

func (d *Distributed) Get(ctx context.Context, key string) ([]byte, error) {
	return d.local.Get(ctx, key)
}

func (d *Distributed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return d.local.Set(ctx, key, value, ttl)
}

// InvalidateChunk чистит локальный кеш и оповещает остальные узлы
func (d *Distributed) InvalidateChunk(ctx context.Context, coords vec.Vec2) error {
	if err := d.local.InvalidateChunk(ctx, coords); err != nil {
		return err
	}
	return d.invalidator.PublishInvalidation(ctx, coords)
}

func (d *Distributed) Close() error {
	d.cancel()
	err := d.invalidator.Close()
	if lerr := d.local.Close(); err == nil {
		err = lerr
	}
	return err
}
