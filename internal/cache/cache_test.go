package cache

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.GetLoggerManager().SetFactory(func(component string) (*logging.Logger, error) {
		return logging.NewWriterLogger(component, io.Discard, logging.ERROR), nil
	})
	os.Exit(m.Run())
}

func TestPreviewKey(t *testing.T) {
	key := PreviewKey(vec.Vec2{X: -1, Y: 12}, "alpha2", "png", 4)
	assert.Equal(t, "preview:-1:12:alpha2:png:4", key)
	assert.NotContains(t, PreviewKey(vec.Vec2{X: 1, Y: 2}, "composite", "webp", 1), chunkPrefix(vec.Vec2{X: 1, Y: 20}))
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemoryCache(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "a", []byte{1, 2}, 0))
	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCacheInvalidateChunk(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCache(time.Minute)

	a := vec.Vec2{X: 1, Y: 2}
	b := vec.Vec2{X: 1, Y: 20}
	require.NoError(t, m.Set(ctx, PreviewKey(a, "composite", "webp", 4), []byte{1}, 0))
	require.NoError(t, m.Set(ctx, PreviewKey(a, "alpha1", "png", 1), []byte{2}, 0))
	require.NoError(t, m.Set(ctx, PreviewKey(b, "composite", "webp", 4), []byte{3}, 0))

	require.NoError(t, m.InvalidateChunk(ctx, a))
	assert.Equal(t, 1, m.Len())

	_, err := m.Get(ctx, PreviewKey(b, "composite", "webp", 4))
	assert.NoError(t, err)
}

type loopback struct {
	published []vec.Vec2
	handler   InvalidationHandler
}

func (l *loopback) PublishInvalidation(_ context.Context, coords vec.Vec2) error {
	l.published = append(l.published, coords)
	return nil
}

func (l *loopback) SubscribeInvalidations(_ context.Context, h InvalidationHandler) error {
	l.handler = h
	return nil
}

func (l *loopback) Close() error { return nil }

func TestDistributedInvalidation(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute)
	inv := &loopback{}

	d, err := NewDistributed(ctx, local, inv)
	require.NoError(t, err)
	defer d.Close()

	c := vec.Vec2{X: 3, Y: 4}
	key := PreviewKey(c, "composite", "webp", 2)

	require.NoError(t, d.Set(ctx, key, []byte{9}, 0))
	require.NoError(t, d.InvalidateChunk(ctx, c))
	assert.Equal(t, []vec.Vec2{c}, inv.published)
	_, err = d.Get(ctx, key)
	assert.True(t, IsCacheMiss(err))

	// инвалидация от другого узла
	require.NoError(t, d.Set(ctx, key, []byte{9}, 0))
	require.NotNil(t, inv.handler)
	require.NoError(t, inv.handler(c))
	_, err = d.Get(ctx, key)
	assert.True(t, IsCacheMiss(err))
	assert.Len(t, inv.published, 1)
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(CacheConfig{})
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &MemoryCache{}, c)
}

func TestUnreachableBackends(t *testing.T) {
	_, err := NewRedisCache(&CacheConfig{RedisURL: "127.0.0.1:1"})
	assert.Error(t, err)

	_, err = NewNATSInvalidator(&CacheConfig{NATSURL: "nats://127.0.0.1:1"}, "node")
	assert.Error(t, err)
}
