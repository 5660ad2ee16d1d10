package terrain

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/annel0/terrain-editor/internal/brush"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	grass = texture.NewHandle("tileset/grass.blp")
	dirt  = texture.NewHandle("tileset/dirt.blp")
	rock  = texture.NewHandle("tileset/rock.blp")
)

func TestMain(m *testing.M) {
	logging.GetLoggerManager().SetFactory(func(component string) (*logging.Logger, error) {
		return logging.NewWriterLogger(component, io.Discard, logging.ERROR), nil
	})
	os.Exit(m.Run())
}

type strokeRecorder struct {
	added, erased int
	strokes       []int
	loaded        int
}

func (r *strokeRecorder) LayerAdded(texture.Handle)    { r.added++ }
func (r *strokeRecorder) LayerErased(texture.Handle)   { r.erased++ }
func (r *strokeRecorder) SlotExhausted(texture.Handle) {}
func (r *strokeRecorder) ObserveStroke(n int, _ time.Duration) {
	r.strokes = append(r.strokes, n)
}
func (r *strokeRecorder) SetChunksLoaded(n int) { r.loaded = n }

// grassRow создаёт ряд чанков (0,0)..(n-1,0), покрытых травой
func grassRow(t *testing.T, m *Map, n int) {
	t.Helper()
	for x := 0; x < n; x++ {
		c, created := m.AddChunk(vec.Vec2{X: x, Y: 0})
		require.True(t, created)
		_, ok := c.Textures.AddTexture(grass)
		require.True(t, ok)
	}
}

func TestPaintAcrossChunkSeam(t *testing.T) {
	rec := &strokeRecorder{}
	m := NewMap(WithObserver(rec))
	grassRow(t, m, 3)
	assert.Equal(t, 3, rec.loaded)

	pos := vec.Vec2Float{X: textureset.ChunkSize, Y: textureset.ChunkSize / 2}
	b := brush.NewFalloff(textureset.TexDetailSize*3, 1)

	changed := m.Paint(pos, b, 255, 1, dirt)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}}, changed)
	assert.Equal(t, []int{2}, rec.strokes)

	for _, coords := range changed {
		c, err := m.Chunk(coords)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Textures.Find(dirt), "чанк %v", coords)
	}

	far, err := m.Chunk(vec.Vec2{X: 2, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, far.Textures.NumLayers())

	assert.Equal(t, changed, m.Dirty())
}

func TestStrokeCollectsChunks(t *testing.T) {
	m := NewMap()
	grassRow(t, m, 3)

	from := vec.Vec2Float{X: textureset.ChunkSize / 2, Y: textureset.ChunkSize / 2}
	to := vec.Vec2Float{X: textureset.ChunkSize * 2.5, Y: textureset.ChunkSize / 2}
	b := brush.NewFalloff(textureset.TexDetailSize*2, 1)

	changed := m.Stroke(from, to, textureset.TexDetailSize, b, 255, 1, rock)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}, changed)
}

func TestStrokeSteps(t *testing.T) {
	from := vec.Vec2Float{}
	to := vec.Vec2Float{X: textureset.ChunkSize}

	assert.Equal(t, 1, StrokeSteps(from, to, 0))
	assert.Equal(t, 1, StrokeSteps(from, from, 1))
	assert.Equal(t, 4, StrokeSteps(from, to, textureset.ChunkSize/4))
	// шаг меньше текселя считается текселем
	assert.Equal(t, 64, StrokeSteps(from, to, 1e-9))
}

func TestStrokeStepsAreClamped(t *testing.T) {
	rec := &strokeRecorder{}
	m := NewMap(WithObserver(rec))

	far := vec.Vec2Float{X: 1e6}
	b := brush.NewFalloff(1e-9, 1)
	require.Greater(t, StrokeSteps(vec.Vec2Float{}, far, 1e-9), MaxStrokeSteps)

	m.Stroke(vec.Vec2Float{}, far, 1e-9, b, 255, 1, rock)
	assert.Len(t, rec.strokes, MaxStrokeSteps+1)
}

func TestChunkLookup(t *testing.T) {
	m := NewMap()
	m.AddChunk(vec.Vec2{X: -1, Y: -1})

	c, err := m.ChunkAt(vec.Vec2Float{X: -0.1, Y: -textureset.ChunkSize + 0.1})
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: -1, Y: -1}, c.Coords)
	assert.Equal(t, vec.Vec2Float{X: -textureset.ChunkSize, Y: -textureset.ChunkSize}, c.Origin())

	_, err = m.Chunk(vec.Vec2{X: 3, Y: 3})
	assert.ErrorIs(t, err, ErrNoChunk)

	again, created := m.AddChunk(vec.Vec2{X: -1, Y: -1})
	assert.False(t, created)
	assert.Same(t, c, again)
}

func TestSwitchTextureAcrossMap(t *testing.T) {
	m := NewMap()
	grassRow(t, m, 2)
	c, _ := m.AddChunk(vec.Vec2{X: 0, Y: 1})
	c.Textures.AddTexture(dirt)

	assert.Equal(t, 2, m.SwitchTexture(grass, rock))
	assert.Equal(t, 0, m.RemoveDuplicates())
	assert.Equal(t, []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}}, m.Dirty())

	first, _ := m.Chunk(vec.Vec2{X: 0, Y: 0})
	assert.Equal(t, 0, first.Textures.Find(rock))
	first.ClearChanges()
	assert.False(t, first.HasChanges())
}

func TestRemoveChunkReleasesTextures(t *testing.T) {
	cache := texture.NewCache(nil)
	m := NewMap(WithCache(cache))
	grassRow(t, m, 2)
	assert.Equal(t, 2, cache.RefCount(grass))

	require.NoError(t, m.RemoveChunk(vec.Vec2{X: 0, Y: 0}))
	assert.Equal(t, 1, cache.RefCount(grass))
	assert.Equal(t, 1, m.Len())

	assert.ErrorIs(t, m.RemoveChunk(vec.Vec2{X: 0, Y: 0}), ErrNoChunk)
}
