package textureset

import (
	"image"
	"testing"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	grass = texture.NewHandle("tileset/grass.blp")
	dirt  = texture.NewHandle("tileset/dirt.blp")
	rock  = texture.NewHandle("tileset/rock.blp")
	sand  = texture.NewHandle("tileset/sand.blp")
	snow  = texture.NewHandle("tileset/snow.blp")
)

type recordingSink struct {
	uploads int
	dirty   []image.Rectangle
	planes  map[int]int
}

func (s *recordingSink) UploadAlpha(rgb []byte, dirty image.Rectangle) {
	s.uploads++
	s.dirty = append(s.dirty, dirty)
}

func (s *recordingSink) UploadPlane(layer int, plane *alphamap.Plane) {
	if s.planes == nil {
		s.planes = make(map[int]int)
	}
	s.planes[layer]++
}

type recordingObserver struct {
	added, erased, exhausted []texture.Handle
}

func (o *recordingObserver) LayerAdded(tex texture.Handle)    { o.added = append(o.added, tex) }
func (o *recordingObserver) LayerErased(tex texture.Handle)   { o.erased = append(o.erased, tex) }
func (o *recordingObserver) SlotExhausted(tex texture.Handle) { o.exhausted = append(o.exhausted, tex) }

func uniform(v uint8) *alphamap.Plane {
	var p alphamap.Plane
	p.Fill(v)
	return &p
}

// newSet собирает набор из текстур и равномерных покрытий явных слоёв
func newSet(t *testing.T, textures []texture.Handle, coverage []uint8, opts ...Option) *TextureSet {
	t.Helper()
	require.Equal(t, len(textures)-1, len(coverage))

	layers := make([]LayerData, len(textures))
	for k, tex := range textures {
		layers[k] = LayerData{Texture: tex}
		if k > 0 {
			layers[k].Alpha = uniform(coverage[k-1])
			layers[k].Flags = FlagAlphaMap
		}
	}

	ts := New(opts...)
	ts.Init(layers, true)
	return ts
}

func assertUniform(t *testing.T, ts *TextureSet, id int, want uint8) {
	t.Helper()
	for i := 0; i < alphamap.Samples; i++ {
		if got := ts.Alpha(id, i); got != want {
			t.Fatalf("слой %d, сэмпл %d: покрытие %d, ожидалось %d", id, i, got, want)
		}
	}
}

func TestAddTextureCapacity(t *testing.T) {
	obs := &recordingObserver{}
	ts := New(WithObserver(obs))

	for k, tex := range []texture.Handle{grass, dirt, rock, sand} {
		id, ok := ts.AddTexture(tex)
		require.True(t, ok)
		assert.Equal(t, k, id)
	}
	assert.Equal(t, 4, ts.NumLayers())

	id, ok := ts.AddTexture(snow)
	assert.False(t, ok)
	assert.Equal(t, -1, id)
	assert.Equal(t, 4, ts.NumLayers())

	// уже существующая текстура не занимает новый слот
	id, ok = ts.AddTexture(rock)
	assert.False(t, ok)
	assert.Equal(t, 2, id)
	assert.Equal(t, 4, ts.NumLayers())

	assert.True(t, ts.CanPaint(rock))
	assert.False(t, ts.CanPaint(snow))
	assert.Len(t, obs.added, 4)

	// новый явный слой создаётся с нулевым покрытием
	assertUniform(t, ts, 3, 0)
	assertUniform(t, ts, 0, 255)
}

func TestCanPaintEmptySet(t *testing.T) {
	ts := New()
	assert.True(t, ts.CanPaint(grass))
	assert.Equal(t, 0, ts.NumLayers())
}

func TestSwitchTexture(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt}, []uint8{40})

	assert.False(t, ts.SwitchTexture(grass, dirt), "дубликат запрещён")
	assert.False(t, ts.SwitchTexture(rock, sand), "старой текстуры нет")
	assert.True(t, ts.SwitchTexture(dirt, rock))

	tex, ok := ts.Texture(1)
	require.True(t, ok)
	assert.Equal(t, rock, tex)
	assertUniform(t, ts, 1, 40)
}

func TestSwapWithBaseLayer(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt}, []uint8{100})
	ts.ChangeFlag(dirt, FlagAnimate, true)

	require.True(t, ts.SwapTexture(0, 1))

	assert.Equal(t, "tileset/dirt.blp", ts.Filename(0))
	assert.Equal(t, "tileset/grass.blp", ts.Filename(1))
	assert.True(t, ts.IsAnimated(0), "флаги переезжают вместе со слоем")
	assertUniform(t, ts, 0, 100)
	assertUniform(t, ts, 1, 155)

	layers := ts.Layers()
	assert.Equal(t, AlphaImplicit, layers[0].Kind())
	assert.Equal(t, AlphaExplicit, layers[1].Kind())
}

func TestSwapExplicitLayers(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt, rock}, []uint8{30, 60})

	require.True(t, ts.SwapTexture(2, 1), "порядок аргументов нормализуется")
	assert.Equal(t, rock, ts.Layers()[1].Texture)
	assertUniform(t, ts, 1, 60)
	assertUniform(t, ts, 2, 30)
	assertUniform(t, ts, 0, 165)

	assert.False(t, ts.SwapTexture(1, 1))
	assert.False(t, ts.SwapTexture(0, 3))
	assert.False(t, ts.SwapTexture(-1, 2))
}

func TestEraseTexture(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt, rock}, []uint8{30, 60})

	assert.False(t, ts.EraseTexture(3))
	assert.Equal(t, 3, ts.NumLayers())

	require.True(t, ts.EraseTexture(1))
	assert.Equal(t, 2, ts.NumLayers())
	assert.Equal(t, rock, ts.Layers()[1].Texture)
	assertUniform(t, ts, 1, 60)
	assertUniform(t, ts, 0, 195)

	// удаление базового: следующий слой становится остаточным
	require.True(t, ts.EraseTexture(0))
	assert.Equal(t, 1, ts.NumLayers())
	assert.Equal(t, rock, ts.Layers()[0].Texture)
	assert.Equal(t, AlphaImplicit, ts.Layers()[0].Kind())
	assertUniform(t, ts, 0, 255)

	ts.EraseAll()
	assert.Equal(t, 0, ts.NumLayers())
}

func TestEraseUnused(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt, rock}, []uint8{100, 0})

	assert.True(t, ts.EraseUnused())
	assert.Equal(t, 2, ts.NumLayers())
	assert.Equal(t, dirt, ts.Layers()[1].Texture)

	assert.False(t, ts.EraseUnused(), "все слои видимы")
}

func TestEraseUnusedHiddenBase(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt, rock}, []uint8{155, 100})

	assert.True(t, ts.EraseUnused())
	assert.Equal(t, 2, ts.NumLayers())
	assert.Equal(t, dirt, ts.Layers()[0].Texture)
	assertUniform(t, ts, 0, 155)
	assertUniform(t, ts, 1, 100)
}

func TestEraseUnusedSingleLayer(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass}, nil)
	assert.False(t, ts.EraseUnused())
}

func TestChangeFlagAndAnimation(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt}, []uint8{10})

	assert.False(t, ts.IsAnimated(1))
	_, _, ok := ts.AnimOffset(1, 100, 8)
	assert.False(t, ok)

	require.True(t, ts.ChangeFlag(dirt, FlagAnimate|Flags(7<<3)|2, true))
	assert.True(t, ts.IsAnimated(1))
	assert.Equal(t, 7, ts.Flag(1).Speed())
	assert.Equal(t, 2, ts.Flag(1).Direction())
	assert.NotZero(t, ts.Flag(1)&FlagAlphaMap, "прочие флаги сохраняются")

	dx, dy, ok := ts.AnimOffset(1, 800, 8)
	require.True(t, ok)
	assert.InDelta(t, -0.5, dx, 1e-9)
	assert.InDelta(t, 0, dy, 1e-9)

	// новые биты движения заменяют старые целиком
	ts.ChangeFlag(dirt, Flags(1<<3), true)
	assert.Equal(t, 1, ts.Flag(1).Speed())
	assert.Equal(t, 0, ts.Flag(1).Direction())

	ts.ChangeFlag(dirt, FlagAnimate, false)
	assert.False(t, ts.IsAnimated(1))
	assert.False(t, ts.ChangeFlag(snow, FlagAnimate, true))
	assert.False(t, ts.IsAnimated(7))
}

func TestAlphaAccessors(t *testing.T) {
	ts := newSet(t, []texture.Handle{grass, dirt}, []uint8{0})

	assert.True(t, ts.SetAlpha(1, 5, 200))
	assert.Equal(t, uint8(200), ts.Alpha(1, 5))
	assert.Equal(t, uint8(55), ts.Alpha(0, 5))
	assert.False(t, ts.SetAlpha(0, 5, 1), "базовый слой не хранит плоскость")
	assert.False(t, ts.SetAlpha(1, alphamap.Samples, 1))
	assert.Equal(t, uint8(0), ts.Alpha(4, 0))

	assert.True(t, ts.SetAlphaPlane(1, uniform(9)))
	assertUniform(t, ts, 1, 9)
	assert.Equal(t, uint8(9), ts.AlphaTexture()[0])
	assert.Equal(t, uint8(0), ts.AlphaTexture()[1])

	base, ok := ts.Plane(0)
	require.True(t, ok)
	assert.Equal(t, uint8(246), base[100])
	_, ok = ts.Plane(2)
	assert.False(t, ok)

	assert.True(t, ts.SetEffect(1, 77))
	assert.Equal(t, uint32(77), ts.Effect(1))
}

func TestRefsFollowLayers(t *testing.T) {
	cache := texture.NewCache(nil)
	ts := New(WithRefs(cache))

	ts.AddTexture(grass)
	ts.AddTexture(dirt)
	assert.Equal(t, 1, cache.RefCount(grass))

	ts.SwitchTexture(dirt, rock)
	assert.Equal(t, 0, cache.RefCount(dirt))
	assert.Equal(t, 1, cache.RefCount(rock))

	ts.EraseAll()
	assert.Equal(t, 0, cache.Len())
}

func TestInitTruncatesExtraLayers(t *testing.T) {
	layers := []LayerData{{Texture: grass}, {Texture: dirt}, {Texture: rock}, {Texture: sand}, {Texture: snow}}
	ts := New()
	ts.Init(layers, true)
	assert.Equal(t, MaxLayers, ts.NumLayers())
	assertUniform(t, ts, 1, 0)
}
