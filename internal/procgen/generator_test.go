package procgen

import (
	"testing"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var palette = []texture.Handle{
	texture.NewHandle("sand.blp"),
	texture.NewHandle("grass.blp"),
	texture.NewHandle("dirt.blp"),
	texture.NewHandle("rock.blp"),
	texture.NewHandle("snow.blp"),
}

func TestWeightsSumToOne(t *testing.T) {
	w := make([]float64, 4)
	for _, h := range []float64{0, 0.1, 0.33, 0.5, 0.9, 1} {
		weights(h, 4, w)
		sum := 0.0
		for _, v := range w {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-9, "h=%v", h)
	}

	weights(0, 4, w)
	assert.Equal(t, []float64{1, 0, 0, 0}, w)
}

func TestTextureChunk(t *testing.T) {
	g := NewGenerator(42, 0.05, palette)
	require.Len(t, g.Palette, textureset.MaxLayers)

	ts := textureset.New()
	g.Texture(ts, vec.Vec2Float{X: 100, Y: -40})

	n := ts.NumLayers()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, textureset.MaxLayers)

	for i := 0; i < alphamap.Samples; i++ {
		sum := 0
		for k := 0; k < n; k++ {
			sum += int(ts.Alpha(k, i))
		}
		require.Equal(t, 255, sum, "сэмпл %d", i)
	}

	// детерминированность по сиду
	again := textureset.New()
	NewGenerator(42, 0.05, palette).Texture(again, vec.Vec2Float{X: 100, Y: -40})
	require.Equal(t, n, again.NumLayers())
	for k := 0; k < n; k++ {
		a, _ := ts.Plane(k)
		b, _ := again.Plane(k)
		assert.Equal(t, a, b)
	}
}

func TestTextureSinglePalette(t *testing.T) {
	g := NewGenerator(1, 0, palette[:1])
	ts := textureset.New()
	g.Texture(ts, vec.Vec2Float{})

	require.Equal(t, 1, ts.NumLayers())
	assert.Equal(t, "sand.blp", ts.Filename(0))

	NewGenerator(1, 0, nil).Texture(ts, vec.Vec2Float{})
	assert.Equal(t, 0, ts.NumLayers())
}
