package texture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls int
	img   *image.NRGBA
	err   error
}

func (l *countingLoader) Load(name string) (*image.NRGBA, error) {
	l.calls++
	return l.img, l.err
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestHandleEquality(t *testing.T) {
	a := NewHandle(`Tileset\Elwynn\ElwynnGrass01.blp`)
	b := NewHandle("tileset/elwynn/elwynngrass01.blp")
	c := NewHandle("tileset/elwynn/elwynndirt01.blp")

	assert.Equal(t, a, b)
	assert.True(t, a == b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "tileset/elwynn/elwynngrass01.blp", a.Filename())
	assert.True(t, NewHandle("").IsZero())
}

func TestCacheRefCounting(t *testing.T) {
	cache := NewCache(nil)

	h1 := cache.Acquire("a.blp")
	h2 := cache.Acquire("A.BLP")
	require.Equal(t, h1, h2)
	assert.Equal(t, 2, cache.RefCount(h1))

	cache.Retain(h1)
	assert.Equal(t, 3, cache.RefCount(h1))

	cache.Release(h1)
	cache.Release(h2)
	assert.Equal(t, 1, cache.RefCount(h1))
	assert.Equal(t, 1, cache.Len())

	cache.Release(h1)
	assert.Equal(t, 0, cache.RefCount(h1))
	assert.Equal(t, 0, cache.Len())

	// повторный Release безопасен
	cache.Release(h1)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheImageLoadsOnce(t *testing.T) {
	loader := &countingLoader{img: solid(8, 8, color.NRGBA{R: 10, G: 20, B: 30, A: 255})}
	cache := NewCache(loader)
	h := cache.Acquire("grass.blp")

	for i := 0; i < 3; i++ {
		img, err := cache.Image(h)
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
	}
	assert.Equal(t, 1, loader.calls)

	thumb, err := cache.Thumbnail(h, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), thumb.Bounds())
	px := thumb.NRGBAAt(1, 1)
	assert.InDelta(t, 10, int(px.R), 1)
	assert.InDelta(t, 20, int(px.G), 1)
	assert.InDelta(t, 30, int(px.B), 1)
}

func TestCacheImageErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("boom")}
	cache := NewCache(loader)

	_, err := cache.Image(NewHandle("missing.blp"))
	assert.Error(t, err, "не полученная текстура")

	h := cache.Acquire("broken.blp")
	_, err = cache.Image(h)
	assert.Error(t, err)
	_, err = cache.Image(h)
	assert.Error(t, err)
	assert.Equal(t, 1, loader.calls, "ошибка загрузки тоже кешируется")
}

func TestFileLoaderBLPFallback(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "tileset")
	require.NoError(t, os.MkdirAll(dir, 0755))

	f, err := os.Create(filepath.Join(dir, "grass.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(2, 2, color.NRGBA{G: 200, A: 255})))
	require.NoError(t, f.Close())

	img, err := FileLoader{Root: root}.Load("tileset/grass.blp")
	require.NoError(t, err)
	assert.Equal(t, uint8(200), img.NRGBAAt(0, 0).G)

	_, err = FileLoader{Root: root}.Load("tileset/none.blp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
