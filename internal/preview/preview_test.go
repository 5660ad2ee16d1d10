package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	grass = texture.NewHandle("grass.blp")
	dirt  = texture.NewHandle("dirt.blp")
)

func twoLayers(dirtCoverage uint8, opts ...textureset.Option) *textureset.TextureSet {
	var p alphamap.Plane
	p.Fill(dirtCoverage)

	ts := textureset.New(opts...)
	ts.Init([]textureset.LayerData{
		{Texture: grass},
		{Texture: dirt, Flags: textureset.FlagAlphaMap, Alpha: &p},
	}, true)
	return ts
}

type solidThumbs map[texture.Handle]color.NRGBA

func (s solidThumbs) Thumbnail(h texture.Handle, size int) (*image.NRGBA, error) {
	c, ok := s[h]
	if !ok {
		return nil, errors.New("no image")
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

func TestBufferReceivesUploads(t *testing.T) {
	buf := NewBuffer()
	ts := twoLayers(100, textureset.WithSink(buf))

	uploads, dirty := buf.Stats()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, image.Rect(0, 0, 64, 64), dirty)
	assert.Equal(t, ts.AlphaTexture(), buf.RGB())

	p, ok := buf.Plane(1)
	require.True(t, ok)
	assert.Equal(t, uint8(100), p[4095])
	_, ok = buf.Plane(0)
	assert.False(t, ok)

	buf.ResetStats()
	ts.SetAlpha(1, alphamap.Index(5, 7), 30)
	ts.Refresh()
	uploads, _ = buf.Stats()
	assert.Equal(t, 1, uploads)
	assert.Equal(t, uint8(30), buf.RGB()[alphamap.Index(5, 7)*3])
}

func TestAlphaAndPlaneImages(t *testing.T) {
	ts := twoLayers(100)

	img := AlphaImage(ts.AlphaTexture())
	assert.Equal(t, color.NRGBA{R: 100, A: 0xff}, img.NRGBAAt(10, 20))

	p, _ := ts.Plane(0)
	gray := PlaneImage(&p)
	assert.Equal(t, uint8(155), gray.GrayAt(63, 63).Y)
}

func TestCompose(t *testing.T) {
	ts := twoLayers(102)
	thumbs := solidThumbs{
		grass: {B: 255, A: 255},
		dirt:  {R: 255, A: 255},
	}

	img := Compose(ts, thumbs)
	assert.Equal(t, color.NRGBA{R: 102, B: 153, A: 255}, img.NRGBAAt(0, 0))

	// без изображения: цвет из имени текстуры
	fallback := Compose(twoLayers(0), nil)
	want := fallbackColor(grass)
	assert.Equal(t, want, fallback.NRGBAAt(30, 30))

	empty := Compose(textureset.New(), nil)
	assert.Equal(t, uint8(0), empty.Pix[3])
}

func TestScaleAndEncode(t *testing.T) {
	img := Scale(AlphaImage(twoLayers(200).AlphaTexture()), 3)
	assert.Equal(t, image.Rect(0, 0, 192, 192), img.Bounds())
	assert.Equal(t, uint8(200), img.NRGBAAt(191, 0).R)

	var webp bytes.Buffer
	require.NoError(t, Encode(&webp, img, "webp"))
	require.Greater(t, webp.Len(), 12)
	assert.Equal(t, "RIFF", string(webp.Bytes()[:4]))
	assert.Equal(t, "WEBP", string(webp.Bytes()[8:12]))

	var pngBuf bytes.Buffer
	require.NoError(t, Encode(&pngBuf, img, "png"))
	decoded, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	assert.Error(t, Encode(&pngBuf, img, "gif"))
}
