package preview

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"golang.org/x/image/draw"
)

// Thumbnailer отдаёт уменьшенные изображения текстур (обычно *texture.Cache)
type Thumbnailer interface {
	Thumbnail(h texture.Handle, size int) (*image.NRGBA, error)
}

// AlphaImage строит изображение из чередующегося RGB буфера альфы
func AlphaImage(rgb []byte) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, alphamap.Size, alphamap.Size))
	for i := 0; i < alphamap.Samples && i*3+2 < len(rgb); i++ {
		img.Pix[i*4] = rgb[i*3]
		img.Pix[i*4+1] = rgb[i*3+1]
		img.Pix[i*4+2] = rgb[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// PlaneImage строит изображение в оттенках серого из плоскости покрытия
func PlaneImage(p *alphamap.Plane) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, alphamap.Size, alphamap.Size))
	copy(img.Pix, p[:])
	return img
}

// fallbackColor устойчивый цвет для текстуры без изображения
func fallbackColor(h texture.Handle) color.NRGBA {
	f := fnv.New32a()
	f.Write([]byte(h.Filename()))
	s := f.Sum32()
	return color.NRGBA{R: uint8(s), G: uint8(s >> 8), B: uint8(s >> 16), A: 0xff}
}

// Compose смешивает текстуры слоёв по их покрытию. Текстуры без изображения
// (или при thumbs == nil) заменяются сплошным цветом, вычисленным из имени.
func Compose(ts *textureset.TextureSet, thumbs Thumbnailer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, alphamap.Size, alphamap.Size))
	n := ts.NumLayers()
	if n == 0 {
		return img
	}

	sources := make([]*image.NRGBA, n)
	colors := make([]color.NRGBA, n)
	for k := 0; k < n; k++ {
		h, _ := ts.Texture(k)
		colors[k] = fallbackColor(h)
		if thumbs != nil {
			if thumb, err := thumbs.Thumbnail(h, alphamap.Size); err == nil {
				sources[k] = thumb
			}
		}
	}

	for k := 0; k < n; k++ {
		plane, _ := ts.Plane(k)
		for i := 0; i < alphamap.Samples; i++ {
			w := float64(plane[i]) / 255
			if w == 0 {
				continue
			}
			c := colors[k]
			if src := sources[k]; src != nil {
				c = src.NRGBAAt(i%alphamap.Size, i/alphamap.Size)
			}
			px := img.Pix[i*4 : i*4+4]
			px[0] = clampAdd(px[0], float64(c.R)*w)
			px[1] = clampAdd(px[1], float64(c.G)*w)
			px[2] = clampAdd(px[2], float64(c.B)*w)
			px[3] = 0xff
		}
	}
	return img
}

func clampAdd(v uint8, add float64) uint8 {
	s := float64(v) + add + 0.5
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// Scale увеличивает изображение в factor раз без сглаживания, чтобы были видны сэмплы
func Scale(img image.Image, factor int) *image.NRGBA {
	if factor < 1 {
		factor = 1
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeWebP пишет изображение в формате WebP без потерь
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("WebP encode: %w", err)
	}
	return nil
}

// EncodePNG пишет изображение в PNG
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("PNG encode: %w", err)
	}
	return nil
}

// Encode выбирает кодек по имени формата: "webp" или "png"
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "webp", "":
		return EncodeWebP(w, img)
	case "png":
		return EncodePNG(w, img)
	}
	return fmt.Errorf("preview: unknown image format %q", format)
}
