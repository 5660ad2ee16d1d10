// Package procgen автоматически текстурирует новые чанки по шуму Перлина:
// палитра текстур распределяется по высоте шума с плавными переходами.
package procgen

import (
	"math"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
	"github.com/annel0/terrain-editor/internal/vec"
)

// DefaultNoiseScale масштаб шума на мировую единицу
const DefaultNoiseScale = 0.01

// Generator текстурирует чанки по палитре, упорядоченной по высоте шума
type Generator struct {
	Seed    int64
	Palette []texture.Handle

	field *heightField
}

// NewGenerator создаёт генератор. Из палитры используются первые MaxLayers текстур.
func NewGenerator(seed int64, scale float64, palette []texture.Handle) *Generator {
	if len(palette) > textureset.MaxLayers {
		palette = palette[:textureset.MaxLayers]
	}
	if scale <= 0 {
		scale = DefaultNoiseScale
	}
	return &Generator{
		Seed:    seed,
		Palette: palette,
		field:   newHeightField(seed, scale),
	}
}

// Height возвращает высоту шума в точке
func (g *Generator) Height(pos vec.Vec2Float) float64 {
	return g.field.At(pos.X, pos.Y)
}

// weights распределяет высоту h по палитре из n текстур: соседние текстуры
// смешиваются линейно, сумма весов равна 1
func weights(h float64, n int, out []float64) {
	for k := range out {
		out[k] = 0
	}
	if n == 1 {
		out[0] = 1
		return
	}
	pos := h * float64(n-1)
	for k := 0; k < n; k++ {
		out[k] = math.Max(0, 1-math.Abs(pos-float64(k)))
	}
}

// Texture заполняет ts слоями палитры для чанка с углом origin.
// Невидимые текстуры палитры удаляются. Пустая палитра оставляет набор пустым.
func (g *Generator) Texture(ts *textureset.TextureSet, origin vec.Vec2Float) {
	n := len(g.Palette)
	if n == 0 {
		ts.EraseAll()
		return
	}

	planes := make([]alphamap.Plane, n)
	w := make([]float64, n)

	for j := 0; j < alphamap.Size; j++ {
		z := origin.Y + (float64(j)+0.5)*textureset.TexDetailSize
		for i := 0; i < alphamap.Size; i++ {
			x := origin.X + (float64(i)+0.5)*textureset.TexDetailSize
			weights(g.field.At(x, z), n, w)

			// накопленное округление: сумма явных слоёв не превышает 255
			offset := alphamap.Index(i, j)
			cum, prev := 0.0, 0.0
			for k := 1; k < n; k++ {
				cum += w[k] * 255
				rounded := math.Round(cum)
				planes[k][offset] = uint8(rounded - prev)
				prev = rounded
			}
		}
	}

	layers := make([]textureset.LayerData, n)
	for k, tex := range g.Palette {
		layers[k] = textureset.LayerData{Texture: tex}
		if k > 0 {
			layers[k].Flags = textureset.FlagAlphaMap
			layers[k].Alpha = &planes[k]
		}
	}

	ts.Init(layers, true)
	ts.EraseUnused()
}
