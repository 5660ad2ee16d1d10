package procgen

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// heightField шум Перлина в диапазоне [0, 1]
type heightField struct {
	perlin *perlin.Perlin
	scale  float64
}

func newHeightField(seed int64, scale float64) *heightField {
	return &heightField{
		perlin: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		scale:  scale,
	}
}

// At возвращает значение шума для мировых координат (x, z)
func (h *heightField) At(x, z float64) float64 {
	n := h.perlin.Noise2D(x*h.scale, z*h.scale)
	return math.Min(math.Max((n+1)/2, 0), 1)
}
