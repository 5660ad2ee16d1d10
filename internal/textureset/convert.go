package textureset

import "github.com/annel0/terrain-editor/internal/alphamap"

// uncascade переводит каскадные значения слоёв в абсолютное покрытие: каждый
// следующий слой забирает свою долю у всех предыдущих.
func uncascade(alphas []float64) {
	for k := range alphas {
		f := alphas[k]
		for n := 0; n < k; n++ {
			alphas[n] = alphas[n] * (255 - f) / 255
		}
	}
}

// cascade обратное преобразование: от верхнего слоя к нижнему значение
// делится на долю, оставшуюся после вышележащих слоёв. Если вышележащий слой
// полностью непрозрачен, нижние вырождаются в 0.
func cascade(alphas []float64) {
	for k := len(alphas) - 1; k >= 0; k-- {
		for n := len(alphas) - 1; n > k; n-- {
			if alphas[n] == 255 {
				alphas[k] = 0
				break
			}
			alphas[k] = alphas[k] / (255 - alphas[n]) * 255
		}
	}
}

// transformPlanes применяет fn к значениям явных слоёв в каждом сэмпле
func (ts *TextureSet) transformPlanes(fn func(alphas []float64)) []alphamap.Plane {
	n := len(ts.layers) - 1
	planes := make([]alphamap.Plane, n)
	alphas := make([]float64, n)

	for i := 0; i < alphamap.Samples; i++ {
		for k := 0; k < n; k++ {
			alphas[k] = float64(ts.layers[k+1].alpha[i])
		}
		fn(alphas)
		for k := 0; k < n; k++ {
			planes[k][i] = clampByte(alphas[k])
		}
	}
	return planes
}

// BigAlphaPlanes возвращает абсолютные плоскости, считая текущие каскадными.
// Набор не изменяется. Для набора из менее чем двух слоёв: nil.
func (ts *TextureSet) BigAlphaPlanes() []alphamap.Plane {
	if len(ts.layers) < 2 {
		return nil
	}
	return ts.transformPlanes(uncascade)
}

// CascadedPlanes возвращает каскадные плоскости для сохранения в старом формате.
// Набор не изменяется. Для набора из менее чем двух слоёв: nil.
func (ts *TextureSet) CascadedPlanes() []alphamap.Plane {
	if len(ts.layers) < 2 {
		return nil
	}
	return ts.transformPlanes(cascade)
}

// CompressedPlanes возвращает RLE-сжатые плоскости явных слоёв в порядке слоёв
func (ts *TextureSet) CompressedPlanes() [][]byte {
	out := make([][]byte, 0, len(ts.layers))
	for k := 1; k < len(ts.layers); k++ {
		out = append(out, ts.layers[k].alpha.Compress())
	}
	return out
}

func (ts *TextureSet) replacePlanes(planes []alphamap.Plane) {
	for k := range planes {
		ts.layers[k+1].alpha = planes[k]
	}
	ts.generateAlphaTex()
}

// ToBigAlpha переводит каскадные плоскости в абсолютное покрытие
func (ts *TextureSet) ToBigAlpha() {
	if len(ts.layers) < 2 {
		return
	}
	ts.replacePlanes(ts.BigAlphaPlanes())
}

// ToOldAlpha переводит абсолютное покрытие в каскадные плоскости
func (ts *TextureSet) ToOldAlpha() {
	if len(ts.layers) < 2 {
		return
	}
	ts.replacePlanes(ts.CascadedPlanes())
}

// MergeAlpha переносит покрытие слоя id2 в слой id1 и удаляет id2
func (ts *TextureSet) MergeAlpha(id1, id2 int) bool {
	if !ts.valid(id1) || !ts.valid(id2) || id1 == id2 {
		return false
	}

	n := len(ts.layers)
	for i := 0; i < alphamap.Samples; i++ {
		var vis [MaxLayers]float64
		vis[0] = 255
		for k := 1; k < n; k++ {
			vis[k] = float64(ts.layers[k].alpha[i])
			vis[0] -= vis[k]
		}

		vis[id1] += vis[id2]
		vis[id2] = 0

		for k := 1; k < n; k++ {
			ts.layers[k].alpha[i] = clampByte(vis[k])
		}
	}

	ts.eraseLayer(id2)
	ts.generateAlphaTex()
	return true
}

// RemoveDuplicates сливает слои с одинаковой текстурой.
// Возвращает true, если было хотя бы одно слияние.
func (ts *TextureSet) RemoveDuplicates() bool {
	changed := false

	for i := 0; i < len(ts.layers); i++ {
		for j := i + 1; j < len(ts.layers); {
			if ts.layers[i].Texture == ts.layers[j].Texture {
				ts.MergeAlpha(i, j)
				changed = true
				continue
			}
			j++
		}
	}
	return changed
}
