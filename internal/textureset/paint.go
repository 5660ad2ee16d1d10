package textureset

import (
	"image"
	"math"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/brush"
	"github.com/annel0/terrain-editor/internal/logging"
	"github.com/annel0/terrain-editor/internal/texture"
)

// Paint применяет один шаг мазка кистью b с центром (x, z) к чанку с углом
// (xbase, zbase). strength задаёт целевое покрытие 0..255, pressure множитель веса кисти.
// Возвращает true, если покрытие изменилось (или чанк уже целиком покрыт tex).
func (ts *TextureSet) Paint(xbase, zbase, x, z float64, b brush.Brush, strength, pressure float64, tex texture.Handle) bool {
	// смещение на тексель, чтобы мазок смешивался на стыке соседних чанков
	if z < zbase {
		zbase -= TexDetailSize
	} else if z > zbase+ChunkSize {
		zbase += TexDetailSize
	}
	if x < xbase {
		xbase -= TexDetailSize
	} else if x > xbase+ChunkSize {
		xbase += TexDetailSize
	}

	radius := b.Radius()
	if ShortestDist(x, z, xbase, zbase, ChunkSize) > radius {
		return false
	}

	texLevel := ts.Find(tex)
	if texLevel == -1 && strength == 0 {
		return false
	}

	evicted := false
	if texLevel == -1 && len(ts.layers) == MaxLayers {
		evicted = ts.EraseUnused()
	}
	if texLevel == -1 && len(ts.layers) == MaxLayers {
		logging.Debug("paintTexture: no free texture slot for %s", tex)
		if ts.observer != nil {
			ts.observer.SlotExhausted(tex)
		}
		return false
	}

	// единственный слой и есть эта текстура
	if texLevel != -1 && len(ts.layers) == 1 {
		return true
	}

	allocated := texLevel == -1
	if allocated {
		id, ok := ts.AddTexture(tex)
		if !ok {
			logging.Debug("paintTexture: unable to add texture %s", tex)
			return false
		}
		if id == 0 {
			ts.generateAlphaTex()
			return true
		}
		texLevel = id
	}

	n := len(ts.layers)
	var visible [MaxLayers]bool
	var dirty image.Rectangle
	changed := false

	for j := 0; j < alphamap.Size; j++ {
		zPos := zbase + float64(j)*TexDetailSize

		for i := 0; i < alphamap.Size; i++ {
			xPos := xbase + float64(i)*TexDetailSize
			offset := alphamap.Index(i, j)
			dist := math.Hypot(x-(xPos+TexDetailSize/2), z-(zPos+TexDetailSize/2))

			if dist > radius {
				baseVisible := true
				for k := n - 1; k > 0; k-- {
					a := ts.layers[k].alpha[offset]
					if a > 0 {
						visible[k] = true
						if a == 255 {
							baseVisible = false
						}
					}
				}
				visible[0] = visible[0] || baseVisible
				continue
			}

			var vis [MaxLayers]float64
			vis[0] = 255
			for k := 1; k < n; k++ {
				vis[k] = float64(ts.layers[k].alpha[offset])
				vis[0] -= vis[k]
			}

			// нечего делать
			if vis[texLevel] == strength {
				for k := 0; k < n; k++ {
					visible[k] = visible[k] || vis[k] > 0
				}
				continue
			}

			tPressure := pressure * b.Value(dist)
			diffA := (strength - vis[texLevel]) * tPressure
			redistribute(&vis, n, texLevel, diffA)

			for k := 0; k < n; k++ {
				if k > 0 {
					value := clampByte(vis[k])
					if ts.layers[k].alpha[offset] != value {
						ts.layers[k].alpha[offset] = value
						ts.alphaTex[offset*3+k-1] = value
						dirty = dirty.Union(image.Rect(i, j, i+1, j+1))
						changed = true
					}
				}
				visible[k] = visible[k] || vis[k] > 0
			}
		}
	}

	if !changed {
		// новый слой так и не получил покрытия
		if allocated {
			ts.eraseLayer(texLevel)
			ts.generateAlphaTex()
		}
		return evicted
	}

	erased := false
	for k := n - 1; k >= 0; k-- {
		if !visible[k] {
			ts.eraseLayer(k)
			erased = true
		}
	}

	if erased {
		ts.generateAlphaTex()
	} else {
		ts.updateAlphaTex(dirty)
	}
	return true
}

// redistribute применяет приращение diffA к слою target и компенсирует его
// на остальных слоях пропорционально их доле в покрытии, не занятом target.
func redistribute(vis *[MaxLayers]float64, n, target int, diffA float64) {
	// покрытие 255: все остальные слои обнуляются
	if vis[target]+diffA >= 255 {
		for k := 0; k < n; k++ {
			vis[k] = 0
		}
		vis[target] = 255
		return
	}

	other := 255 - vis[target]

	if vis[target] == 255 && diffA < 0 {
		// TODO соседний слой выбирается несимметрично (слой 0 отдаёт слою 1,
		// остальные: предыдущему); сверить политику для 3-4 слоёв с художниками.
		vis[target] += diffA
		neighbour := target - 1
		if target == 0 {
			neighbour = 1
		}
		vis[neighbour] -= diffA
		return
	}

	vis[target] += diffA
	for k := 0; k < n; k++ {
		if k == target || vis[k] == 0 {
			continue
		}
		vis[k] -= diffA * (vis[k] / other)
	}
}
