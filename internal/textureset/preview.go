package textureset

import (
	"image"

	"github.com/annel0/terrain-editor/internal/alphamap"
)

// Sink принимает буферы альфы для загрузки в GPU. Вызовы синхронные, без ответа.
type Sink interface {
	// UploadAlpha получает чередующийся RGB буфер 64x64 (каналы: явные слои 1..3)
	// и прямоугольник сэмплов, изменённых с прошлой загрузки.
	UploadAlpha(rgb []byte, dirty image.Rectangle)
	// UploadPlane получает плоскость явного слоя для 2D-превью
	UploadPlane(layer int, plane *alphamap.Plane)
}

var fullRect = image.Rect(0, 0, alphamap.Size, alphamap.Size)

// AlphaTexture возвращает копию чередующегося RGB буфера альфы
func (ts *TextureSet) AlphaTexture() []byte {
	out := make([]byte, len(ts.alphaTex))
	copy(out, ts.alphaTex[:])
	return out
}

// Refresh перестраивает буфер альфы из плоскостей и отправляет его в Sink
func (ts *TextureSet) Refresh() {
	ts.generateAlphaTex()
}

func (ts *TextureSet) generateAlphaTex() {
	n := len(ts.layers)
	for i := 0; i < alphamap.Samples; i++ {
		for c := 0; c < 3; c++ {
			var v uint8
			if c < n-1 {
				v = ts.layers[c+1].alpha[i]
			}
			ts.alphaTex[i*3+c] = v
		}
	}
	ts.updateAlphaTex(fullRect)
}

func (ts *TextureSet) updateAlphaTex(dirty image.Rectangle) {
	if ts.sink == nil {
		return
	}

	ts.sink.UploadAlpha(ts.alphaTex[:], dirty)

	// для 2D вида
	for k := 1; k < len(ts.layers); k++ {
		ts.sink.UploadPlane(k, &ts.layers[k].alpha)
	}
}
