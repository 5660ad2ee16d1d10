package chunkio

import (
	"encoding/binary"

	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
)

// TextureTable таблица имён текстур тайла; дескрипторы ссылаются на неё по индексу
type TextureTable struct {
	names []string
	index map[string]uint32
}

// NewTextureTable создаёт таблицу из уже существующих имён
func NewTextureTable(names ...string) *TextureTable {
	t := &TextureTable{index: make(map[string]uint32)}
	for _, n := range names {
		t.Index(n)
	}
	return t
}

// Index возвращает индекс имени, добавляя его при необходимости
func (t *TextureTable) Index(name string) uint32 {
	name = texture.Normalize(name)
	if i, ok := t.index[name]; ok {
		return i
	}
	i := uint32(len(t.names))
	t.names = append(t.names, name)
	t.index[name] = i
	return i
}

// Names возвращает имена в порядке индексов
func (t *TextureTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Encoded сериализованные слои чанка
type Encoded struct {
	Layers []byte // дескрипторы по 16 байт
	Alpha  []byte // блок альфы, смещения дескрипторов отсчитываются от его начала
}

// Encode сериализует набор в выбранном формате. Набор не изменяется:
// для старого формата каскадные плоскости вычисляются отдельно.
func Encode(ts *textureset.TextureSet, format Format, table *TextureTable) Encoded {
	layers := ts.Layers()
	n := len(layers)

	var planes [][]byte
	switch format {
	case FormatCompressed:
		planes = ts.CompressedPlanes()
	case FormatBigAlpha:
		for k := 1; k < n; k++ {
			p, _ := ts.Plane(k)
			buf := make([]byte, len(p))
			copy(buf, p[:])
			planes = append(planes, buf)
		}
	case FormatLegacy:
		for _, p := range ts.CascadedPlanes() {
			planes = append(planes, p.Pack4Bit())
		}
	}

	enc := Encoded{Layers: make([]byte, 0, n*DescriptorSize)}
	for k, l := range layers {
		flags := l.Flags &^ (textureset.FlagAlphaMap | textureset.FlagCompressed)
		var offset uint32

		if k > 0 {
			flags |= textureset.FlagAlphaMap
			if format == FormatCompressed {
				flags |= textureset.FlagCompressed
			}
			offset = uint32(len(enc.Alpha))
			enc.Alpha = append(enc.Alpha, planes[k-1]...)
		}

		var raw [DescriptorSize]byte
		binary.LittleEndian.PutUint32(raw[0:], table.Index(l.Texture.Filename()))
		binary.LittleEndian.PutUint32(raw[4:], uint32(flags))
		binary.LittleEndian.PutUint32(raw[8:], offset)
		binary.LittleEndian.PutUint32(raw[12:], l.Effect)
		enc.Layers = append(enc.Layers, raw[:]...)
	}
	return enc
}
