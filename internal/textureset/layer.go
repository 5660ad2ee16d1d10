package textureset

import (
	"math"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
)

// MaxLayers максимальное число текстур на чанк
const MaxLayers = 4

// Геометрия чанка в мировых единицах
const (
	TileSize      = 533.33333
	ChunkSize     = TileSize / 16
	TexDetailSize = ChunkSize / alphamap.Size
)

// Flags битовые флаги слоя в том виде, в каком они лежат в файле
type Flags uint32

const (
	FlagRotation   Flags = 0x7   // направление анимации, 0..7
	FlagSpeed      Flags = 0x38  // скорость анимации, 0..7 << 3
	FlagAnimate    Flags = 0x40  // анимация включена
	FlagAlphaMap   Flags = 0x100 // у слоя есть плоскость альфы
	FlagCompressed Flags = 0x200 // плоскость сжата RLE
	FlagCubeMap    Flags = 0x400

	// flagMotion биты скорости и направления, перезаписываемые целиком
	flagMotion = FlagRotation | FlagSpeed
)

// Direction возвращает направление анимации
func (f Flags) Direction() int {
	return int(f & FlagRotation)
}

// Speed возвращает скорость анимации
func (f Flags) Speed() int {
	return int(f&FlagSpeed) >> 3
}

// AlphaKind различает явную плоскость и остаточное покрытие базового слоя
type AlphaKind uint8

const (
	// AlphaImplicit покрытие вычисляется как 255 минус сумма остальных слоёв
	AlphaImplicit AlphaKind = iota
	// AlphaExplicit покрытие хранится в собственной плоскости
	AlphaExplicit
)

// Layer одна привязка текстуры к чанку вместе с её покрытием
type Layer struct {
	Texture texture.Handle
	Flags   Flags
	Effect  uint32

	kind  AlphaKind
	alpha alphamap.Plane
}

// Kind возвращает способ хранения покрытия слоя
func (l *Layer) Kind() AlphaKind {
	return l.kind
}

// LayerData описывает слой при инициализации набора из файла.
// Alpha == nil означает отсутствие сохранённой плоскости (флаг 0x100 не выставлен).
type LayerData struct {
	Texture texture.Handle
	Flags   Flags
	Effect  uint32
	Alpha   *alphamap.Plane
}

// ShortestDist возвращает расстояние от точки (x, z) до квадрата со стороной size
// и углом (squareX, squareZ). Для точки внутри квадрата: 0.
func ShortestDist(x, z, squareX, squareZ, size float64) float64 {
	px := math.Min(math.Max(x, squareX), squareX+size)
	pz := math.Min(math.Max(z, squareZ), squareZ+size)
	return math.Hypot(x-px, z-pz)
}

// clampByte округляет покрытие к ближайшему целому в пределах 0..255
func clampByte(v float64) uint8 {
	return uint8(math.Min(math.Max(math.Round(v), 0), 255))
}
