package vec

import "math"

// Vec2 целочисленные координаты чанка на карте
type Vec2 struct {
	X, Y int
}

// ChunksPerTile число чанков по стороне тайла
const ChunksPerTile = 16

// ToTileCoords возвращает координаты тайла, содержащего чанк
func (v Vec2) ToTileCoords() Vec2 {
	return Vec2{X: floorDiv(v.X, ChunksPerTile), Y: floorDiv(v.Y, ChunksPerTile)}
}

// LocalInTile возвращает координаты чанка внутри тайла
func (v Vec2) LocalInTile() Vec2 {
	return Vec2{X: v.X - floorDiv(v.X, ChunksPerTile)*ChunksPerTile, Y: v.Y - floorDiv(v.Y, ChunksPerTile)*ChunksPerTile}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
