package vec

import "math"

// Vec2Float мировые координаты на плоскости XZ
type Vec2Float struct {
	X, Y float64
}

// ChunkOf возвращает чанк, в который попадает точка, при стороне чанка size
func (v Vec2Float) ChunkOf(size float64) Vec2 {
	return Vec2{X: int(math.Floor(v.X / size)), Y: int(math.Floor(v.Y / size))}
}

// FromVec2 возвращает угол чанка c в мировых координатах
func FromVec2(c Vec2, size float64) Vec2Float {
	return Vec2Float{X: float64(c.X) * size, Y: float64(c.Y) * size}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return v.Sub(other).Length()
}

// Lerp интерполирует между v и other, t в [0, 1]
func (v Vec2Float) Lerp(other Vec2Float, t float64) Vec2Float {
	return v.Add(other.Sub(v).Mul(t))
}
