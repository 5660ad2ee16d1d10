package brush

// Brush задаёт форму кисти: радиус и вес 0..1 на расстоянии от центра мазка
type Brush interface {
	Radius() float64
	Value(dist float64) float64
}

// Falloff круглая кисть с жёстким ядром и линейным спадом к краю.
// Hardness 1 даёт вес 1 во всём радиусе, 0: спад от самого центра.
type Falloff struct {
	radius   float64
	hardness float64
	inner    float64
}

// NewFalloff создаёт кисть; hardness приводится к [0,1], отрицательный радиус: к 0
func NewFalloff(radius, hardness float64) *Falloff {
	b := &Falloff{}
	b.SetRadius(radius)
	b.SetHardness(hardness)
	return b
}

// Radius возвращает радиус кисти
func (b *Falloff) Radius() float64 {
	return b.radius
}

// Hardness возвращает жёсткость кисти
func (b *Falloff) Hardness() float64 {
	return b.hardness
}

// SetRadius меняет радиус с пересчётом ядра
func (b *Falloff) SetRadius(radius float64) {
	if radius < 0 {
		radius = 0
	}
	b.radius = radius
	b.inner = b.radius * b.hardness
}

// SetHardness меняет жёсткость с пересчётом ядра
func (b *Falloff) SetHardness(hardness float64) {
	switch {
	case hardness < 0:
		hardness = 0
	case hardness > 1:
		hardness = 1
	}
	b.hardness = hardness
	b.inner = b.radius * b.hardness
}

// Value возвращает вес кисти на расстоянии dist
func (b *Falloff) Value(dist float64) float64 {
	if dist > b.radius {
		return 0
	}
	if dist <= b.inner || b.radius == b.inner {
		return 1
	}
	return 1 - (dist-b.inner)/(b.radius-b.inner)
}
