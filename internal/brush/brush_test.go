package brush

import (
	"math"
	"testing"
)

func TestFalloffValue(t *testing.T) {
	b := NewFalloff(10, 0.5)

	cases := []struct {
		dist, want float64
	}{
		{0, 1},
		{5, 1},
		{7.5, 0.5},
		{10, 0},
		{11, 0},
	}

	for _, c := range cases {
		if got := b.Value(c.dist); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("Value(%v) = %v, ожидалось %v", c.dist, got, c.want)
		}
	}
}

func TestFalloffHardBrush(t *testing.T) {
	b := NewFalloff(4, 1)
	if b.Value(4) != 1 {
		t.Errorf("Жёсткая кисть должна давать 1 на краю, получено %v", b.Value(4))
	}

	b.SetHardness(2)
	if b.Hardness() != 1 {
		t.Errorf("Жёсткость должна быть ограничена 1, получено %v", b.Hardness())
	}

	b.SetRadius(-3)
	if b.Radius() != 0 || b.Value(0) != 1 {
		t.Errorf("Нулевой радиус: radius=%v value=%v", b.Radius(), b.Value(0))
	}
}
