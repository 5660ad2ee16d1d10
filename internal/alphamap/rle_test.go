package alphamap

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestCompressUniformPlane(t *testing.T) {
	var p Plane
	p.Fill(200)

	entries := p.Entries()
	if len(entries) != Size {
		t.Fatalf("Ожидалась одна запись на строку (%d), получено %d", Size, len(entries))
	}
	for n, e := range entries {
		if e.Kind != Fill || e.Count != Size || e.Payload[0] != 200 {
			t.Fatalf("Запись %d: %+v", n, e)
		}
	}

	data := p.Compress()
	if len(data) != Size*2 {
		t.Errorf("Ожидалось %d байт, получено %d", Size*2, len(data))
	}

	got, n, err := Decompress(data)
	if err != nil {
		t.Fatalf("Ошибка распаковки: %v", err)
	}
	if n != len(data) {
		t.Errorf("Прочитано %d байт из %d", n, len(data))
	}
	if got != p {
		t.Error("Плоскость после распаковки отличается")
	}
}

func TestCompressAlternatingPlaneUsesCopy(t *testing.T) {
	var p Plane
	for i := range p {
		p[i] = uint8(i % 2 * 255)
	}

	for _, e := range p.Entries() {
		if e.Kind != Copy {
			t.Fatalf("Ожидались только Copy записи, получено %+v", e)
		}
		if e.Count != Size {
			t.Fatalf("Copy запись должна занимать всю строку, получено %d", e.Count)
		}
	}

	got, _, err := Decompress(p.Compress())
	if err != nil {
		t.Fatalf("Ошибка распаковки: %v", err)
	}
	if got != p {
		t.Error("Плоскость после распаковки отличается")
	}
}

func TestEntriesNeverCrossRows(t *testing.T) {
	var p Plane
	// Последний сэмпл строки равен первому сэмплу следующей
	for j := 0; j < Size; j++ {
		for i := 0; i < Size; i++ {
			p[Index(i, j)] = uint8(i + j)
		}
		p[Index(Size-1, j)] = 7
		p[Index(0, j)] = 7
	}

	pos := 0
	for _, e := range p.Entries() {
		if e.Count < 1 || e.Count > maxEntryCount {
			t.Fatalf("Недопустимый счётчик %d", e.Count)
		}
		if pos/Size != (pos+e.Count-1)/Size {
			t.Fatalf("Запись %+v пересекает строку на сэмпле %d", e, pos)
		}
		pos += e.Count
	}
	if pos != Samples {
		t.Errorf("Записи покрывают %d сэмплов, ожидалось %d", pos, Samples)
	}
}

func TestCompressRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 50; iter++ {
		var p Plane
		for i := range p {
			// небольшой алфавит даёт смесь Fill и Copy
			p[i] = uint8(rng.Intn(4) * 60)
		}

		data := p.Compress()
		got, n, err := Decompress(append(data, 0xAA, 0xBB))
		if err != nil {
			t.Fatalf("Итерация %d: %v", iter, err)
		}
		if n != len(data) {
			t.Fatalf("Итерация %d: прочитано %d байт, ожидалось %d", iter, n, len(data))
		}
		if got != p {
			t.Fatalf("Итерация %d: плоскость отличается", iter)
		}
	}
}

func TestDecompressTruncated(t *testing.T) {
	var p Plane
	p.Fill(3)
	data := p.Compress()

	_, _, err := Decompress(data[:len(data)-1])
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Ожидалась ErrTruncated, получено %v", err)
	}
}

func TestUnpack4Bit(t *testing.T) {
	src := bytes.Repeat([]byte{0xF0}, LegacySize)

	p, err := Unpack4Bit(src, false)
	if err != nil {
		t.Fatalf("Ошибка: %v", err)
	}
	if p[0] != 0 || p[1] != 255 {
		t.Errorf("Ожидалось 0/255, получено %d/%d", p[0], p[1])
	}

	packed := p.Pack4Bit()
	if !bytes.Equal(packed, src) {
		t.Error("Pack4Bit не восстановил исходные данные")
	}

	if _, err := Unpack4Bit(src[:10], false); !errors.Is(err, ErrTruncated) {
		t.Errorf("Ожидалась ErrTruncated, получено %v", err)
	}
}

func TestFixEdges(t *testing.T) {
	var p Plane
	for i := range p {
		p[i] = uint8(i % 251)
	}
	p.FixEdges()

	for j := 0; j < Size; j++ {
		if p[Index(63, j)] != p[Index(62, j)] {
			t.Fatalf("Строка %d: последняя колонка не исправлена", j)
		}
	}
	for i := 0; i < Size; i++ {
		if p[Index(i, 63)] != p[Index(i, 62)] {
			t.Fatalf("Колонка %d: последняя строка не исправлена", i)
		}
	}
}
