// Package alphamap описывает 64x64 плоскость покрытия слоя и её дисковые кодировки:
// сжатие RLE, «большую» альфу (4096 байт) и старую 4-битную альфу (2048 байт).
package alphamap

const (
	// Size сторона плоскости в сэмплах
	Size = 64
	// Samples число сэмплов в плоскости
	Samples = Size * Size
	// LegacySize размер старой 4-битной плоскости в байтах
	LegacySize = Samples / 2
)

// Plane хранит покрытие 0..255 для каждого сэмпла, индекс i + j*64
type Plane [Samples]uint8

// Index возвращает индекс сэмпла по колонке i и строке j
func Index(i, j int) int {
	return i + j*Size
}

// Fill заполняет плоскость одним значением
func (p *Plane) Fill(value uint8) {
	for i := range p {
		p[i] = value
	}
}

// IsZero возвращает true, если покрытие нулевое во всех сэмплах
func (p *Plane) IsZero() bool {
	for _, v := range p {
		if v != 0 {
			return false
		}
	}
	return true
}

// Row возвращает строку j как срез, разделяющий память с плоскостью
func (p *Plane) Row(j int) []uint8 {
	return p[j*Size : (j+1)*Size]
}

// FixEdges копирует предпоследние колонку и строку в последние.
// Старые файлы хранят только 63x63 значимых сэмпла.
func (p *Plane) FixEdges() {
	for j := 0; j < Size; j++ {
		p[Index(Size-1, j)] = p[Index(Size-2, j)]
	}
	copy(p.Row(Size-1), p.Row(Size-2))
}

// Unpack4Bit разворачивает старую 4-битную альфу: младший полубайт хранит первый сэмпл,
// каждое значение масштабируется nibble*17 в диапазон 0..255.
func Unpack4Bit(src []byte, fixEdges bool) (Plane, error) {
	var p Plane
	if len(src) < LegacySize {
		return p, ErrTruncated
	}

	for n := 0; n < LegacySize; n++ {
		c := src[n]
		p[2*n] = (c & 0x0f) * 17
		p[2*n+1] = (c >> 4) * 17
	}

	if fixEdges {
		p.FixEdges()
	}
	return p, nil
}

// Pack4Bit упаковывает плоскость в старый 4-битный формат с округлением к ближайшему
func (p *Plane) Pack4Bit() []byte {
	out := make([]byte, LegacySize)
	for n := 0; n < LegacySize; n++ {
		lo := (int(p[2*n]) + 8) / 17
		hi := (int(p[2*n+1]) + 8) / 17
		out[n] = byte(lo&0x0f) | byte(hi&0x0f)<<4
	}
	return out
}
