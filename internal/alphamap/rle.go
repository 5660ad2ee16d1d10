package alphamap

import (
	"errors"
	"fmt"
)

// ErrTruncated возвращается, если входных данных не хватает на полную плоскость
var ErrTruncated = errors.New("alphamap: truncated data")

// EntryKind определяет тип записи RLE
type EntryKind uint8

const (
	// Copy Count байт копируются как есть
	Copy EntryKind = iota
	// Fill одно значение повторяется Count раз
	Fill
)

const (
	maxEntryCount = 127
	fillBit       = 0x80
)

// Entry одна запись сжатой плоскости.
// Для Fill Payload содержит ровно один байт, для Copy: Count байт.
type Entry struct {
	Kind    EntryKind
	Count   int
	Payload []byte
}

// header упаковывает заголовок записи: старший бит задаёт режим, младшие 7 бит счётчик
func (e Entry) header() byte {
	h := byte(e.Count) & maxEntryCount
	if e.Kind == Fill {
		h |= fillBit
	}
	return h
}

// Entries разбивает плоскость на записи RLE. Запись никогда не пересекает границу
// строки из 64 сэмплов. Два равных соседних байта всегда начинают Fill.
func (p *Plane) Entries() []Entry {
	var entries []Entry

	for j := 0; j < Size; j++ {
		row := p.Row(j)
		pos := 0

		for pos < Size {
			if pos+1 < Size && row[pos] == row[pos+1] {
				run := 1
				for pos+run < Size && row[pos+run] == row[pos] {
					run++
				}
				entries = append(entries, Entry{Kind: Fill, Count: run, Payload: []byte{row[pos]}})
				pos += run
				continue
			}

			start := pos
			for pos < Size && !(pos+1 < Size && row[pos] == row[pos+1]) {
				pos++
			}
			payload := make([]byte, pos-start)
			copy(payload, row[start:pos])
			entries = append(entries, Entry{Kind: Copy, Count: len(payload), Payload: payload})
		}
	}

	return entries
}

// Compress кодирует плоскость в байтовый поток RLE
func (p *Plane) Compress() []byte {
	entries := p.Entries()
	out := make([]byte, 0, len(entries)*2)
	for _, e := range entries {
		out = append(out, e.header())
		out = append(out, e.Payload...)
	}
	return out
}

// Decompress восстанавливает плоскость из потока RLE. Возвращает также число
// прочитанных байт: в файле чанка за плоскостью сразу идут данные следующего слоя.
func Decompress(src []byte) (Plane, int, error) {
	var p Plane
	out, in := 0, 0

	for out < Samples {
		if in >= len(src) {
			return p, in, fmt.Errorf("decompress at sample %d: %w", out, ErrTruncated)
		}
		h := src[in]
		in++
		count := int(h & maxEntryCount)

		if h&fillBit != 0 {
			if in >= len(src) {
				return p, in, fmt.Errorf("fill value at sample %d: %w", out, ErrTruncated)
			}
			v := src[in]
			in++
			for n := 0; n < count && out < Samples; n++ {
				p[out] = v
				out++
			}
			continue
		}

		if in+count > len(src) {
			return p, in, fmt.Errorf("copy of %d bytes at sample %d: %w", count, out, ErrTruncated)
		}
		for n := 0; n < count && out < Samples; n++ {
			p[out] = src[in+n]
			out++
		}
		in += count
	}

	return p, in, nil
}
