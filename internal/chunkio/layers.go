// Package chunkio читает и пишет описания слоёв текстур и альфа-данные чанка:
// 16-байтовые дескрипторы слоёв и блок альфы в одном из трёх форматов.
package chunkio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/terrain-editor/internal/alphamap"
	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
)

// DescriptorSize размер записи слоя в байтах
const DescriptorSize = 16

// ErrBadTextureIndex дескриптор ссылается на текстуру вне таблицы
var ErrBadTextureIndex = errors.New("chunkio: texture index out of range")

// Descriptor запись слоя: индекс текстуры, флаги, смещение альфы, эффект
type Descriptor struct {
	TextureIndex uint32
	Flags        textureset.Flags
	AlphaOffset  uint32
	EffectID     uint32
}

// Format формат блока альфы при сохранении
type Format int

const (
	// FormatCompressed большая альфа, каждая плоскость сжата RLE
	FormatCompressed Format = iota
	// FormatBigAlpha большая альфа, по 4096 байт на плоскость
	FormatBigAlpha
	// FormatLegacy каскадная 4-битная альфа, по 2048 байт на плоскость
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCompressed:
		return "compressed"
	case FormatBigAlpha:
		return "big"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseFormat разбирает имя формата из конфигурации или флага CLI
func ParseFormat(s string) (Format, error) {
	switch s {
	case "compressed", "":
		return FormatCompressed, nil
	case "big":
		return FormatBigAlpha, nil
	case "legacy":
		return FormatLegacy, nil
	}
	return 0, fmt.Errorf("chunkio: unknown alpha format %q", s)
}

// Options управляют чтением альфы
type Options struct {
	BigAlpha      bool // файл хранит большую альфу
	DoNotFixAlpha bool // не копировать 63-ю строку/колонку в 64-ю для старой альфы
}

// ReadDescriptors читает size/16 дескрипторов слоёв
func ReadDescriptors(c Cursor, size uint32) ([]Descriptor, error) {
	n := int(size / DescriptorSize)
	descs := make([]Descriptor, n)

	for i := range descs {
		var raw [DescriptorSize]byte
		if err := c.Read(raw[:]); err != nil {
			return nil, fmt.Errorf("layer %d descriptor: %w", i, err)
		}
		descs[i] = Descriptor{
			TextureIndex: binary.LittleEndian.Uint32(raw[0:]),
			Flags:        textureset.Flags(binary.LittleEndian.Uint32(raw[4:])),
			AlphaOffset:  binary.LittleEndian.Uint32(raw[8:]),
			EffectID:     binary.LittleEndian.Uint32(raw[12:]),
		}
	}
	return descs, nil
}

// ReadAlphamaps читает плоскости слоёв, у которых выставлен флаг альфы.
// Смещения отсчитываются от текущей позиции курсора. Элемент для базового
// слоя и для слоёв без альфы: nil.
func ReadAlphamaps(c Cursor, descs []Descriptor, opts Options) ([]*alphamap.Plane, error) {
	base := c.Pos()
	planes := make([]*alphamap.Plane, len(descs))

	for layer := 1; layer < len(descs); layer++ {
		d := descs[layer]
		if d.Flags&textureset.FlagAlphaMap == 0 {
			continue
		}
		if err := c.Seek(base + int(d.AlphaOffset)); err != nil {
			return nil, fmt.Errorf("layer %d alpha: %w", layer, err)
		}

		p, err := readPlane(c, d.Flags, opts)
		if err != nil {
			return nil, fmt.Errorf("layer %d alpha: %w", layer, err)
		}
		planes[layer] = &p
	}
	return planes, nil
}

func readPlane(c Cursor, flags textureset.Flags, opts Options) (alphamap.Plane, error) {
	switch {
	case flags&textureset.FlagCompressed != 0:
		return readCompressed(c)
	case opts.BigAlpha:
		var p alphamap.Plane
		err := c.Read(p[:])
		return p, err
	default:
		buf := make([]byte, alphamap.LegacySize)
		if err := c.Read(buf); err != nil {
			return alphamap.Plane{}, err
		}
		return alphamap.Unpack4Bit(buf, !opts.DoNotFixAlpha)
	}
}

// readCompressed читает записи RLE по одной, пока не наберётся полная плоскость
func readCompressed(c Cursor) (alphamap.Plane, error) {
	var stream []byte
	var header [1]byte
	samples := 0

	for samples < alphamap.Samples {
		if err := c.Read(header[:]); err != nil {
			return alphamap.Plane{}, err
		}
		count := int(header[0] & 0x7f)
		payload := count
		if header[0]&0x80 != 0 {
			payload = 1
		}

		body := make([]byte, payload)
		if err := c.Read(body); err != nil {
			return alphamap.Plane{}, err
		}
		stream = append(stream, header[0])
		stream = append(stream, body...)
		samples += count
	}

	p, _, err := alphamap.Decompress(stream)
	return p, err
}

// Load заполняет ts слоями чанка. Курсор стоит на начале дескрипторов размера
// layerSize; alphaPos: начало блока альфы. names, таблица имён текстур тайла.
// cache может быть nil: тогда Handle создаются без учёта ссылок.
func Load(ts *textureset.TextureSet, c Cursor, layerSize uint32, alphaPos int, names []string, cache *texture.Cache, opts Options) error {
	descs, err := ReadDescriptors(c, layerSize)
	if err != nil {
		return err
	}

	if err := c.Seek(alphaPos); err != nil {
		return err
	}
	planes, err := ReadAlphamaps(c, descs, opts)
	if err != nil {
		return err
	}

	layers := make([]textureset.LayerData, len(descs))
	for i, d := range descs {
		if int(d.TextureIndex) >= len(names) {
			return fmt.Errorf("layer %d index %d of %d: %w", i, d.TextureIndex, len(names), ErrBadTextureIndex)
		}
		layers[i] = textureset.LayerData{
			Flags:  d.Flags,
			Effect: d.EffectID,
			Alpha:  planes[i],
		}
	}

	for i, d := range descs {
		if cache != nil {
			layers[i].Texture = cache.Acquire(names[d.TextureIndex])
		} else {
			layers[i].Texture = texture.NewHandle(names[d.TextureIndex])
		}
	}

	ts.Init(layers, opts.BigAlpha)

	// набор удерживает свои ссылки сам
	if cache != nil {
		for _, l := range layers {
			cache.Release(l.Texture)
		}
	}
	return nil
}
