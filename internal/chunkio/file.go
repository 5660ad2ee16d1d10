package chunkio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/terrain-editor/internal/texture"
	"github.com/annel0/terrain-editor/internal/textureset"
)

// Теги секций файла чанка
const (
	tagTextures = "MTEX"
	tagLayers   = "MCLY"
	tagAlpha    = "MCAL"
	tagHeader   = "MHDR"
)

// ErrBadSection неизвестная или повреждённая секция
var ErrBadSection = errors.New("chunkio: bad section")

// File текстурная часть одного чанка: таблица имён, дескрипторы и блок альфы.
// Секции пишутся как тег из 4 байт, размер uint32 и данные.
type File struct {
	BigAlpha bool
	Textures []string
	Encoded
}

// NewFile сериализует набор в формате format
func NewFile(ts *textureset.TextureSet, format Format) *File {
	table := NewTextureTable()
	enc := Encode(ts, format, table)
	return &File{
		BigAlpha: format != FormatLegacy,
		Textures: table.Names(),
		Encoded:  enc,
	}
}

// WriteTo пишет секции файла в w
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	var hdr [4]byte
	if f.BigAlpha {
		binary.LittleEndian.PutUint32(hdr[:], 1)
	}
	writeSection(&buf, tagHeader, hdr[:])

	var names bytes.Buffer
	for _, n := range f.Textures {
		names.WriteString(n)
		names.WriteByte(0)
	}
	writeSection(&buf, tagTextures, names.Bytes())
	writeSection(&buf, tagLayers, f.Layers)
	writeSection(&buf, tagAlpha, f.Alpha)

	return buf.WriteTo(w)
}

func writeSection(buf *bytes.Buffer, tag string, data []byte) {
	buf.WriteString(tag)
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(data)))
	buf.Write(size[:])
	buf.Write(data)
}

// ReadFile разбирает секции файла чанка
func ReadFile(data []byte) (*File, error) {
	c := NewByteCursor(data)
	f := &File{}

	for c.Pos() < len(data) {
		var tag [4]byte
		if err := c.Read(tag[:]); err != nil {
			return nil, err
		}
		size, err := readUint32(c)
		if err != nil {
			return nil, err
		}
		body := make([]byte, size)
		if err := c.Read(body); err != nil {
			return nil, fmt.Errorf("section %s: %w", tag[:], err)
		}

		switch string(tag[:]) {
		case tagHeader:
			f.BigAlpha = len(body) >= 4 && binary.LittleEndian.Uint32(body)&1 != 0
		case tagTextures:
			for _, n := range bytes.Split(body, []byte{0}) {
				if len(n) > 0 {
					f.Textures = append(f.Textures, string(n))
				}
			}
		case tagLayers:
			f.Layers = body
		case tagAlpha:
			f.Alpha = body
		default:
			return nil, fmt.Errorf("section %q: %w", tag[:], ErrBadSection)
		}
	}

	if len(f.Layers)%DescriptorSize != 0 {
		return nil, fmt.Errorf("layers section of %d bytes: %w", len(f.Layers), ErrBadSection)
	}
	return f, nil
}

// Decode заполняет ts из файла. Дескрипторы и альфа читаются одним курсором,
// как из исходного файла тайла.
func (f *File) Decode(ts *textureset.TextureSet, cache *texture.Cache, doNotFixAlpha bool) error {
	data := make([]byte, 0, len(f.Layers)+len(f.Alpha))
	data = append(data, f.Layers...)
	data = append(data, f.Alpha...)

	return Load(ts, NewByteCursor(data), uint32(len(f.Layers)), len(f.Layers), f.Textures, cache, Options{
		BigAlpha:      f.BigAlpha,
		DoNotFixAlpha: doNotFixAlpha,
	})
}
