package chunkio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortRead возвращается, если в потоке не хватает байт
var ErrShortRead = errors.New("chunkio: short read")

// Cursor последовательный читатель файла чанка с произвольным позиционированием
type Cursor interface {
	Read(dest []byte) error
	Seek(pos int) error
	Pos() int
}

// ByteCursor читает из буфера в памяти
type ByteCursor struct {
	data []byte
	pos  int
}

// NewByteCursor создаёт курсор над data
func NewByteCursor(data []byte) *ByteCursor {
	return &ByteCursor{data: data}
}

// Read копирует len(dest) байт и сдвигает позицию
func (c *ByteCursor) Read(dest []byte) error {
	if c.pos+len(dest) > len(c.data) {
		return fmt.Errorf("read %d bytes at %d of %d: %w", len(dest), c.pos, len(c.data), ErrShortRead)
	}
	copy(dest, c.data[c.pos:])
	c.pos += len(dest)
	return nil
}

// Seek устанавливает абсолютную позицию
func (c *ByteCursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("seek to %d of %d: %w", pos, len(c.data), ErrShortRead)
	}
	c.pos = pos
	return nil
}

// Pos возвращает текущую позицию
func (c *ByteCursor) Pos() int {
	return c.pos
}

// Remaining возвращает непрочитанный хвост буфера без сдвига позиции
func (c *ByteCursor) Remaining() []byte {
	return c.data[c.pos:]
}

func readUint32(c Cursor) (uint32, error) {
	var buf [4]byte
	if err := c.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
