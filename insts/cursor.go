package insts

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when an instruction needs more bytes than the
// stream holds. A truncated stream cannot be resynchronized.
var ErrTruncated = errors.New("instruction stream truncated")

// ErrOutOfRange is returned when the cursor is moved past the end of the
// stream.
var ErrOutOfRange = errors.New("position outside instruction stream")

// Cursor provides forward-only sequential access to an instruction stream.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor creates a cursor positioned at the first byte of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NextByte returns the byte at the current position and advances by one.
func (c *Cursor) NextByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, fmt.Errorf("%w: read at offset %d of %d", ErrTruncated, c.pos, len(c.buf))
	}

	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// PeekByte returns the byte at the current position without advancing.
func (c *Cursor) PeekByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, fmt.Errorf("%w: peek at offset %d of %d", ErrTruncated, c.pos, len(c.buf))
	}
	return c.buf[c.pos], nil
}

// nextWord reads a little-endian 16-bit value.
func (c *Cursor) nextWord() (uint16, error) {
	lo, err := c.NextByte()
	if err != nil {
		return 0, err
	}
	hi, err := c.NextByte()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// Pos returns the number of bytes consumed so far.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the length of the underlying stream.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Done reports whether every byte has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.buf)
}

// Seek moves the cursor to pos. Seeking to Len() is allowed and leaves the
// cursor exhausted.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return fmt.Errorf("%w: seek to %d of %d", ErrOutOfRange, pos, len(c.buf))
	}
	c.pos = pos
	return nil
}
