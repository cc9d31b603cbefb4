// package stream contains a growable byte buffer with an explicit cursor,
// used to accumulate inbound bytes of a connection and decode fixed-width
// integers from them in either byte order.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strconv"
)

type Endian uint8

const (
	BigEndian Endian = iota
	LittleEndian
)

func (e Endian) String() string {
	if e == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

func (e Endian) order() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// EndOfBuffer may be passed to [Buffer.Seek]. It resolves to the buffer
// length at the time of the call.
const EndOfBuffer = -1

var ErrOutOfRange = errors.New("stream: out of range")

type OutOfRangeError struct {
	Pos, Want, Have int
}

func (e *OutOfRangeError) Error() string {
	return "stream: out of range at " + strconv.Itoa(e.Pos) +
		", want " + strconv.Itoa(e.Want) + " bytes, have " + strconv.Itoa(e.Have)
}

func (e *OutOfRangeError) Is(err error) bool { return err == ErrOutOfRange }

// Buffer is not safe for concurrent use. The zero value is an empty
// big-endian buffer.
type Buffer struct {
	buf    []byte
	pos    int
	endian Endian
}

// New creates a buffer holding a copy of initial with the cursor at 0.
func New(initial []byte) *Buffer {
	return &Buffer{buf: append([]byte(nil), initial...)}
}

func (b *Buffer) Endian() Endian     { return b.endian }
func (b *Buffer) SetEndian(e Endian) { b.endian = e }
func (b *Buffer) Len() int           { return len(b.buf) }
func (b *Buffer) Pos() int           { return b.pos }
func (b *Buffer) Remaining() int     { return len(b.buf) - b.pos }

// Bytes returns the whole backing slice regardless of the cursor. It is only
// valid until the next write.
func (b *Buffer) Bytes() []byte { return b.buf }

// Reset empties the buffer, keeping the endianness.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.pos = 0
}

func (b *Buffer) Seek(pos int) error {
	if pos == EndOfBuffer {
		pos = len(b.buf)
	}
	if pos < 0 || pos > len(b.buf) {
		return &OutOfRangeError{Pos: pos, Want: 0, Have: len(b.buf)}
	}
	b.pos = pos
	return nil
}

// Write overwrites bytes from the cursor on, growing the buffer when the
// write runs past the tail. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.pos:], p)
	b.buf = append(b.buf, p[n:]...)
	b.pos += len(p)
	return len(p), nil
}

// Read implements [io.Reader].
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.pos >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += n
	return n, nil
}

// ReadN returns a copy of the next n bytes. If fewer than n bytes remain it
// fails with [ErrOutOfRange] and the cursor is left untouched.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	p, err := b.next(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), p...), nil
}

func (b *Buffer) next(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, &OutOfRangeError{Pos: b.pos, Want: n, Have: b.Remaining()}
	}
	p := b.buf[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.next(2)
	if err != nil {
		return 0, err
	}
	return b.endian.order().Uint16(p), nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.next(4)
	if err != nil {
		return 0, err
	}
	return b.endian.order().Uint32(p), nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.next(8)
	if err != nil {
		return 0, err
	}
	return b.endian.order().Uint64(p), nil
}

func (b *Buffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}

func (b *Buffer) WriteUint8(v uint8) {
	b.Write([]byte{v})
}

func (b *Buffer) WriteUint16(v uint16) {
	var p [2]byte
	b.endian.order().PutUint16(p[:], v)
	b.Write(p[:])
}

func (b *Buffer) WriteUint32(v uint32) {
	var p [4]byte
	b.endian.order().PutUint32(p[:], v)
	b.Write(p[:])
}

func (b *Buffer) WriteUint64(v uint64) {
	var p [8]byte
	b.endian.order().PutUint64(p[:], v)
	b.Write(p[:])
}

func (b *Buffer) WriteInt8(v int8)       { b.WriteUint8(uint8(v)) }
func (b *Buffer) WriteInt16(v int16)     { b.WriteUint16(uint16(v)) }
func (b *Buffer) WriteInt32(v int32)     { b.WriteUint32(uint32(v)) }
func (b *Buffer) WriteInt64(v int64)     { b.WriteUint64(uint64(v)) }
func (b *Buffer) WriteFloat32(v float32) { b.WriteUint32(math.Float32bits(v)) }
func (b *Buffer) WriteFloat64(v float64) { b.WriteUint64(math.Float64bits(v)) }
