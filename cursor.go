// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"encoding/binary"
	"math"
)

// Cursor is a non-owning (slice, position) pair over a chunk's bytes or a
// record's BinXML slice, pulled out into its own value type because
// BinXML decoding is a deeply recursive walk over many independent
// sub-slices (template bodies, nested BinXML payloads) that
// each need their own read position.
type Cursor struct {
	data []byte
	pos  uint32
}

// NewCursor returns a cursor over data starting at offset 0.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// NewCursorAt returns a cursor over data starting at the given position.
func NewCursorAt(data []byte, pos uint32) *Cursor {
	return &Cursor{data: data, pos: pos}
}

// Pos returns the current read position.
func (c *Cursor) Pos() uint32 { return c.pos }

// Len returns the total length of the underlying slice.
func (c *Cursor) Len() uint32 { return uint32(len(c.data)) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() uint32 {
	if c.pos >= uint32(len(c.data)) {
		return 0
	}
	return uint32(len(c.data)) - c.pos
}

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(pos uint32) {
	c.pos = pos
}

// Bytes returns the underlying slice, for callers that need to hand a raw
// byte range to another component (e.g. capturing a BinXml payload slice).
func (c *Cursor) Bytes() []byte { return c.data }

func (c *Cursor) require(what string, n int) error {
	if uint64(c.pos)+uint64(n) > uint64(len(c.data)) {
		return truncated(what, c.pos, n, int(c.Remaining()))
	}
	return nil
}

// ReadU8 reads one little-endian byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.require("u8", 1); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.require("u16", 2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.require("u32", 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	if err := c.require("u64", 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.data[c.pos:])
	c.pos += 8
	return v, nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadI64 reads a little-endian int64.
func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

// ReadF32 reads a little-endian IEEE-754 single.
func (c *Cursor) ReadF32() (float32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads a little-endian IEEE-754 double.
func (c *Cursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadBytes returns a bounded slice of n bytes and advances the cursor.
// The slice aliases the cursor's backing array.
func (c *Cursor) ReadBytes(n uint32) ([]byte, error) {
	if err := c.require("bytes", int(n)); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadArray16 reads a fixed [16]byte array (used for template/value GUIDs).
func (c *Cursor) ReadArray16() ([16]byte, error) {
	var out [16]byte
	b, err := c.ReadBytes(16)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// PeekU8 reads one byte without advancing the cursor.
func (c *Cursor) PeekU8() (uint8, error) {
	if err := c.require("u8", 1); err != nil {
		return 0, err
	}
	return c.data[c.pos], nil
}

// ReadAlignedArray reads sizeBytes from the cursor and decodes it as
// sizeBytes/elemBytes fixed-width elements using parseOne, failing if
// sizeBytes is not a multiple of elemBytes. It is the shared
// implementation behind every array-typed BinXML value (UInt32Array,
// GuidArray, ...).
func ReadAlignedArray[T any](c *Cursor, sizeBytes, elemBytes uint32, parseOne func(*Cursor) (T, error)) ([]T, error) {
	if elemBytes == 0 || sizeBytes%elemBytes != 0 {
		return nil, ErrUnalignedSize
	}
	n := sizeBytes / elemBytes
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := parseOne(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Utf16LeSlice is a borrowed view over a run of UTF-16LE code units. It lets
// renderers escape directly from the chunk bytes without allocating.
type Utf16LeSlice struct {
	Bytes     []byte
	CharCount int
}

// ReadUTF16LEByCount reads charCount UTF-16LE code units (2*charCount
// bytes).
func (c *Cursor) ReadUTF16LEByCount(charCount int) (Utf16LeSlice, error) {
	n := uint32(charCount) * 2
	b, err := c.ReadBytes(n)
	if err != nil {
		return Utf16LeSlice{}, err
	}
	return Utf16LeSlice{Bytes: b, CharCount: charCount}, nil
}

// ReadUTF16LELengthPrefixed reads a u16 char count followed by that many
// UTF-16LE code units, optionally consuming a trailing NUL code unit.
func (c *Cursor) ReadUTF16LELengthPrefixed(nullTerminated bool) (Utf16LeSlice, error) {
	n, err := c.ReadU16()
	if err != nil {
		return Utf16LeSlice{}, err
	}
	s, err := c.ReadUTF16LEByCount(int(n))
	if err != nil {
		return Utf16LeSlice{}, err
	}
	if nullTerminated {
		if _, err := c.ReadU16(); err != nil {
			return Utf16LeSlice{}, err
		}
	}
	return s, nil
}

// ReadUTF16LENullTerminated scans forward for a 0x0000 code unit and
// returns everything before it, consuming the terminator.
func (c *Cursor) ReadUTF16LENullTerminated() (Utf16LeSlice, error) {
	start := c.pos
	count := 0
	for {
		if err := c.require("utf16 null-terminated", 2); err != nil {
			return Utf16LeSlice{}, err
		}
		u := binary.LittleEndian.Uint16(c.data[c.pos:])
		c.pos += 2
		if u == 0 {
			break
		}
		count++
	}
	return Utf16LeSlice{Bytes: c.data[start : c.pos-2], CharCount: count}, nil
}
