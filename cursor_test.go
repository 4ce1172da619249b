// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorReadIntegers(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := NewCursor(data)

	u8, err := c.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), u8)

	u16, err := c.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), u16)

	u32, err := c.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x08070605), u32)

	assert.Equal(t, uint32(8), c.Pos())
	assert.Equal(t, uint32(0), c.Remaining())
}

func TestCursorReadOutOfBounds(t *testing.T) {
	c := NewCursor([]byte{0x01})
	_, err := c.ReadU32()
	require.Error(t, err)

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, ErrOutsideBoundary)
}

func TestCursorReadFloats(t *testing.T) {
	c := NewCursor([]byte{0, 0, 0, 0})
	f32, err := c.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(0), f32)

	c2 := NewCursor([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f64, err := c2.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, float64(0), f64)
}

func TestReadAlignedArray(t *testing.T) {
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	c := NewCursor(data)
	items, err := ReadAlignedArray(c, 12, 4, func(cur *Cursor) (uint32, error) {
		return cur.ReadU32()
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, items)
}

func TestReadAlignedArrayUnaligned(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	_, err := ReadAlignedArray(c, 3, 4, func(cur *Cursor) (uint32, error) {
		return cur.ReadU32()
	})
	assert.ErrorIs(t, err, ErrUnalignedSize)
}

func TestReadUTF16LENullTerminated(t *testing.T) {
	// "Hi" in UTF-16LE, NUL-terminated.
	data := []byte{'H', 0, 'i', 0, 0, 0}
	c := NewCursor(data)
	s, err := c.ReadUTF16LENullTerminated()
	require.NoError(t, err)
	assert.Equal(t, 2, s.CharCount)
	txt, err := decodeUTF16LE(s)
	require.NoError(t, err)
	assert.Equal(t, "Hi", txt)
}
