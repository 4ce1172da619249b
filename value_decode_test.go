// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScalarUInt32(t *testing.T) {
	data := []byte{byte(UInt32Type), 0x2A, 0x00, 0x00, 0x00}
	v, err := DecodeValue(NewCursor(data), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, UInt32Type, v.Kind)
	assert.Equal(t, uint64(42), v.U64)
}

func TestDecodeScalarBool(t *testing.T) {
	data := []byte{byte(BoolType), 1, 0, 0, 0}
	v, err := DecodeValue(NewCursor(data), nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestDecodeAnsiStringSized(t *testing.T) {
	codec := NewWindows1252Codec()
	size := uint32(5)
	data := append([]byte{byte(AnsiStringType)}, []byte("hello")...)
	v, err := DecodeValue(NewCursor(data), nil, &size, codec)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Str)
}

func TestDecodeGuid(t *testing.T) {
	// d1=0x01020304, w1=0x0506, w2=0x0708, tail bytes 09..10
	data := []byte{byte(GuidType),
		0x04, 0x03, 0x02, 0x01,
		0x06, 0x05,
		0x08, 0x07,
		0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	}
	v, err := DecodeValue(NewCursor(data), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, GuidType, v.Kind)
	expected := uuid.UUID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}
	assert.Equal(t, expected, v.Guid)
}

func TestDecodeUInt32Array(t *testing.T) {
	size := uint32(12)
	data := []byte{byte(UInt32ArrayType),
		1, 0, 0, 0,
		2, 0, 0, 0,
		3, 0, 0, 0,
	}
	v, err := DecodeValue(NewCursor(data), nil, &size, nil)
	require.NoError(t, err)
	require.Len(t, v.Array, 3)
	assert.Equal(t, uint64(1), v.Array[0].U64)
	assert.Equal(t, uint64(3), v.Array[2].U64)
}

func TestDecodeStringArray(t *testing.T) {
	// "ab\0cd\0" = 6 chars, 12 bytes
	var data []byte
	data = append(data, byte(StringArrayType))
	data = append(data, encodeUTF16LE("ab\x00cd\x00")...)
	size := uint32(12)
	v, err := DecodeValue(NewCursor(data), nil, &size, nil)
	require.NoError(t, err)
	require.Len(t, v.Array, 2)
	s0, err := FormatValue(v.Array[0])
	require.NoError(t, err)
	assert.Equal(t, "ab", s0)
	s1, err := FormatValue(v.Array[1])
	require.NoError(t, err)
	assert.Equal(t, "cd", s1)
}

func TestDecodeSid(t *testing.T) {
	data := []byte{byte(SidType),
		1,          // revision
		2,          // sub authority count
		0, 0, 0, 0, 0, 5, // authority = 5
		0x15, 0, 0, 0, // sub authority 1 = 0x15
		0x01, 0, 0, 0, // sub authority 2 = 1
	}
	v, err := DecodeValue(NewCursor(data), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-21-1", FormatSid(v.Sid))
}
