// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"github.com/google/uuid"
)

// elemByteWidth returns the wire width of one item of a fixed-width array
// kind, or 0 if kind is not a fixed-width-array-eligible scalar.
func elemByteWidth(k ValueKind) uint32 {
	switch k {
	case Int8Type, UInt8Type, BoolType:
		return 1
	case Int16Type, UInt16Type:
		return 2
	case Int32Type, UInt32Type, Real32Type, HexInt32Type:
		return 4
	case Int64Type, UInt64Type, Real64Type, HexInt64Type, FileTimeType, EvtHandleType:
		return 8
	case GuidType:
		return 16
	case SysTimeType:
		return 16
	default:
		return 0
	}
}

// DecodeValue reads one BinXML value variant from c. size is non-nil when
// the caller (a template substitution slot) already knows the value's
// declared byte length; it is nil when the value self-describes (an inline
// Value opcode in the token stream). codec transcodes AnsiString payloads,
// the one decode path that allocates rather than borrowing chunk bytes.
func DecodeValue(c *Cursor, chunk *ChunkContext, size *uint32, codec AnsiCodec) (Value, error) {
	kindByte, err := c.ReadU8()
	if err != nil {
		return Value{}, err
	}
	kind := ValueKind(kindByte)

	if kind.IsArray() {
		if size == nil {
			return Value{}, ErrInvalidValueVariant
		}
		return decodeArrayValue(c, chunk, kind, *size, codec)
	}
	return decodeScalarValue(c, chunk, kind, size, codec)
}

func decodeScalarValue(c *Cursor, chunk *ChunkContext, kind ValueKind, size *uint32, codec AnsiCodec) (Value, error) {
	switch kind {
	case NullType:
		return Value{Kind: NullType}, nil

	case StringType:
		var s Utf16LeSlice
		var err error
		if size != nil {
			if *size%2 != 0 {
				return Value{}, ErrInvalidValueVariant
			}
			s, err = c.ReadUTF16LEByCount(int(*size / 2))
		} else {
			s, err = c.ReadUTF16LELengthPrefixed(false)
		}
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: StringType, U16Str: s}, nil

	case AnsiStringType:
		if size == nil {
			return Value{}, ErrInvalidValueVariant
		}
		raw, err := c.ReadBytes(*size)
		if err != nil {
			return Value{}, err
		}
		raw = stripEmbeddedNuls(raw)
		str, err := codec.Decode(raw)
		if err != nil {
			return Value{}, ErrAnsiDecode
		}
		return Value{Kind: AnsiStringType, Str: str}, nil

	case Int8Type:
		v, err := c.ReadU8()
		return Value{Kind: kind, I64: int64(int8(v))}, err
	case UInt8Type:
		v, err := c.ReadU8()
		return Value{Kind: kind, U64: uint64(v)}, err
	case Int16Type:
		v, err := c.ReadU16()
		return Value{Kind: kind, I64: int64(int16(v))}, err
	case UInt16Type:
		v, err := c.ReadU16()
		return Value{Kind: kind, U64: uint64(v)}, err
	case Int32Type:
		v, err := c.ReadI32()
		return Value{Kind: kind, I64: int64(v)}, err
	case UInt32Type:
		v, err := c.ReadU32()
		return Value{Kind: kind, U64: uint64(v)}, err
	case Int64Type:
		v, err := c.ReadI64()
		return Value{Kind: kind, I64: v}, err
	case UInt64Type:
		v, err := c.ReadU64()
		return Value{Kind: kind, U64: v}, err
	case Real32Type:
		v, err := c.ReadF32()
		return Value{Kind: kind, F32: v}, err
	case Real64Type:
		v, err := c.ReadF64()
		return Value{Kind: kind, F64: v}, err

	case BoolType:
		v, err := c.ReadU32()
		if err != nil {
			return Value{}, err
		}
		if v > 1 && chunk != nil {
			chunk.Logger.Warnf("evtx: bool value %d outside {0,1}, treated as true", v)
		}
		return Value{Kind: kind, Bool: v != 0}, nil

	case BinaryType:
		var b []byte
		var err error
		if size != nil {
			b, err = c.ReadBytes(*size)
		} else {
			var n uint32
			n, err = c.ReadU32()
			if err == nil {
				b, err = c.ReadBytes(n)
			}
		}
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Bytes: b}, nil

	case GuidType:
		g, err := decodeGuidBytes(c)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Guid: g}, nil

	case SizeTType:
		var s uint32
		if size != nil {
			s = *size
		} else {
			s = 4
		}
		switch s {
		case 4:
			v, err := c.ReadU32()
			return Value{Kind: HexInt32Type, U64: uint64(v)}, err
		case 8:
			v, err := c.ReadU64()
			return Value{Kind: HexInt64Type, U64: v}, err
		default:
			return Value{}, ErrInvalidValueVariant
		}

	case FileTimeType:
		v, err := c.ReadU64()
		return Value{Kind: kind, FileNs: v}, err

	case SysTimeType:
		st, err := decodeSysTime(c)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, SysTime: st}, nil

	case SidType:
		sid, err := decodeSid(c, size)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Sid: sid}, nil

	case HexInt32Type:
		v, err := c.ReadU32()
		return Value{Kind: kind, U64: uint64(v)}, err
	case HexInt64Type:
		v, err := c.ReadU64()
		return Value{Kind: kind, U64: v}, err

	case EvtHandleType:
		v, err := c.ReadU64()
		return Value{Kind: kind, U64: v}, err

	case BinXmlType:
		var n uint32
		var err error
		if size != nil {
			n = *size
		} else {
			var u16 uint16
			u16, err = c.ReadU16()
			n = uint32(u16)
		}
		if err != nil {
			return Value{}, err
		}
		payload, err := c.ReadBytes(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, BinXmlPayload: payload}, nil

	case EvtXmlType:
		if size == nil {
			return Value{}, ErrInvalidValueVariant
		}
		b, err := c.ReadBytes(*size)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Bytes: b}, nil

	default:
		return Value{}, ErrInvalidValueVariant
	}
}

func decodeArrayValue(c *Cursor, chunk *ChunkContext, kind ValueKind, size uint32, codec AnsiCodec) (Value, error) {
	scalar := kind.Scalar()

	switch scalar {
	case StringType:
		items, err := splitUTF16NulDelimited(c, size)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Array: items}, nil

	case AnsiStringType:
		raw, err := c.ReadBytes(size)
		if err != nil {
			return Value{}, err
		}
		var items []Value
		start := 0
		for i, b := range raw {
			if b == 0 {
				s, derr := codec.Decode(raw[start:i])
				if derr != nil {
					return Value{}, ErrAnsiDecode
				}
				items = append(items, Value{Kind: AnsiStringType, Str: s})
				start = i + 1
			}
		}
		if start < len(raw) {
			s, derr := codec.Decode(raw[start:])
			if derr != nil {
				return Value{}, ErrAnsiDecode
			}
			items = append(items, Value{Kind: AnsiStringType, Str: s})
		}
		return Value{Kind: kind, Array: items}, nil

	default:
		width := elemByteWidth(scalar)
		if width == 0 {
			return Value{}, ErrUnimplementedValueVariant
		}
		items, err := ReadAlignedArray(c, size, width, func(cur *Cursor) (Value, error) {
			return decodeScalarValue(cur, chunk, scalar, &width, codec)
		})
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, Array: items}, nil
	}
}

func splitUTF16NulDelimited(c *Cursor, size uint32) ([]Value, error) {
	if size%2 != 0 {
		return nil, ErrInvalidValueVariant
	}
	full, err := c.ReadUTF16LEByCount(int(size / 2))
	if err != nil {
		return nil, err
	}
	var items []Value
	start := 0
	for i := 0; i < full.CharCount; i++ {
		u := uint16(full.Bytes[2*i]) | uint16(full.Bytes[2*i+1])<<8
		if u == 0 {
			items = append(items, Value{Kind: StringType, U16Str: Utf16LeSlice{
				Bytes:     full.Bytes[2*start : 2*i],
				CharCount: i - start,
			}})
			start = i + 1
		}
	}
	if start < full.CharCount {
		items = append(items, Value{Kind: StringType, U16Str: Utf16LeSlice{
			Bytes:     full.Bytes[2*start:],
			CharCount: full.CharCount - start,
		}})
	}
	return items, nil
}

// decodeGuidBytes reads a GUID in Windows on-disk order (u32 LE, u16 LE,
// u16 LE, 8 raw bytes) and returns it as a uuid.UUID in the encoding's
// canonical big-endian field order.
func decodeGuidBytes(c *Cursor) (uuid.UUID, error) {
	var g uuid.UUID
	d1, err := c.ReadU32()
	if err != nil {
		return g, err
	}
	w1, err := c.ReadU16()
	if err != nil {
		return g, err
	}
	w2, err := c.ReadU16()
	if err != nil {
		return g, err
	}
	tail, err := c.ReadBytes(8)
	if err != nil {
		return g, err
	}
	g[0] = byte(d1 >> 24)
	g[1] = byte(d1 >> 16)
	g[2] = byte(d1 >> 8)
	g[3] = byte(d1)
	g[4] = byte(w1 >> 8)
	g[5] = byte(w1)
	g[6] = byte(w2 >> 8)
	g[7] = byte(w2)
	copy(g[8:], tail)
	return g, nil
}

func decodeSysTime(c *Cursor) (SysTime, error) {
	var st SysTime
	fields := []*uint16{&st.Year, &st.Month, &st.DayOfWeek, &st.Day, &st.Hour, &st.Minute, &st.Second, &st.Milliseconds}
	for _, f := range fields {
		v, err := c.ReadU16()
		if err != nil {
			return st, err
		}
		*f = v
	}
	return st, nil
}

func decodeSid(c *Cursor, size *uint32) (Sid, error) {
	revision, err := c.ReadU8()
	if err != nil {
		return Sid{}, err
	}
	subCount, err := c.ReadU8()
	if err != nil {
		return Sid{}, err
	}
	authBytes, err := c.ReadBytes(6)
	if err != nil {
		return Sid{}, err
	}
	var authority uint64
	for _, b := range authBytes {
		authority = authority<<8 | uint64(b)
	}
	subs := make([]uint32, 0, subCount)
	for i := 0; i < int(subCount); i++ {
		v, err := c.ReadU32()
		if err != nil {
			return Sid{}, err
		}
		subs = append(subs, v)
	}
	return Sid{Revision: revision, Authority: authority, SubAuthorities: subs}, nil
}
