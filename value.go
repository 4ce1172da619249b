// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"github.com/google/uuid"
)

// ValueKind is the 1-byte type token that tags a BinXML value variant
//. The array flag (0x80) is ORed onto any scalar kind
// to produce its array counterpart.
type ValueKind uint8

const arrayFlag ValueKind = 0x80

const (
	NullType       ValueKind = 0x00
	StringType     ValueKind = 0x01
	AnsiStringType ValueKind = 0x02
	Int8Type       ValueKind = 0x03
	UInt8Type      ValueKind = 0x04
	Int16Type      ValueKind = 0x05
	UInt16Type     ValueKind = 0x06
	Int32Type      ValueKind = 0x07
	UInt32Type     ValueKind = 0x08
	Int64Type      ValueKind = 0x09
	UInt64Type     ValueKind = 0x0A
	Real32Type     ValueKind = 0x0B
	Real64Type     ValueKind = 0x0C
	BoolType       ValueKind = 0x0D
	BinaryType     ValueKind = 0x0E
	GuidType       ValueKind = 0x0F
	SizeTType      ValueKind = 0x10
	FileTimeType   ValueKind = 0x11
	SysTimeType    ValueKind = 0x12
	SidType        ValueKind = 0x13
	HexInt32Type   ValueKind = 0x14
	HexInt64Type   ValueKind = 0x15
	EvtHandleType  ValueKind = 0x20
	BinXmlType     ValueKind = 0x21
	EvtXmlType     ValueKind = 0x23

	NullArrayType       = NullType | arrayFlag
	StringArrayType     = StringType | arrayFlag
	AnsiStringArrayType = AnsiStringType | arrayFlag
	Int8ArrayType       = Int8Type | arrayFlag
	UInt8ArrayType      = UInt8Type | arrayFlag
	Int16ArrayType      = Int16Type | arrayFlag
	UInt16ArrayType     = UInt16Type | arrayFlag
	Int32ArrayType      = Int32Type | arrayFlag
	UInt32ArrayType     = UInt32Type | arrayFlag
	Int64ArrayType      = Int64Type | arrayFlag
	UInt64ArrayType     = UInt64Type | arrayFlag
	Real32ArrayType     = Real32Type | arrayFlag
	Real64ArrayType     = Real64Type | arrayFlag
	BoolArrayType       = BoolType | arrayFlag
	BinaryArrayType     = BinaryType | arrayFlag
	GuidArrayType       = GuidType | arrayFlag
	SizeTArrayType      = SizeTType | arrayFlag
	FileTimeArrayType   = FileTimeType | arrayFlag
	SysTimeArrayType    = SysTimeType | arrayFlag
	SidArrayType        = SidType | arrayFlag
	HexInt32ArrayType   = HexInt32Type | arrayFlag
	HexInt64ArrayType   = HexInt64Type | arrayFlag
)

// IsArray reports whether the kind carries the array bit.
func (k ValueKind) IsArray() bool { return k&arrayFlag != 0 }

// Scalar returns the kind with the array bit cleared.
func (k ValueKind) Scalar() ValueKind { return k &^ arrayFlag }

// SysTime is the 16-byte Windows SYSTEMTIME value.
type SysTime struct {
	Year         uint16
	Month        uint16
	DayOfWeek    uint16
	Day          uint16
	Hour         uint16
	Minute       uint16
	Second       uint16
	Milliseconds uint16
}

// Value is the tagged union over BinXML's ~40 scalar and array kinds
//. Only the fields relevant to Kind are populated; the zero
// value of every other field is ignored. String/Binary/Sid/BinXml payloads
// borrow their backing bytes from the chunk where possible; AnsiString is always copied into
// the arena because it is transcoded.
type Value struct {
	Kind ValueKind

	// Str holds the value for StringType/AnsiStringType.
	Str string

	// U16Str is the zero-copy borrowed view for StringType; renderers that
	// escape without allocating use this instead of Str.
	U16Str Utf16LeSlice

	I64     int64
	U64     uint64
	F32     float32
	F64     float64
	Bool    bool
	Bytes   []byte // Binary, EvtXml (raw wire bytes)
	Guid    uuid.UUID
	FileNs  uint64 // FileTimeType: 100ns ticks since 1601-01-01 UTC
	SysTime SysTime
	Sid     Sid

	// BinXmlPayload carries the raw, not-yet-decoded BinXML bytes for a
	// BinXmlType scalar value; the template instantiator
	// parses it into a full element exactly once.
	BinXmlPayload []byte

	// Array holds the per-item values for every *ArrayType kind.
	Array []Value
}

// Sid is a Windows security identifier: a 1-byte revision, a 48-bit
// big-endian authority, and N little-endian 32-bit sub-authorities.
type Sid struct {
	Revision        uint8
	Authority       uint64 // low 48 bits significant
	SubAuthorities  []uint32
}

// IsNull reports whether v should be treated as "optional-empty" for the
// purposes of conditional-substitution resolution: null,
// empty string, or a zero-length array.
func (v Value) IsNull() bool {
	switch {
	case v.Kind == NullType:
		return true
	case v.Kind == StringType && v.U16Str.CharCount == 0 && v.Str == "":
		return true
	case v.Kind == AnsiStringType && v.Str == "":
		return true
	case v.Kind.IsArray() && len(v.Array) == 0:
		return true
	default:
		return false
	}
}

// ExpandableArrayLen returns (n, true) when v is an array-typed value with
// n >= 1 items and n > 1, i.e. a value that should trigger element
// repetition in the enclosing element. Scalars and length-1 arrays return
// (0, false) so they neither trigger nor block array-expansion scanning.
func ExpandableArrayLen(v Value) (int, bool) {
	if !v.Kind.IsArray() {
		return 0, false
	}
	n := len(v.Array)
	if n <= 1 {
		return 0, false
	}
	return n, true
}
