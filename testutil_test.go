// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"bytes"
	"encoding/binary"
)

// encodeUTF16LE converts an ASCII-only Go string into raw UTF-16LE bytes,
// for constructing synthetic BinXML fixtures in tests.
func encodeUTF16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

// appendNameRecord appends one string-cache name record at
// the end of buf and returns its offset. next is the next_offset field to
// store (0 terminates the bucket's linked list).
func appendNameRecord(buf *bytes.Buffer, name string, next uint32) uint32 {
	offset := uint32(buf.Len())
	binary.Write(buf, binary.LittleEndian, next)
	binary.Write(buf, binary.LittleEndian, uint16(0)) // hash, unused
	binary.Write(buf, binary.LittleEndian, uint16(len([]rune(name))))
	buf.Write(encodeUTF16LE(name))
	binary.Write(buf, binary.LittleEndian, uint16(0)) // trailing NUL
	return offset
}

// newTestChunk builds a minimal, well-formed chunk: a chunkHeaderLen-byte
// header (magic only, every offset table zeroed) followed by extra
// payload bytes, returning a ChunkContext ready to decode from
// chunkHeaderLen onward.
func newTestChunk(payload []byte) (*ChunkContext, error) {
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.Write(make([]byte, chunkHeaderLen-len(chunkMagic)))
	buf.Write(payload)
	return NewChunkContext(buf.Bytes(), NewWindows1252Codec(), nil)
}

// openStartElement appends a bare (no-attributes) OpenStartElementToken
// referencing nameOffset.
func openStartElement(buf *bytes.Buffer, nameOffset uint32) {
	buf.WriteByte(tokenOpenStartElement)
	binary.Write(buf, binary.LittleEndian, uint16(0)) // reserved
	binary.Write(buf, binary.LittleEndian, uint32(0)) // element_data_size, unused by decoder
	binary.Write(buf, binary.LittleEndian, nameOffset)
}

func closeStartElement(buf *bytes.Buffer) { buf.WriteByte(tokenCloseStartElement) }
func closeEmptyElement(buf *bytes.Buffer) { buf.WriteByte(tokenCloseEmptyElement) }
func endElement(buf *bytes.Buffer)        { buf.WriteByte(tokenEndElement) }

// valueString appends a ValueTextToken carrying a length-prefixed
// StringType value.
func valueString(buf *bytes.Buffer, s string) {
	buf.WriteByte(tokenValue)
	buf.WriteByte(byte(StringType))
	u16 := encodeUTF16LE(s)
	binary.Write(buf, binary.LittleEndian, uint16(len([]rune(s))))
	buf.Write(u16)
}

// valueUInt32 appends a ValueTextToken carrying a UInt32Type value.
func valueUInt32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(tokenValue)
	buf.WriteByte(byte(UInt32Type))
	binary.Write(buf, binary.LittleEndian, v)
}
