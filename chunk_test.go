// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChunkHeaderBadMagic(t *testing.T) {
	data := make([]byte, chunkHeaderLen)
	copy(data, "NOTACHNK")
	_, err := ParseChunkHeader(data)
	assert.ErrorIs(t, err, ErrBadChunkMagic)
}

func TestNewEvtxChunkIteratesRecords(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.Write(make([]byte, chunkHeaderLen-len(chunkMagic)))

	// Records start right after the chunk header, so the "Event" name
	// record goes after both records. Each body is openStartElement (11
	// bytes) + closeEmptyElement (1).
	const bodyLen = 12
	eventOff := uint32(chunkHeaderLen + 2*(recordHeaderFixedLen+bodyLen+recordTrailerLen))

	var body bytes.Buffer
	openStartElement(&body, eventOff)
	closeEmptyElement(&body)

	appendRecord(&buf, 1, 0, body.Bytes())
	appendRecord(&buf, 2, 0, body.Bytes())
	free := uint32(buf.Len())
	require.Equal(t, eventOff, appendNameRecord(&buf, "Event", 0))

	data := buf.Bytes()
	// FreeSpaceOffset sits at byte offset 48 in the fixed header: magic(8) +
	// 4 record-number uint64s(32) + HeaderSize(4) + LastRecordOffset(4).
	freeBytes := data[48:52]
	freeBytes[0] = byte(free)
	freeBytes[1] = byte(free >> 8)
	freeBytes[2] = byte(free >> 16)
	freeBytes[3] = byte(free >> 24)

	chunk, err := NewEvtxChunk(data, NewWindows1252Codec(), nil)
	require.NoError(t, err)

	next := chunk.Records()
	var ids []uint64
	for {
		rec, ok, err := next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []uint64{1, 2}, ids)
}
