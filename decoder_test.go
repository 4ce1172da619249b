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

func buildSimpleRecordChunk(t *testing.T) (*ChunkContext, uint32) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.Write(make([]byte, chunkHeaderLen-len(chunkMagic)))

	eventOff := appendNameRecord(&buf, "Event", 0)
	dataOff := appendNameRecord(&buf, "Data", 0)

	start := uint32(buf.Len())
	openStartElement(&buf, eventOff)
	closeStartElement(&buf)
	openStartElement(&buf, dataOff)
	closeStartElement(&buf)
	valueString(&buf, "hello")
	endElement(&buf) // </Data>
	endElement(&buf) // </Event>

	cc, err := NewChunkContext(buf.Bytes(), NewWindows1252Codec(), nil)
	require.NoError(t, err)
	return cc, start
}

func TestDecodeSimpleElement(t *testing.T) {
	cc, start := buildSimpleRecordChunk(t)
	tree, err := Decode(NewCursorAt(cc.Data, start), cc, ModeRecord)
	require.NoError(t, err)

	root := tree.Arena.Elem(tree.RootElement)
	assert.Equal(t, "Event", root.Name)
	require.Len(t, root.Children, 1)
	require.Equal(t, NodeElement, root.Children[0].Kind)

	data := tree.Arena.Elem(root.Children[0].Element)
	assert.Equal(t, "Data", data.Name)
	require.Len(t, data.Children, 1)
	require.Equal(t, NodeValue, data.Children[0].Kind)
	assert.Equal(t, StringType, data.Children[0].Value.Kind)

	s, err := FormatValue(data.Children[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestDecodeEmptyElement(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.Write(make([]byte, chunkHeaderLen-len(chunkMagic)))
	eventOff := appendNameRecord(&buf, "Event", 0)

	start := uint32(buf.Len())
	openStartElement(&buf, eventOff)
	closeEmptyElement(&buf)

	cc, err := NewChunkContext(buf.Bytes(), NewWindows1252Codec(), nil)
	require.NoError(t, err)

	tree, err := Decode(NewCursorAt(cc.Data, start), cc, ModeRecord)
	require.NoError(t, err)
	root := tree.Arena.Elem(tree.RootElement)
	assert.Equal(t, "Event", root.Name)
	assert.Len(t, root.Children, 0)
}

func TestDecodeInvalidOpeningToken(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.Write(make([]byte, chunkHeaderLen-len(chunkMagic)))
	start := uint32(buf.Len())
	buf.WriteByte(0xFF)

	cc, err := NewChunkContext(buf.Bytes(), NewWindows1252Codec(), nil)
	require.NoError(t, err)

	_, err = Decode(NewCursorAt(cc.Data, start), cc, ModeRecord)
	require.Error(t, err)
	var tokErr *TokenError
	assert.ErrorAs(t, err, &tokErr)
}
