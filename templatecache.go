// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"github.com/google/uuid"
)

// TemplateIR is a parsed template *definition*: an IrTree whose leaves may
// include NodePlaceholder nodes. It is immutable
// once built and safe to share (by reference) across every record in the
// chunk that instantiates it.
type TemplateIR struct {
	GUID uuid.UUID
	Tree *IrTree
}

// TemplateCache is the per-chunk cache of parsed template IR trees, keyed
// by the 16-byte template GUID rather than by chunk offset: two
// TemplateInstance opcodes at different offsets that happen to reference
// definitions sharing a GUID must resolve to the same parsed tree, parsed
// exactly once per chunk and shared by reference thereafter.
type TemplateCache struct {
	chunk   *ChunkContext
	parsed  map[uuid.UUID]*TemplateIR
}

// NewTemplateCache returns an empty cache bound to chunk; chunk supplies
// the byte data that GetOrParse reads template definitions from.
func NewTemplateCache(chunk *ChunkContext) *TemplateCache {
	return &TemplateCache{chunk: chunk, parsed: make(map[uuid.UUID]*TemplateIR)}
}

// templateDefHeader is the on-disk layout at a template definition:
// u32 next_template_offset, [16]byte guid, u32 data_size, then data_size
// bytes of BinXML.
type templateDefHeader struct {
	NextTemplateOffset uint32
	GUID               uuid.UUID
	DataSize           uint32
}

func readTemplateDefHeader(data []byte, defOffset uint32) (templateDefHeader, uint32, error) {
	c := NewCursorAt(data, defOffset)
	next, err := c.ReadU32()
	if err != nil {
		return templateDefHeader{}, 0, err
	}
	raw, err := c.ReadArray16()
	if err != nil {
		return templateDefHeader{}, 0, err
	}
	size, err := c.ReadU32()
	if err != nil {
		return templateDefHeader{}, 0, err
	}
	return templateDefHeader{NextTemplateOffset: next, GUID: uuid.UUID(raw), DataSize: size}, c.Pos(), nil
}

// GetOrParse returns the parsed definition at defOffset, parsing it on a
// cache miss. A definition already parsed under the same GUID (regardless
// of the offset it was first seen at) is returned without re-parsing.
func (tc *TemplateCache) GetOrParse(defOffset uint32) (*TemplateIR, error) {
	hdr, bodyStart, err := readTemplateDefHeader(tc.chunk.Data, defOffset)
	if err != nil {
		return nil, &FailedToDeserializeTemplateError{Inner: err}
	}
	if existing, ok := tc.parsed[hdr.GUID]; ok {
		return existing, nil
	}

	bodyCur := NewCursorAt(tc.chunk.Data, bodyStart)
	tree, err := Decode(bodyCur, tc.chunk, ModeTemplateDefinition)
	if err != nil {
		return nil, &FailedToDeserializeTemplateError{GUID: hdr.GUID, Inner: err}
	}

	def := &TemplateIR{GUID: hdr.GUID, Tree: tree}
	tc.parsed[hdr.GUID] = def
	return def, nil
}

// ValidateCandidateHeader is a header sanity check over a candidate
// template body; GetOrParse does not call it:
// next_template_offset must be 0, equal to defOffset, or a forward in-
// chunk offset; data_size must be at least 4; and the first four payload
// bytes must be the BinXML fragment header 0F 01 01 xx.
func ValidateCandidateHeader(data []byte, defOffset uint32) bool {
	hdr, bodyStart, err := readTemplateDefHeader(data, defOffset)
	if err != nil {
		return false
	}
	if !(hdr.NextTemplateOffset == 0 || hdr.NextTemplateOffset == defOffset || hdr.NextTemplateOffset > defOffset) {
		return false
	}
	if hdr.DataSize < 4 {
		return false
	}
	if uint64(bodyStart)+4 > uint64(len(data)) {
		return false
	}
	frag := data[bodyStart : bodyStart+4]
	return frag[0] == 0x0F && frag[1] == 0x01 && frag[2] == 0x01
}
