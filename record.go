// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import "time"

const (
	recordMagic  uint32 = 0x00002a2a
	recordHeaderFixedLen = 24 // magic(4) + size(4) + id(8) + filetime(8)
	recordTrailerLen     = 4  // trailing copy of size
)

// Record is one decoded-header, not-yet-deserialized event record: id,
// timestamp, and the raw BinXML body. BinXML decoding of Body is deferred
// until Decode/RenderXML/RenderJSON is called, so an iterator can skip a
// record whose header alone is all a caller needs.
type Record struct {
	ID        uint64
	Timestamp time.Time
	Body      []byte

	// bodyOffset is Body's chunk-relative byte offset, needed so a
	// TemplateInstance token's def_offset (always chunk-relative) can be
	// compared against the decode cursor's position to detect a resident
	// template definition.
	bodyOffset uint32
	chunk      *ChunkContext
}

// ParseRecord reads one record header at offset within chunk.Data and
// returns the Record together with the offset of the next record.
func ParseRecord(chunk *ChunkContext, offset uint32) (*Record, uint32, error) {
	c := NewCursorAt(chunk.Data, offset)

	magic, err := c.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	if magic != recordMagic {
		return nil, 0, &ParseError{What: "record magic", Offset: offset}
	}
	size, err := c.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	if size < recordHeaderFixedLen+recordTrailerLen {
		return nil, 0, ErrBadRecordMagic
	}
	id, err := c.ReadU64()
	if err != nil {
		return nil, 0, err
	}
	filetime, err := c.ReadU64()
	if err != nil {
		return nil, 0, err
	}
	bodyOffset := c.Pos()
	bodyLen := size - recordHeaderFixedLen - recordTrailerLen
	body, err := c.ReadBytes(bodyLen)
	if err != nil {
		return nil, 0, err
	}
	if _, err := c.ReadU32(); err != nil { // trailing size copy, unchecked
		return nil, 0, err
	}

	r := &Record{
		ID:         id,
		Timestamp:  FileTimeToTime(filetime),
		Body:       body,
		bodyOffset: bodyOffset,
		chunk:      chunk,
	}
	return r, offset + size, nil
}

// Decode parses the record's BinXML body into an IrTree. The cursor walks
// chunk.Data directly, rather than a copy of Body, so its position stays
// chunk-relative and comparable against a TemplateInstance token's
// def_offset.
func (r *Record) Decode() (*IrTree, error) {
	return Decode(NewCursorAt(r.chunk.Data, r.bodyOffset), r.chunk, ModeRecord)
}

// syntheticEventTree builds the minimal "<Event/>" fallback tree used when
// a record's body cannot be decoded: the
// caller still gets a well-formed, if empty, document instead of a fully
// aborted record.
func syntheticEventTree() *IrTree {
	arena := NewArena(1)
	root := arena.NewElement("Event")
	return &IrTree{Arena: arena, RootElement: root}
}

// RenderXML decodes and renders the record as XML. On a decode failure it
// logs the error through the chunk's Helper and falls back to a synthetic
// "<Event/>" rather than failing the whole chunk iteration, returning the
// wrapped error alongside the fallback text so the caller can choose to
// surface it.
func (r *Record) RenderXML(opts XMLOptions) (string, error) {
	tree, err := r.Decode()
	if err != nil {
		wrapped := &FailedToParseRecordError{RecordID: r.ID, Inner: err}
		if r.chunk.Logger != nil {
			r.chunk.Logger.Warnf("record %d: %v", r.ID, wrapped)
		}
		out, _ := RenderXML(syntheticEventTree(), opts)
		return out, wrapped
	}
	return RenderXML(tree, opts)
}

// RenderJSON decodes and renders the record as JSON, with the same
// fail-soft fallback as RenderXML.
func (r *Record) RenderJSON(opts JSONOptions) (string, error) {
	tree, err := r.Decode()
	if err != nil {
		wrapped := &FailedToParseRecordError{RecordID: r.ID, Inner: err}
		if r.chunk.Logger != nil {
			r.chunk.Logger.Warnf("record %d: %v", r.ID, wrapped)
		}
		out, _ := RenderJSON(syntheticEventTree(), opts)
		return out, wrapped
	}
	return RenderJSON(tree, opts)
}
