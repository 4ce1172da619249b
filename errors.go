// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Errors returned while decoding the BinXML token stream or the value
// variants it carries.
var (
	// ErrOutsideBoundary is returned when a read would cross the end of the
	// chunk or the record's BinXML slice.
	ErrOutsideBoundary = errors.New("evtx: read outside chunk boundary")

	// ErrInvalidToken is returned when a byte read as an opcode does not
	// match any entry in the opcode table.
	ErrInvalidToken = errors.New("evtx: invalid BinXML token")

	// ErrInvalidValueVariant is returned when a value type byte does not
	// match any of the ~40 known kinds.
	ErrInvalidValueVariant = errors.New("evtx: invalid BinXML value variant")

	// ErrUnimplementedToken is returned for opcodes that are recognized but
	// deliberately not implemented.
	ErrUnimplementedToken = errors.New("evtx: unimplemented BinXML token")

	// ErrUnimplementedValueVariant is returned for a recognized but
	// unimplemented value kind.
	ErrUnimplementedValueVariant = errors.New("evtx: unimplemented value variant")

	// ErrInvalidDateTime is returned when a FileTime/SysTime value cannot be
	// converted to a valid instant.
	ErrInvalidDateTime = errors.New("evtx: invalid date/time value")

	// ErrAnsiDecode is returned when an AnsiString payload cannot be decoded
	// with the configured ansi_codec.
	ErrAnsiDecode = errors.New("evtx: failed to decode ANSI string")

	// ErrUnalignedSize is returned by ReadAlignedArray when size_bytes is not
	// a multiple of the element width.
	ErrUnalignedSize = errors.New("evtx: array size is not a multiple of element size")

	// ErrUnbalancedElementStack is a model error: CloseElement was seen with
	// an empty open-element stack.
	ErrUnbalancedElementStack = errors.New("evtx: unbalanced element stack")

	// ErrElementInAttributeValue is a model error: an attribute's
	// value_nodes tried to accept an Element node.
	ErrElementInAttributeValue = errors.New("evtx: element node inside attribute value")

	// ErrUnresolvedPlaceholder is a model error: render time found a
	// Placeholder node, meaning instantiation was skipped or buggy.
	ErrUnresolvedPlaceholder = errors.New("evtx: unresolved placeholder at render time")

	// ErrUnexpectedValueKind is a model/serialization error: a renderer was
	// asked to format a value kind it does not expect in that position.
	ErrUnexpectedValueKind = errors.New("evtx: unexpected value kind")

	// ErrBadChunkMagic is a chunk-level error: the chunk header
	// magic does not read "ElfChnk\x00".
	ErrBadChunkMagic = errors.New("evtx: bad chunk magic")

	// ErrBadFileMagic is a container-level error for the file header magic.
	ErrBadFileMagic = errors.New("evtx: bad file magic")

	// ErrBadRecordMagic is returned by ParseRecord when a record's declared
	// size is too small to hold its header and trailer. A wrong record
	// magic is reported as a *ParseError.
	ErrBadRecordMagic = errors.New("evtx: bad record magic")

	// ErrChecksumMismatch names a chunk CRC32 mismatch. No function in this
	// module returns it; chunk checksums are not verified.
	ErrChecksumMismatch = errors.New("evtx: chunk checksum mismatch")
)

// ParseError is the offset-carrying deserialization error: what was being
// read, at what offset, and how far short the cursor fell.
type ParseError struct {
	What   string
	Offset uint32
	Need   int
	Have   int
}

func (e *ParseError) Error() string {
	if e.Need > 0 || e.Have > 0 {
		return fmt.Sprintf("evtx: truncated %s at offset %#x: need %d bytes, have %d",
			e.What, e.Offset, e.Need, e.Have)
	}
	return fmt.Sprintf("evtx: truncated %s at offset %#x", e.What, e.Offset)
}

func (e *ParseError) Unwrap() error { return ErrOutsideBoundary }

func truncated(what string, offset uint32, need, have int) error {
	return &ParseError{What: what, Offset: offset, Need: need, Have: have}
}

// TokenError reports an invalid or unimplemented opcode together with the
// offset it was read from.
type TokenError struct {
	Value  byte
	Offset uint32
	Inner  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("evtx: token %#02x at offset %#x: %v", e.Value, e.Offset, e.Inner)
}

func (e *TokenError) Unwrap() error { return e.Inner }

// FailedToDeserializeTemplateError wraps any deserialization error that
// occurs while parsing a template *definition*, preserving the template's
// GUID so the caller can attempt the offline TemplateProvider fallback.
type FailedToDeserializeTemplateError struct {
	GUID  uuid.UUID
	Inner error
}

func (e *FailedToDeserializeTemplateError) Error() string {
	return fmt.Sprintf("evtx: failed to deserialize template %s: %v", e.GUID, e.Inner)
}

func (e *FailedToDeserializeTemplateError) Unwrap() error { return e.Inner }

// FailedToParseRecordError wraps any error encountered while parsing or
// rendering one record, so that the caller's iterator can surface it
// without poisoning subsequent records.
type FailedToParseRecordError struct {
	RecordID uint64
	Inner    error
}

func (e *FailedToParseRecordError) Error() string {
	return fmt.Sprintf("evtx: failed to parse record %d: %v", e.RecordID, e.Inner)
}

func (e *FailedToParseRecordError) Unwrap() error { return e.Inner }
