// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import "golang.org/x/text/encoding"

// ParserSettings configures a File the way pe.Options configures a
// pe.File: a plain struct of knobs passed once at open time, with
// sensible zero-value defaults.
type ParserSettings struct {
	// Indent pretty-prints XML/JSON output with two-space indentation.
	Indent bool

	// SeparateJSONAttributes moves an element's attributes out of its
	// "#attributes" key into a sibling "<ElementKey>_attributes" key of the parent
	// object; when false they stay nested under "#attributes".
	SeparateJSONAttributes bool

	// ValidateChecksums verifies the file header's CRC32 when the file is
	// opened, failing with the container's header-checksum error on
	// mismatch. Chunk header and event-record checksums are not verified.
	ValidateChecksums bool

	// NumWorkers is carried with the settings; nothing in this package
	// reads it. Decoding within the package is sequential.
	NumWorkers int

	// AnsiCodepage selects the text encoding used to decode AnsiStringType
	// values. Defaults to Windows-1252 when left nil.
	AnsiCodepage encoding.Encoding

	// TemplateProvider is stored with the settings; no decode path in this
	// package consults it, so a template definition that fails to
	// deserialize surfaces as a FailedToDeserializeTemplateError.
	TemplateProvider TemplateProvider
}

// DefaultParserSettings returns the zero-configuration settings used when
// a caller does not supply their own: no indentation, JSON attributes
// nested under "#attributes", checksums not validated, Windows-1252 ANSI
// strings.
func DefaultParserSettings() ParserSettings {
	return ParserSettings{}
}

func (s ParserSettings) xmlOptions() XMLOptions {
	return XMLOptions{Indent: s.Indent}
}

func (s ParserSettings) jsonOptions() JSONOptions {
	return JSONOptions{Indent: s.Indent, SeparateAttributes: s.SeparateJSONAttributes}
}

func (s ParserSettings) codec() AnsiCodec {
	if s.AnsiCodepage != nil {
		return NewCodepageCodec(s.AnsiCodepage)
	}
	return NewWindows1252Codec()
}

// TemplateProvider resolves a template definition by GUID when a chunk's
// own copy could not be deserialized.
type TemplateProvider interface {
	Lookup(guid [16]byte) (*TemplateIR, bool)
}

// MapTemplateProvider is the simplest TemplateProvider: a pre-populated
// map, e.g. loaded once from a sidecar file of known-good template
// definitions.
type MapTemplateProvider struct {
	templates map[[16]byte]*TemplateIR
}

// NewMapTemplateProvider wraps templates, keyed by raw GUID bytes.
func NewMapTemplateProvider(templates map[[16]byte]*TemplateIR) *MapTemplateProvider {
	return &MapTemplateProvider{templates: templates}
}

// Lookup implements TemplateProvider.
func (p *MapTemplateProvider) Lookup(guid [16]byte) (*TemplateIR, bool) {
	t, ok := p.templates[guid]
	return t, ok
}
