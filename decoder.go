// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

// BinXML token opcodes. Several opcodes have a second form
// with bit 0x40 set, meaning "this element/value/attribute carries more
// data than the bare form" (has_attributes for OpenStartElement; "more
// data follows" for the others); both forms dispatch identically here
// except where noted.
const (
	tokenEndOfStream         byte = 0x00
	tokenOpenStartElement    byte = 0x01
	tokenCloseStartElement   byte = 0x02
	tokenCloseEmptyElement   byte = 0x03
	tokenEndElement          byte = 0x04
	tokenValue               byte = 0x05
	tokenAttribute           byte = 0x06
	tokenCDataSection        byte = 0x07
	tokenCharRef             byte = 0x08
	tokenEntityRef           byte = 0x09
	tokenPITarget            byte = 0x0A
	tokenPIData              byte = 0x0B
	tokenTemplateInstance    byte = 0x0C
	tokenNormalSubstitution  byte = 0x0D
	tokenOptionalSubstitution byte = 0x0E
	tokenFragmentHeader      byte = 0x0F

	tokenOpenStartElementAttrs byte = 0x41
	tokenValueMore             byte = 0x45
	tokenAttributeMore         byte = 0x46
	tokenCDataSectionMore      byte = 0x47
	tokenCharRefMore           byte = 0x48
	tokenEntityRefMore         byte = 0x49
)

// Mode selects which grammar Decode applies: a template definition body may
// contain NormalSubstitutionToken/OptionalSubstitutionToken placeholders
// and is expected to bottom out cleanly at EndOfStream; a record body is
// already fully substituted and must not contain either substitution token.
type Mode int

const (
	ModeTemplateDefinition Mode = iota
	ModeRecord
)

// Decode parses one BinXML fragment from cur into a fresh IrTree. A leading
// FragmentHeaderToken is consumed if present.
func Decode(cur *Cursor, chunk *ChunkContext, mode Mode) (*IrTree, error) {
	if b, err := cur.PeekU8(); err == nil && b == tokenFragmentHeader {
		if _, err := cur.ReadU8(); err != nil {
			return nil, err
		}
		if _, err := cur.ReadBytes(3); err != nil { // major, minor, flags
			return nil, err
		}
	}

	arena := NewArena(8)
	b := &builder{cur: cur, chunk: chunk, arena: arena, mode: mode}

	root, err := b.decodeElement()
	if err != nil {
		return nil, err
	}
	return &IrTree{Arena: arena, RootElement: root}, nil
}

type builder struct {
	cur   *Cursor
	chunk *ChunkContext
	arena *Arena
	mode  Mode
}

// resolveName reads a u32 string-cache offset and resolves it through the
// chunk's StringCache.
func (b *builder) resolveName() (string, error) {
	off, err := b.cur.ReadU32()
	if err != nil {
		return "", err
	}
	return b.chunk.StringCache.Lookup(off)
}

// decodeElement expects the cursor to be positioned at an
// OpenStartElementToken and consumes through the matching EndElementToken
// (or, for an empty element, through CloseEmptyElementToken).
func (b *builder) decodeElement() (ElementID, error) {
	offset := b.cur.Pos()
	tok, err := b.cur.ReadU8()
	if err != nil {
		return noElement, err
	}
	if tok != tokenOpenStartElement && tok != tokenOpenStartElementAttrs {
		return noElement, &TokenError{Value: tok, Offset: offset, Inner: ErrInvalidToken}
	}
	hasAttrs := tok == tokenOpenStartElementAttrs

	if _, err := b.cur.ReadU16(); err != nil { // reserved
		return noElement, err
	}
	if _, err := b.cur.ReadU32(); err != nil { // element_data_size, unused
		return noElement, err
	}
	name, err := b.resolveName()
	if err != nil {
		return noElement, err
	}

	id := b.arena.NewElement(name)

	if hasAttrs {
		if _, err := b.cur.ReadU32(); err != nil { // attribute_list_data_size, unused
			return noElement, err
		}
		for {
			peek, err := b.cur.PeekU8()
			if err != nil {
				return noElement, err
			}
			if peek == tokenCloseStartElement || peek == tokenCloseEmptyElement {
				break
			}
			if err := b.decodeAttribute(id); err != nil {
				return noElement, err
			}
		}
	}

	closeTok, err := b.cur.ReadU8()
	if err != nil {
		return noElement, err
	}
	switch closeTok {
	case tokenCloseEmptyElement:
		return id, nil
	case tokenCloseStartElement:
		// children follow until EndElementToken
	default:
		return noElement, &TokenError{Value: closeTok, Offset: offset, Inner: ErrInvalidToken}
	}

	for {
		peek, err := b.cur.PeekU8()
		if err != nil {
			return noElement, err
		}
		if peek == tokenEndElement {
			if _, err := b.cur.ReadU8(); err != nil {
				return noElement, err
			}
			return id, nil
		}
		n, err := b.decodeChildNode(id)
		if err != nil {
			return noElement, err
		}
		if n != nil {
			b.arena.AddChild(id, *n)
		}
	}
}

func (b *builder) decodeAttribute(parent ElementID) error {
	tok, err := b.cur.ReadU8()
	if err != nil {
		return err
	}
	if tok != tokenAttribute && tok != tokenAttributeMore {
		return &TokenError{Value: tok, Offset: b.cur.Pos() - 1, Inner: ErrInvalidToken}
	}
	name, err := b.resolveName()
	if err != nil {
		return err
	}
	idx := b.arena.AddAttr(parent, name)

	for {
		n, err := b.decodeValueNode()
		if err != nil {
			return err
		}
		if n == nil {
			break
		}
		if err := b.arena.AddAttrValue(parent, idx, *n); err != nil {
			return err
		}
		peek, err := b.cur.PeekU8()
		if err != nil {
			return err
		}
		if peek == tokenValue || peek == tokenValueMore ||
			peek == tokenNormalSubstitution || peek == tokenOptionalSubstitution ||
			peek == tokenEntityRef || peek == tokenEntityRefMore {
			continue
		}
		break
	}
	return nil
}

// decodeValueNode decodes exactly one non-element node (text, substitution,
// or entity reference), returning (nil, nil) if the next token is not one
// of those (so callers can detect "no more value pieces").
func (b *builder) decodeValueNode() (*Node, error) {
	peek, err := b.cur.PeekU8()
	if err != nil {
		return nil, err
	}
	switch peek {
	case tokenValue, tokenValueMore:
		if _, err := b.cur.ReadU8(); err != nil {
			return nil, err
		}
		v, err := DecodeValue(b.cur, b.chunk, nil, b.chunk.AnsiCodec)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeValue, Value: v}, nil

	case tokenNormalSubstitution, tokenOptionalSubstitution:
		if b.mode != ModeTemplateDefinition {
			return nil, ErrInvalidToken
		}
		optional := peek == tokenOptionalSubstitution
		if _, err := b.cur.ReadU8(); err != nil {
			return nil, err
		}
		id, err := b.cur.ReadU16()
		if err != nil {
			return nil, err
		}
		vt, err := b.cur.ReadU8()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodePlaceholder, PlaceholderID: id, PlaceholderType: ValueKind(vt), Optional: optional}, nil

	case tokenEntityRef, tokenEntityRefMore:
		if _, err := b.cur.ReadU8(); err != nil {
			return nil, err
		}
		name, err := b.resolveName()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeEntityRef, Name: name}, nil

	default:
		return nil, nil
	}
}

// decodeChildNode decodes one child of an open element: a value/
// substitution/entity-reference node, a nested element, a CDATA/char-ref
// (unimplemented), a processing instruction, or a TemplateInstance.
func (b *builder) decodeChildNode(parent ElementID) (*Node, error) {
	peek, err := b.cur.PeekU8()
	if err != nil {
		return nil, err
	}
	switch peek {
	case tokenOpenStartElement, tokenOpenStartElementAttrs:
		child, err := b.decodeElement()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeElement, Element: child}, nil

	case tokenValue, tokenValueMore, tokenNormalSubstitution, tokenOptionalSubstitution, tokenEntityRef, tokenEntityRefMore:
		return b.decodeValueNode()

	case tokenCDataSection, tokenCDataSectionMore:
		return nil, &TokenError{Value: peek, Offset: b.cur.Pos(), Inner: ErrUnimplementedToken}

	case tokenCharRef, tokenCharRefMore:
		return nil, &TokenError{Value: peek, Offset: b.cur.Pos(), Inner: ErrUnimplementedToken}

	case tokenPITarget:
		if _, err := b.cur.ReadU8(); err != nil {
			return nil, err
		}
		name, err := b.resolveName()
		if err != nil {
			return nil, err
		}
		_ = parent
		return &Node{Kind: NodePITarget, Name: name}, nil

	case tokenPIData:
		if _, err := b.cur.ReadU8(); err != nil {
			return nil, err
		}
		s, err := b.cur.ReadUTF16LELengthPrefixed(false)
		if err != nil {
			return nil, err
		}
		txt, err := decodeUTF16LE(s)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodePIData, Text: txt}, nil

	case tokenTemplateInstance:
		return b.decodeTemplateInstance()

	default:
		return nil, &TokenError{Value: peek, Offset: b.cur.Pos(), Inner: ErrInvalidToken}
	}
}

// decodeTemplateInstance reads a TemplateInstanceToken, resolves (and
// parses-on-miss) the referenced template definition, reads its
// substitution array, and splices the instantiated subtree in as a single
// element-position node.
func (b *builder) decodeTemplateInstance() (*Node, error) {
	if _, err := b.cur.ReadU8(); err != nil { // token
		return nil, err
	}
	if _, err := b.cur.ReadU8(); err != nil { // reserved (0x01)
		return nil, err
	}
	if _, err := b.cur.ReadU32(); err != nil { // template_id, unused here
		return nil, err
	}
	defOffset, err := b.cur.ReadU32()
	if err != nil {
		return nil, err
	}

	def, err := b.chunk.TemplateCache.GetOrParse(defOffset)
	if err != nil {
		return nil, err
	}

	if defOffset == b.cur.Pos() {
		hdr, bodyStart, err := readTemplateDefHeader(b.chunk.Data, defOffset)
		if err != nil {
			return nil, &FailedToDeserializeTemplateError{Inner: err}
		}
		b.cur.Seek(bodyStart + hdr.DataSize)
	}

	subs, err := b.readSubstitutionArray()
	if err != nil {
		return nil, err
	}

	id, err := InstantiateTemplate(def, subs, b.arena, b.chunk)
	if err != nil {
		return nil, err
	}
	if err := ExpandArrays(b.arena, id); err != nil {
		return nil, err
	}
	return &Node{Kind: NodeElement, Element: id}, nil
}

// readSubstitutionArray reads the substitution descriptor table (u32
// count, then count * (u16 size, u8 type, u8 reserved) descriptors) and
// decodes each value in turn.
func (b *builder) readSubstitutionArray() ([]Value, error) {
	count, err := b.cur.ReadU32()
	if err != nil {
		return nil, err
	}
	type desc struct {
		size uint16
		typ  ValueKind
	}
	descs := make([]desc, count)
	for i := range descs {
		size, err := b.cur.ReadU16()
		if err != nil {
			return nil, err
		}
		typ, err := b.cur.ReadU8()
		if err != nil {
			return nil, err
		}
		if _, err := b.cur.ReadU8(); err != nil { // reserved
			return nil, err
		}
		descs[i] = desc{size: size, typ: ValueKind(typ)}
	}

	out := make([]Value, count)
	for i, d := range descs {
		if d.typ == NullType && d.size == 0 {
			out[i] = Value{Kind: NullType}
			continue
		}
		size := uint32(d.size)
		if d.typ.IsArray() {
			v, err := decodeArrayValue(b.cur, b.chunk, d.typ, size, b.chunk.AnsiCodec)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		v, err := decodeScalarValue(b.cur, b.chunk, d.typ, &size, b.chunk.AnsiCodec)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
