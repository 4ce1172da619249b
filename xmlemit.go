// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"bytes"
	"fmt"
)

// XMLOptions configures RenderXML.
type XMLOptions struct {
	Indent bool
}

// RenderXML serializes tree as an XML document fragment.
// A "Binary" element with no element children is always rendered on a
// single line regardless of Indent, matching Windows Event Viewer's own
// rendering of binary payloads.
func RenderXML(tree *IrTree, opts XMLOptions) (string, error) {
	var buf bytes.Buffer
	if err := writeXMLElement(&buf, tree.Arena, tree.RootElement, 0, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func writeXMLElement(buf *bytes.Buffer, arena *Arena, id ElementID, depth int, opts XMLOptions) error {
	el := arena.Elem(id)
	singleLine := el.Name == "Binary" && !el.HasElementChild

	if opts.Indent && !singleLine {
		writeIndent(buf, depth)
	}
	buf.WriteByte('<')
	buf.WriteString(el.Name)
	for _, a := range el.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		for _, vn := range a.ValueNodes {
			s, err := inlineNodeRaw(vn)
			if err != nil {
				return err
			}
			buf.Write(AppendEscapedXMLAttr(nil, s))
		}
		buf.WriteByte('"')
	}

	if len(el.Children) == 0 {
		buf.WriteString("/>")
		if opts.Indent && !singleLine {
			buf.WriteByte('\n')
		}
		return nil
	}
	buf.WriteByte('>')

	if singleLine {
		for _, c := range el.Children {
			if err := writeXMLInline(buf, c); err != nil {
				return err
			}
		}
		buf.WriteString("</")
		buf.WriteString(el.Name)
		buf.WriteByte('>')
		if opts.Indent {
			buf.WriteByte('\n')
		}
		return nil
	}

	if el.HasElementChild {
		if opts.Indent {
			buf.WriteByte('\n')
		}
		for _, c := range el.Children {
			if c.Kind == NodeElement {
				if err := writeXMLElement(buf, arena, c.Element, depth+1, opts); err != nil {
					return err
				}
				continue
			}
			if opts.Indent {
				writeIndent(buf, depth+1)
			}
			if err := writeXMLInline(buf, c); err != nil {
				return err
			}
			if opts.Indent {
				buf.WriteByte('\n')
			}
		}
		if opts.Indent {
			writeIndent(buf, depth)
		}
	} else {
		for _, c := range el.Children {
			if err := writeXMLInline(buf, c); err != nil {
				return err
			}
		}
	}

	buf.WriteString("</")
	buf.WriteString(el.Name)
	buf.WriteByte('>')
	if opts.Indent {
		buf.WriteByte('\n')
	}
	return nil
}

// writeXMLInline writes one non-element node's text representation.
func writeXMLInline(buf *bytes.Buffer, n Node) error {
	switch n.Kind {
	case NodeEntityRef:
		buf.WriteByte('&')
		buf.WriteString(n.Name)
		buf.WriteByte(';')
		return nil
	case NodeCharRef:
		fmt.Fprintf(buf, "&#%d;", n.CharRef)
		return nil
	case NodeCData:
		buf.WriteString("<![CDATA[")
		buf.WriteString(n.Text)
		buf.WriteString("]]>")
		return nil
	case NodePITarget:
		buf.WriteString("<?")
		buf.WriteString(n.Name)
		return nil
	case NodePIData:
		buf.WriteByte(' ')
		buf.WriteString(n.Text)
		buf.WriteString("?>")
		return nil
	case NodePlaceholder:
		return ErrUnresolvedPlaceholder
	default:
		s, err := inlineNodeRaw(n)
		if err != nil {
			return err
		}
		buf.Write(AppendEscapedXMLText(nil, s))
		return nil
	}
}

// inlineNodeRaw returns the unescaped text content of a Text/Value node.
func inlineNodeRaw(n Node) (string, error) {
	switch n.Kind {
	case NodeText:
		if n.Text != "" {
			return n.Text, nil
		}
		return decodeUTF16LE(n.U16Text)
	case NodeValue:
		return FormatValue(n.Value)
	case NodePlaceholder:
		return "", ErrUnresolvedPlaceholder
	default:
		return "", ErrUnexpectedValueKind
	}
}
