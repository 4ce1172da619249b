// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"bytes"
	"strconv"
	"strings"
)

// JSONOptions configures RenderJSON.
type JSONOptions struct {
	// SeparateAttributes controls where an element's non-empty attributes
	// land: nested under its own reserved "#attributes" key (false, the
	// default) or promoted to a sibling key "<ElementKey>_attributes" at
	// the parent level (true), omitting "#attributes" from the element's
	// own object either way once promoted.
	SeparateAttributes bool
	Indent             bool
}

// jsonObject is an insertion-ordered string-keyed map: Go's map has no
// stable iteration order, and EVTX-to-JSON output is expected to preserve
// the document's field order.
type jsonObject struct {
	keys   []string
	values map[string]interface{}
}

func newJSONObject() *jsonObject {
	return &jsonObject{values: make(map[string]interface{})}
}

func (o *jsonObject) set(key string, v interface{}) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// RenderJSON serializes tree as a JSON document whose single top-level key
// is the root element's name:
// the root is added to an empty object exactly like any other child, so
// duplicate-sibling suffixing and attribute promotion both fall out of the
// same code path a nested element uses.
func RenderJSON(tree *IrTree, opts JSONOptions) (string, error) {
	doc := newJSONObject()
	counts := make(map[string]int)
	if err := addChildToObject(tree.Arena, tree.RootElement, doc, opts, counts); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	writeJSONObject(&buf, doc, opts.Indent, 0)
	return buf.String(), nil
}

// scalarJSONValue converts a resolved BinXML Value into a native JSON
// type: numbers and booleans stay numbers and booleans, everything else renders through
// FormatValue.
func scalarJSONValue(v Value) (interface{}, error) {
	switch v.Kind.Scalar() {
	case NullType:
		return nil, nil
	case Int8Type, Int16Type, Int32Type, Int64Type:
		return v.I64, nil
	case UInt8Type, UInt16Type, UInt32Type, UInt64Type:
		return v.U64, nil
	case Real32Type:
		return float64(v.F32), nil
	case Real64Type:
		return v.F64, nil
	case BoolType:
		return v.Bool, nil
	default:
		return FormatValue(v)
	}
}

// buildMixedText concatenates el's non-element children into the JSON
// "#text" value: present is false when el has no non-element children at
// all (the "no children, no text" → null case).
// A single typed numeric/boolean Value child with no other content
// collapses to its native JSON type rather than a string, the same
// coercion rule used whether this becomes a whole element's scalar value
// or just its "#text" entry.
func buildMixedText(el *Element) (interface{}, bool, error) {
	var nonElement []Node
	for _, c := range el.Children {
		if c.Kind != NodeElement {
			nonElement = append(nonElement, c)
		}
	}
	if len(nonElement) == 0 {
		return nil, false, nil
	}
	if len(nonElement) == 1 && nonElement[0].Kind == NodeValue {
		v, err := scalarJSONValue(nonElement[0].Value)
		return v, true, err
	}

	var sb strings.Builder
	for _, c := range nonElement {
		switch c.Kind {
		case NodeText:
			if c.Text != "" {
				sb.WriteString(c.Text)
			} else {
				s, err := decodeUTF16LE(c.U16Text)
				if err != nil {
					return nil, false, err
				}
				sb.WriteString(s)
			}
		case NodeValue:
			s, err := FormatValue(c.Value)
			if err != nil {
				return nil, false, err
			}
			sb.WriteString(s)
		case NodeCData, NodePIData:
			sb.WriteString(c.Text)
		case NodeEntityRef:
			sb.WriteString("&" + c.Name + ";")
		case NodePlaceholder:
			return nil, false, ErrUnresolvedPlaceholder
		}
	}
	return sb.String(), true, nil
}

// findAttr returns the formatted value of the first attribute named name,
// and whether it was found at all.
func findAttr(el *Element, name string) (string, bool) {
	for _, a := range el.Attrs {
		if a.Name != name {
			continue
		}
		return formatAttrValue(a), true
	}
	return "", false
}

func formatAttrValue(a Attr) string {
	var sb strings.Builder
	for _, vn := range a.ValueNodes {
		switch vn.Kind {
		case NodeValue:
			s, err := FormatValue(vn.Value)
			if err == nil {
				sb.WriteString(s)
			}
		case NodeText:
			if vn.Text != "" {
				sb.WriteString(vn.Text)
			} else if s, err := decodeUTF16LE(vn.U16Text); err == nil {
				sb.WriteString(s)
			}
		}
	}
	return sb.String()
}

// buildAttrsObject returns an object of every non-empty attribute on el,
// or nil if el carries none.
func buildAttrsObject(el *Element) *jsonObject {
	var obj *jsonObject
	for _, a := range el.Attrs {
		s := formatAttrValue(a)
		if s == "" {
			continue
		}
		if obj == nil {
			obj = newJSONObject()
		}
		obj.set(a.Name, s)
	}
	return obj
}

// buildElementValue computes id's own JSON value and, separately, its
// non-empty attributes object.
func buildElementValue(arena *Arena, id ElementID, opts JSONOptions) (interface{}, *jsonObject, error) {
	el := arena.Elem(id)
	attrs := buildAttrsObject(el)

	if !el.HasElementChild && attrs == nil {
		v, present, err := buildMixedText(el)
		if err != nil {
			return nil, nil, err
		}
		if !present {
			return nil, nil, nil
		}
		return v, nil, nil
	}

	obj := newJSONObject()
	if attrs != nil && !opts.SeparateAttributes {
		obj.set("#attributes", attrs)
	}
	text, present, err := buildMixedText(el)
	if err != nil {
		return nil, nil, err
	}
	if present {
		obj.set("#text", text)
	}

	counts := make(map[string]int)
	if el.Name == "EventData" || el.Name == "UserData" {
		if err := addEventDataChildren(arena, el, obj, opts, counts); err != nil {
			return nil, nil, err
		}
	} else {
		for _, c := range el.Children {
			if c.Kind != NodeElement {
				continue
			}
			if err := addChildToObject(arena, c.Element, obj, opts, counts); err != nil {
				return nil, nil, err
			}
		}
	}

	var promoted *jsonObject
	if attrs != nil && opts.SeparateAttributes {
		promoted = attrs
	}
	return obj, promoted, nil
}

// addChildToObject adds element childID to parent under a key derived
// from its tag name, suffixed "_k" for the k-th repeat of that name under
// this parent, and, in
// SeparateAttributes mode, adds its promoted attributes object under
// "<key>_attributes" immediately after.
func addChildToObject(arena *Arena, childID ElementID, parent *jsonObject, opts JSONOptions, counts map[string]int) error {
	name := arena.Elem(childID).Name
	value, promotedAttrs, err := buildElementValue(arena, childID, opts)
	if err != nil {
		return err
	}

	key := name
	if k := counts[name]; k > 0 {
		key = name + "_" + strconv.Itoa(k)
	}
	counts[name]++

	parent.set(key, value)
	if promotedAttrs != nil {
		parent.set(key+"_attributes", promotedAttrs)
	}
	return nil
}

// addEventDataChildren implements EventData/UserData's named-flatten vs.
// positional shaping rule. Data children are handled
// specially; any other child is added through the ordinary
// addChildToObject path, sharing the same counts map so a non-Data child
// and a Data key can never collide silently.
func addEventDataChildren(arena *Arena, el *Element, obj *jsonObject, opts JSONOptions, counts map[string]int) error {
	var dataIDs []ElementID
	var other []Node
	for _, c := range el.Children {
		if c.Kind != NodeElement {
			continue
		}
		if arena.Elem(c.Element).Name == "Data" {
			dataIDs = append(dataIDs, c.Element)
		} else {
			other = append(other, c)
		}
	}

	named := false
	for _, id := range dataIDs {
		if name, ok := findAttr(arena.Elem(id), "Name"); ok && name != "" {
			named = true
			break
		}
	}

	if named {
		for _, id := range dataIDs {
			name, ok := findAttr(arena.Elem(id), "Name")
			if !ok || name == "" {
				continue
			}
			v, _, err := buildMixedText(arena.Elem(id))
			if err != nil {
				return err
			}
			key := name
			if k := counts[name]; k > 0 {
				key = name + "_" + strconv.Itoa(k)
			}
			counts[name]++
			obj.set(key, v)
		}
	} else if len(dataIDs) > 0 {
		vals := make([]interface{}, 0, len(dataIDs))
		for _, id := range dataIDs {
			v, _, err := buildMixedText(arena.Elem(id))
			if err != nil {
				return err
			}
			vals = append(vals, v)
		}
		inner := newJSONObject()
		if len(vals) == 1 {
			inner.set("#text", vals[0])
		} else {
			inner.set("#text", vals)
		}
		key := "Data"
		if k := counts["Data"]; k > 0 {
			key = "Data_" + strconv.Itoa(k)
		}
		counts["Data"]++
		obj.set(key, inner)
	}

	for _, c := range other {
		if err := addChildToObject(arena, c.Element, obj, opts, counts); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v interface{}, indent bool, depth int) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		buf.WriteByte('"')
		buf.Write(AppendEscapedJSONString(nil, t))
		buf.WriteByte('"')
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case []interface{}:
		writeJSONArray(buf, t, indent, depth)
	case *jsonObject:
		writeJSONObject(buf, t, indent, depth)
	default:
		buf.WriteString("null")
	}
}

func writeJSONIndent(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func writeJSONObject(buf *bytes.Buffer, obj *jsonObject, indent bool, depth int) {
	buf.WriteByte('{')
	for i, k := range obj.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent {
			writeJSONIndent(buf, depth+1)
		}
		buf.WriteByte('"')
		buf.Write(AppendEscapedJSONString(nil, k))
		buf.WriteString(`":`)
		if indent {
			buf.WriteByte(' ')
		}
		writeJSONValue(buf, obj.values[k], indent, depth+1)
	}
	if indent && len(obj.keys) > 0 {
		writeJSONIndent(buf, depth)
	}
	buf.WriteByte('}')
}

func writeJSONArray(buf *bytes.Buffer, arr []interface{}, indent bool, depth int) {
	buf.WriteByte('[')
	for i, v := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent {
			writeJSONIndent(buf, depth+1)
		}
		writeJSONValue(buf, v, indent, depth+1)
	}
	if indent && len(arr) > 0 {
		writeJSONIndent(buf, depth)
	}
	buf.WriteByte(']')
}
