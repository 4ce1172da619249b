// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

// ExpandArrays rewrites every element under id whose direct children or
// attribute values include an array-typed substitution value (length > 1) into N sibling
// clones, one per combination of array items. It mutates the arena in place and
// must run once, after instantiation, before the tree is rendered or
// walked by a renderer.
func ExpandArrays(arena *Arena, id ElementID) error {
	el := arena.Elem(id)
	newChildren := make([]Node, 0, len(el.Children))
	for _, child := range el.Children {
		if child.Kind != NodeElement {
			newChildren = append(newChildren, child)
			continue
		}
		if err := ExpandArrays(arena, child.Element); err != nil {
			return err
		}
		expanded := expandElementIfArray(arena, child.Element)
		for _, eid := range expanded {
			newChildren = append(newChildren, Node{Kind: NodeElement, Element: eid})
		}
	}
	el.Children = newChildren
	return nil
}

// arraySlot locates one expandable array-valued NodeValue, either a direct
// child of the element (attrIdx < 0) or a value node of one of its
// attributes (attrIdx is the index into Attrs).
type arraySlot struct {
	attrIdx int
	idx     int
	values  []Value
}

// expandElementIfArray returns the clones that should replace the single
// element id in its parent's child list: [id] unchanged if it carries no
// expandable array-valued child or attribute value, or one new element per
// entry in the Cartesian product of every array-valued slot otherwise.
func expandElementIfArray(arena *Arena, id ElementID) []ElementID {
	el := arena.Elem(id)

	var slots []arraySlot
	for i, c := range el.Children {
		if c.Kind != NodeValue {
			continue
		}
		if _, ok := ExpandableArrayLen(c.Value); ok {
			slots = append(slots, arraySlot{attrIdx: -1, idx: i, values: c.Value.Array})
		}
	}
	for ai, a := range el.Attrs {
		for i, vn := range a.ValueNodes {
			if vn.Kind != NodeValue {
				continue
			}
			if _, ok := ExpandableArrayLen(vn.Value); ok {
				slots = append(slots, arraySlot{attrIdx: ai, idx: i, values: vn.Value.Array})
			}
		}
	}
	if len(slots) == 0 {
		return []ElementID{id}
	}

	total := 1
	for _, s := range slots {
		total *= len(s.values)
	}

	out := make([]ElementID, 0, total)
	for k := 0; k < total; k++ {
		newID := arena.NewElement(el.Name)
		newEl := arena.Elem(newID)
		newEl.HasElementChild = el.HasElementChild

		newEl.Attrs = make([]Attr, len(el.Attrs))
		for ai, a := range el.Attrs {
			newEl.Attrs[ai] = Attr{Name: a.Name, ValueNodes: append([]Node(nil), a.ValueNodes...)}
		}
		newEl.Children = append([]Node(nil), el.Children...)

		rem := k
		for _, s := range slots {
			n := len(s.values)
			sel := rem % n
			rem /= n
			node, keep := arrayItemNode(s.values[sel])
			if s.attrIdx < 0 {
				if keep {
					newEl.Children[s.idx] = node
				} else {
					newEl.Children[s.idx] = Node{Kind: NodeText}
				}
			} else if keep {
				newEl.Attrs[s.attrIdx].ValueNodes[s.idx] = node
			} else {
				newEl.Attrs[s.attrIdx].ValueNodes[s.idx] = Node{Kind: NodeText}
			}
		}

		newEl.Children = dropEmptyTextChildren(newEl.Children)
		out = append(out, newID)
	}
	return out
}

// arrayItemNode converts one array entry's Value into the Node that
// replaces a NodeValue slot in a cloned element. A string entry becomes a
// NodeText node (so it renders as plain element/attribute text); an empty
// string entry reports keep=false so the caller can drop it entirely,
// rendering "<Name/>" rather than "<Name></Name>".
func arrayItemNode(v Value) (Node, bool) {
	switch v.Kind {
	case StringType:
		if v.Str != "" {
			return Node{Kind: NodeText, Text: v.Str}, true
		}
		if v.U16Str.CharCount > 0 {
			return Node{Kind: NodeText, U16Text: v.U16Str}, true
		}
		return Node{}, false
	case AnsiStringType:
		if v.Str == "" {
			return Node{}, false
		}
		return Node{Kind: NodeText, Text: v.Str}, true
	default:
		return Node{Kind: NodeValue, Value: v}, true
	}
}

// dropEmptyTextChildren removes the zero-value NodeText placeholders
// arrayItemNode reports as not-kept, leaving every other child untouched.
func dropEmptyTextChildren(children []Node) []Node {
	out := children[:0]
	for _, c := range children {
		if c.Kind == NodeText && c.Text == "" && c.U16Text.CharCount == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}
