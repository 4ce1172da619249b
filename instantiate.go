// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

// InstantiateTemplate clones def's IR tree into targetArena, resolving
// every NodePlaceholder against subs. The clone is a fresh,
// independent subtree: the template definition's own arena is never
// mutated, so the same TemplateIR can be instantiated any number of times
// concurrently.
func InstantiateTemplate(def *TemplateIR, subs []Value, targetArena *Arena, chunk *ChunkContext) (ElementID, error) {
	inst := &instantiator{src: def.Tree.Arena, dst: targetArena, subs: subs, chunk: chunk}
	return inst.cloneElement(def.Tree.RootElement)
}

type instantiator struct {
	src   *Arena
	dst   *Arena
	subs  []Value
	chunk *ChunkContext
}

func (in *instantiator) cloneElement(srcID ElementID) (ElementID, error) {
	srcEl := in.src.Elem(srcID)
	dstID := in.dst.NewElement(srcEl.Name)

	for _, a := range srcEl.Attrs {
		idx := in.dst.AddAttr(dstID, a.Name)
		for _, n := range a.ValueNodes {
			resolved, skip, err := in.resolveNode(n, false)
			if err != nil {
				return noElement, err
			}
			if skip {
				continue
			}
			for _, rn := range resolved {
				if err := in.dst.AddAttrValue(dstID, idx, rn); err != nil {
					return noElement, err
				}
			}
		}
	}

	for _, n := range srcEl.Children {
		if n.Kind == NodeElement {
			childID, err := in.cloneElement(n.Element)
			if err != nil {
				return noElement, err
			}
			in.dst.AddChild(dstID, Node{Kind: NodeElement, Element: childID})
			continue
		}
		resolved, skip, err := in.resolveNode(n, true)
		if err != nil {
			return noElement, err
		}
		if skip {
			continue
		}
		for _, rn := range resolved {
			in.dst.AddChild(dstID, rn)
		}
	}

	return dstID, nil
}

// resolveNode clones a non-element node, resolving a NodePlaceholder
// against in.subs. It returns skip=true when the placeholder's id is past
// the end of in.subs or an optional substitution resolved to null. Every
// other case returns exactly one node: a nested BinXml payload in element
// position becomes one NodeElement, and scalar/array substitutions one
// NodeValue (array expansion happens afterward, over the element, in
// ExpandArrays).
func (in *instantiator) resolveNode(n Node, elementPosition bool) ([]Node, bool, error) {
	if n.Kind != NodePlaceholder {
		return []Node{n}, false, nil
	}

	if int(n.PlaceholderID) >= len(in.subs) {
		return nil, true, nil
	}
	v := in.subs[n.PlaceholderID]

	if n.Optional && v.IsNull() {
		return nil, true, nil
	}

	if elementPosition && v.Kind == BinXmlType {
		tree, err := Decode(NewCursor(v.BinXmlPayload), in.chunk, ModeRecord)
		if err != nil {
			return nil, false, err
		}
		grafted := in.graftForeignTree(tree)
		return []Node{{Kind: NodeElement, Element: grafted}}, false, nil
	}

	return []Node{{Kind: NodeValue, Value: v}}, false, nil
}

// graftForeignTree copies a tree built in a different arena (the decoded
// nested-BinXml payload) into in.dst, returning the new root id.
func (in *instantiator) graftForeignTree(tree *IrTree) ElementID {
	saved := in.src
	in.src = tree.Arena
	id, err := in.cloneElement(tree.RootElement)
	in.src = saved
	if err != nil {
		// The payload was already fully decoded by Decode above, so a clone
		// error here would only come from a malformed arena, which cannot
		// happen for a tree this package itself just built.
		panic(err)
	}
	return id
}
