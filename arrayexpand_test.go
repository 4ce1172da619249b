// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandArraysSingleChild(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	data := arena.NewElement("Data")
	arr := Value{Kind: UInt32ArrayType, Array: []Value{
		{Kind: UInt32Type, U64: 1},
		{Kind: UInt32Type, U64: 2},
		{Kind: UInt32Type, U64: 3},
	}}
	arena.AddChild(data, Node{Kind: NodeValue, Value: arr})
	arena.AddChild(root, Node{Kind: NodeElement, Element: data})

	require.NoError(t, ExpandArrays(arena, root))

	rootEl := arena.Elem(root)
	require.Len(t, rootEl.Children, 3)
	for i, c := range rootEl.Children {
		require.Equal(t, NodeElement, c.Kind)
		clone := arena.Elem(c.Element)
		assert.Equal(t, "Data", clone.Name)
		require.Len(t, clone.Children, 1)
		assert.Equal(t, uint64(i+1), clone.Children[0].Value.U64)
	}
}

func TestExpandArraysLenOneNoExpand(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	data := arena.NewElement("Data")
	arr := Value{Kind: UInt32ArrayType, Array: []Value{{Kind: UInt32Type, U64: 42}}}
	arena.AddChild(data, Node{Kind: NodeValue, Value: arr})
	arena.AddChild(root, Node{Kind: NodeElement, Element: data})

	require.NoError(t, ExpandArrays(arena, root))

	rootEl := arena.Elem(root)
	require.Len(t, rootEl.Children, 1)
}

func TestExpandArraysCartesianProduct(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	data := arena.NewElement("Data")
	a1 := Value{Kind: UInt32ArrayType, Array: []Value{{Kind: UInt32Type, U64: 1}, {Kind: UInt32Type, U64: 2}}}
	a2 := Value{Kind: UInt32ArrayType, Array: []Value{{Kind: UInt32Type, U64: 10}, {Kind: UInt32Type, U64: 20}}}
	arena.AddChild(data, Node{Kind: NodeValue, Value: a1})
	arena.AddChild(data, Node{Kind: NodeValue, Value: a2})
	arena.AddChild(root, Node{Kind: NodeElement, Element: data})

	require.NoError(t, ExpandArrays(arena, root))

	rootEl := arena.Elem(root)
	require.Len(t, rootEl.Children, 4)

	var combos [][2]uint64
	for _, c := range rootEl.Children {
		clone := arena.Elem(c.Element)
		require.Len(t, clone.Children, 2)
		combos = append(combos, [2]uint64{clone.Children[0].Value.U64, clone.Children[1].Value.U64})
	}
	assert.Contains(t, combos, [2]uint64{1, 10})
	assert.Contains(t, combos, [2]uint64{1, 20})
	assert.Contains(t, combos, [2]uint64{2, 10})
	assert.Contains(t, combos, [2]uint64{2, 20})
}

func TestExpandArraysStringArrayBecomesTextAndDropsEmpty(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	data := arena.NewElement("Data")
	arr := Value{Kind: StringArrayType, Array: []Value{
		{Kind: StringType, Str: "a"},
		{Kind: StringType}, // empty, must be dropped
		{Kind: StringType, Str: "c"},
	}}
	arena.AddChild(data, Node{Kind: NodeValue, Value: arr})
	arena.AddChild(root, Node{Kind: NodeElement, Element: data})

	require.NoError(t, ExpandArrays(arena, root))

	rootEl := arena.Elem(root)
	require.Len(t, rootEl.Children, 3)

	clone0 := arena.Elem(rootEl.Children[0].Element)
	require.Len(t, clone0.Children, 1)
	assert.Equal(t, NodeText, clone0.Children[0].Kind)
	assert.Equal(t, "a", clone0.Children[0].Text)

	clone1 := arena.Elem(rootEl.Children[1].Element)
	assert.Empty(t, clone1.Children)

	clone2 := arena.Elem(rootEl.Children[2].Element)
	require.Len(t, clone2.Children, 1)
	assert.Equal(t, "c", clone2.Children[0].Text)
}

func TestExpandArraysAttributeValueExpanded(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	data := arena.NewElement("Data")
	idx := arena.AddAttr(data, "Name")
	arr := Value{Kind: UInt32ArrayType, Array: []Value{
		{Kind: UInt32Type, U64: 1},
		{Kind: UInt32Type, U64: 2},
	}}
	arena.AddAttrValue(data, idx, Node{Kind: NodeValue, Value: arr})
	arena.AddChild(root, Node{Kind: NodeElement, Element: data})

	require.NoError(t, ExpandArrays(arena, root))

	rootEl := arena.Elem(root)
	require.Len(t, rootEl.Children, 2)

	var vals []uint64
	for _, c := range rootEl.Children {
		clone := arena.Elem(c.Element)
		require.Len(t, clone.Attrs, 1)
		require.Len(t, clone.Attrs[0].ValueNodes, 1)
		vals = append(vals, clone.Attrs[0].ValueNodes[0].Value.U64)
	}
	assert.ElementsMatch(t, []uint64{1, 2}, vals)
}

func TestExpandArraysNested(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	mid := arena.NewElement("Mid")
	data := arena.NewElement("Data")
	arr := Value{Kind: UInt32ArrayType, Array: []Value{{Kind: UInt32Type, U64: 7}, {Kind: UInt32Type, U64: 8}}}
	arena.AddChild(data, Node{Kind: NodeValue, Value: arr})
	arena.AddChild(mid, Node{Kind: NodeElement, Element: data})
	arena.AddChild(root, Node{Kind: NodeElement, Element: mid})

	require.NoError(t, ExpandArrays(arena, root))

	midEl := arena.Elem(root)
	require.Len(t, midEl.Children, 1)
	midClone := arena.Elem(midEl.Children[0].Element)
	require.Len(t, midClone.Children, 2)
}
