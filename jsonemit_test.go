// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addDataChild(arena *Arena, parent ElementID, name, value string, named bool) {
	data := arena.NewElement("Data")
	if named {
		idx := arena.AddAttr(data, "Name")
		arena.AddAttrValue(data, idx, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: name}})
	}
	arena.AddChild(data, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: value}})
	arena.AddChild(parent, Node{Kind: NodeElement, Element: data})
}

func TestRenderJSONNamedEventData(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	ed := arena.NewElement("EventData")
	addDataChild(arena, ed, "Foo", "bar", true)
	addDataChild(arena, ed, "Baz", "qux", true)
	arena.AddChild(root, Node{Kind: NodeElement, Element: ed})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":{"EventData":{"Foo":"bar","Baz":"qux"}}}`, out)
}

func TestRenderJSONPositionalEventData(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	ed := arena.NewElement("EventData")
	addDataChild(arena, ed, "", "one", false)
	addDataChild(arena, ed, "", "two", false)
	arena.AddChild(root, Node{Kind: NodeElement, Element: ed})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":{"EventData":{"Data":{"#text":["one","two"]}}}}`, out)
}

func TestRenderJSONPositionalEventDataSingleShortcut(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	ed := arena.NewElement("EventData")
	addDataChild(arena, ed, "", "only", false)
	arena.AddChild(root, Node{Kind: NodeElement, Element: ed})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":{"EventData":{"Data":{"#text":"only"}}}}`, out)
}

func TestRenderJSONDuplicateSiblingsSuffixed(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Root")
	for _, text := range []string{"a", "b", "c"} {
		h := arena.NewElement("Header")
		arena.AddChild(h, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: text}})
		arena.AddChild(root, Node{Kind: NodeElement, Element: h})
	}

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Root":{"Header":"a","Header_1":"b","Header_2":"c"}}`, out)
}

func TestRenderJSONScalarCollapse(t *testing.T) {
	arena := NewArena(2)
	root := arena.NewElement("Event")
	leaf := arena.NewElement("Count")
	arena.AddChild(leaf, Node{Kind: NodeValue, Value: Value{Kind: UInt32Type, U64: 5}})
	arena.AddChild(root, Node{Kind: NodeElement, Element: leaf})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":{"Count":5}}`, out)
}

func TestRenderJSONNoChildrenIsNull(t *testing.T) {
	arena := NewArena(1)
	root := arena.NewElement("Event")

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":null}`, out)
}

func TestRenderJSONAttributesNestedByDefault(t *testing.T) {
	arena := NewArena(1)
	root := arena.NewElement("Event")
	idx := arena.AddAttr(root, "Name")
	arena.AddAttrValue(root, idx, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: "x"}})
	arena.AddChild(root, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: "txt"}})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Event":{"#attributes":{"Name":"x"},"#text":"txt"}}`, out)
}

func TestRenderJSONAttributesPromotedWhenSeparate(t *testing.T) {
	arena := NewArena(2)
	root := arena.NewElement("Root")
	child := arena.NewElement("Event")
	idx := arena.AddAttr(child, "Name")
	arena.AddAttrValue(child, idx, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: "x"}})
	arena.AddChild(child, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: "txt"}})
	arena.AddChild(root, Node{Kind: NodeElement, Element: child})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{SeparateAttributes: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Root":{"Event":{"#text":"txt"},"Event_attributes":{"Name":"x"}}}`, out)
}

func TestRenderJSONEmptyAttributeOmittedAndScalarCollapses(t *testing.T) {
	arena := NewArena(2)
	root := arena.NewElement("X")
	idx := arena.AddAttr(root, "attr")
	arena.AddAttrValue(root, idx, Node{Kind: NodeValue, Value: Value{Kind: StringType, Str: ""}})
	arena.AddChild(root, Node{Kind: NodeValue, Value: Value{Kind: Int32Type, I64: 42}})

	out, err := RenderJSON(&IrTree{Arena: arena, RootElement: root}, JSONOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"X":42}`, out)
}
