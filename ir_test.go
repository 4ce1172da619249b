// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package evtx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAddChildMarksHasElementChild(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("Event")
	child := arena.NewElement("System")
	arena.AddChild(root, Node{Kind: NodeElement, Element: child})

	assert.True(t, arena.Elem(root).HasElementChild)
}

func TestArenaAddAttrValueRejectsElement(t *testing.T) {
	arena := NewArena(2)
	root := arena.NewElement("Event")
	child := arena.NewElement("Nested")
	idx := arena.AddAttr(root, "Name")

	err := arena.AddAttrValue(root, idx, Node{Kind: NodeElement, Element: child})
	assert.ErrorIs(t, err, ErrElementInAttributeValue)
}

func TestIrTreeWalkPreOrder(t *testing.T) {
	arena := NewArena(4)
	root := arena.NewElement("A")
	b := arena.NewElement("B")
	c := arena.NewElement("C")
	arena.AddChild(root, Node{Kind: NodeElement, Element: b})
	arena.AddChild(root, Node{Kind: NodeElement, Element: c})

	tree := &IrTree{Arena: arena, RootElement: root}
	var order []string
	tree.Walk(root, func(id ElementID) {
		order = append(order, arena.Elem(id).Name)
	})
	require.Equal(t, []string{"A", "B", "C"}, order)
}
