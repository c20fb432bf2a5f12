package view_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/view"
)

func TestItemIsStack(t *testing.T) {
	stack := view.Item{ID: cmn.NewID()}
	require.True(t, stack.IsStack())

	parent := cmn.NewID()
	child := view.Item{ID: cmn.NewID(), StackID: &parent}
	require.False(t, child.IsStack())
}

func TestCloneDoesNotShareBackingArrays(t *testing.T) {
	v := view.New()
	stack := addStack(v, "s")
	child := addChild(v, stack, "item")

	clone := v.Clone()

	// Mutating the clone's slices must not affect the original.
	cloneStack := clone.Items[stack]
	cloneStack.Children = append(cloneStack.Children, cmn.NewID())
	clone.Items[stack] = cloneStack

	require.Len(t, v.Items[stack].Children, 1)
	require.Len(t, clone.Items[stack].Children, 2)
	require.Equal(t, child, v.Items[stack].Children[0])
}

func TestCloneCopiesUndo(t *testing.T) {
	v := view.New()
	stack := addStack(v, "s")
	child := addChild(v, stack, "item")
	v.Merge(packetlog.NewDelete(cmn.NewID(), child))

	clone := v.Clone()
	require.NotNil(t, clone.Undo)
	require.Equal(t, child, clone.Undo.ID)

	// The clone's Undo must be an independent copy.
	clone.Undo.Locked = true
	require.False(t, v.Undo.Locked)
}
