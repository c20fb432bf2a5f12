package nav_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/nav"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/view"
)

func hash(s string) cmn.Hash { return cmn.HashBytes([]byte(s)) }

func addStack(v *view.View, name string) cmn.ID {
	id := cmn.NewID()
	v.Merge(packetlog.NewAddStack(id, hash(name), packetlog.Unlocked))
	return id
}

func addChild(v *view.View, stack cmn.ID, content string) cmn.ID {
	id := cmn.NewID()
	v.Merge(packetlog.NewAdd(id, hash(content), &stack, false))
	return id
}

// two stacks (a, b), each with two children, built in a deterministic order
// so recency-descending order is: stackB, stackA as roots, and within each
// stack the second child added is the most recent.
func twoStackFixture() (*view.View, cmn.ID, cmn.ID, []cmn.ID, []cmn.ID) {
	v := view.New()
	stackA := addStack(v, "a")
	a1 := addChild(v, stackA, "a1")
	a2 := addChild(v, stackA, "a2")
	stackB := addStack(v, "b")
	b1 := addChild(v, stackB, "b1")
	b2 := addChild(v, stackB, "b2")
	return v, stackA, stackB, []cmn.ID{a2, a1}, []cmn.ID{b2, b1}
}

func TestSelectDownThenUpWithinStack(t *testing.T) {
	v, stackA, _, childrenA, _ := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[0]})

	n.SelectDown()
	require.Equal(t, childrenA[1], n.Focused.Item)

	n.SelectUp()
	require.Equal(t, childrenA[0], n.Focused.Item)
	require.Equal(t, childrenA[0], n.LastSelected[stackA].Item)
}

func TestSelectDownClampsAtLastPeer(t *testing.T) {
	v, _, _, childrenA, _ := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[len(childrenA)-1]})
	n.SelectDown()
	require.Equal(t, childrenA[len(childrenA)-1], n.Focused.Item, "moving past the last peer must clamp, not wrap")
}

func TestSelectLeftMovesToParentStack(t *testing.T) {
	v, stackA, _, childrenA, _ := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[0]})
	n.SelectLeft()
	require.Equal(t, stackA, n.Focused.Item)
}

func TestSelectRightRemembersLastChild(t *testing.T) {
	v, stackA, _, childrenA, _ := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[1]}) // remember childrenA[1]
	n.SelectLeft()
	require.Equal(t, stackA, n.Focused.Item)

	n.SelectRight()
	require.Equal(t, childrenA[1], n.Focused.Item, "SelectRight should recall the last-selected child, not always the first")
}

func TestSelectRightOnEmptyStackIsNoop(t *testing.T) {
	v := view.New()
	stack := addStack(v, "empty")
	n := nav.New(v)
	n.Select(&nav.Focus{Item: stack})
	n.SelectRight()
	require.Equal(t, stack, n.Focused.Item)
}

func TestSelectUpStackCarriesRememberedChild(t *testing.T) {
	v, stackA, stackB, childrenA, childrenB := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[1]})
	n.SelectLeft()
	require.Equal(t, stackA, n.Focused.Item)

	// roots in recency order are [stackB, stackA]; from a root, moving "up"
	// is a plain move: from stackA (index 1) it lands on stackB (index 0).
	n.SelectUpStack()
	require.Equal(t, stackB, n.Focused.Item)

	// from a child of stackB, moving "down" a stack carries focus onto
	// stackA's remembered child.
	n.SelectRight()
	require.Equal(t, childrenB[0], n.Focused.Item)
	n.SelectDownStack()
	require.Equal(t, childrenA[1], n.Focused.Item, "moving back onto stackA should recall its remembered child")
}

func TestReconcileFocusAfterDeleteRehomesToSurvivingPeer(t *testing.T) {
	v, _, _, childrenA, _ := twoStackFixture()
	n := nav.New(v)
	n.Select(&nav.Focus{Item: childrenA[0], Index: 0})

	v.Merge(packetlog.NewDelete(cmn.NewID(), childrenA[0]))
	n.SyncView(v)

	require.NotNil(t, n.Focused)
	require.NotEqual(t, childrenA[0], n.Focused.Item)
}

func TestReconcileFocusWithNoPeersClearsFocus(t *testing.T) {
	v := view.New()
	stack := addStack(v, "only stack")

	n := nav.New(v)
	n.Select(&nav.Focus{Item: stack, Index: 0})

	v.Merge(packetlog.NewDelete(cmn.NewID(), stack))
	n.SyncView(v)

	require.Nil(t, n.Focused, "deleting the only stack leaves no peers to re-home focus onto")
}
