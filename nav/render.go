package nav

import "github.com/cablehead/stacks/cmn"

// Layer is one rendered column: the items in it, which one (if any) is
// selected, and whether keyboard focus currently lives in this layer.
type Layer struct {
	Items    []cmn.ID
	Selected *cmn.ID
	IsFocus  bool
}

// Render is the two-layer (root stacks / selected stack's children) plus
// undo shape the UI reads every frame.
type Render struct {
	Root *Layer
	Sub  *Layer
	Undo *cmn.ID
}

// Render projects the current Nav state into the UI-facing two-layer shape.
func (n *Nav) Render() Render {
	roots := n.current.Root()
	root := &Layer{}
	for _, it := range roots {
		root.Items = append(root.Items, it.ID)
	}

	var selectedStack *cmn.ID
	focusOnRoot := false

	if n.Focused != nil {
		if it, ok := n.item(n.Focused.Item); ok {
			if it.IsStack() {
				id := it.ID
				selectedStack = &id
				root.Selected = &id
				focusOnRoot = true
			} else {
				id := *it.StackID
				selectedStack = &id
				root.Selected = &id
			}
		}
	} else if len(roots) > 0 {
		id := roots[0].ID
		selectedStack = &id
		root.Selected = &id
	}
	root.IsFocus = focusOnRoot

	sub := &Layer{IsFocus: !focusOnRoot && n.Focused != nil}
	if selectedStack != nil {
		if stack, ok := n.item(*selectedStack); ok {
			for _, c := range n.current.Children(stack) {
				sub.Items = append(sub.Items, c.ID)
			}
		}
	}
	if n.Focused != nil && !focusOnRoot {
		id := n.Focused.Item
		sub.Selected = &id
	}

	var undo *cmn.ID
	if n.current.Undo != nil {
		id := n.current.Undo.ID
		undo = &id
	}

	return Render{Root: root, Sub: sub, Undo: undo}
}
