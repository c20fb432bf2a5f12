// Package nav implements the navigation/UI model layered on top of the
// view: focus tracking, peer/child navigation, filtering, and the two-layer
// (root/sub) render the UI reads.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package nav

import (
	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/view"
)

// Focus names a selected item and its index among its current peers.
type Focus struct {
	Item  cmn.ID
	Index int
}

// ThemeMode is an opaque UI preference the core persists and hands back.
type ThemeMode string

const (
	ThemeLight ThemeMode = "Light"
	ThemeDark  ThemeMode = "Dark"
)

// Nav is the UI-facing state layered over a View.
type Nav struct {
	Focused      *Focus
	LastSelected map[cmn.ID]Focus
	Matches      map[cmn.Hash]struct{} // nil: no filter active
	FilterText   string
	ContentType  string

	base    *view.View // the unfiltered view, kept so SetFilter can re-derive
	current *view.View // base.Filter(Matches), or base when Matches is nil

	ThemeMode ThemeMode
	IsVisible bool
}

// New returns an empty Nav over base.
func New(base *view.View) *Nav {
	return &Nav{
		LastSelected: make(map[cmn.ID]Focus),
		base:         base,
		current:      base,
		ThemeMode:    ThemeLight,
		IsVisible:    true,
	}
}

// SyncView replaces the underlying (unfiltered) view, called after every
// engine commit and after undo, re-deriving the filtered view if a filter
// is active, and re-homing focus onto the nearest surviving position.
func (n *Nav) SyncView(base *view.View) {
	n.base = base
	if n.Matches != nil {
		n.current = base.Filter(n.Matches)
	} else {
		n.current = base
	}
	n.reconcileFocus()
}

// View returns the current (possibly filtered) view.
func (n *Nav) View() *view.View { return n.current }

func (n *Nav) item(id cmn.ID) (view.Item, bool) {
	it, ok := n.current.Items[id]
	return it, ok
}

// Peers returns the current peer list: a stack's children if the focused
// item is a child, otherwise the root stacks.
func (n *Nav) Peers() []view.Item {
	if n.Focused != nil {
		if it, ok := n.item(n.Focused.Item); ok && !it.IsStack() {
			if parent, ok := n.item(*it.StackID); ok {
				return n.current.Children(parent)
			}
		}
	}
	return n.current.Root()
}

func peerIndex(peers []view.Item, id cmn.ID) int {
	for i, it := range peers {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Select sets the focus, recording last_selected for right-arrow memory
// when the new focus is a child.
func (n *Nav) Select(f *Focus) {
	n.Focused = f
	if f == nil {
		return
	}
	if it, ok := n.item(f.Item); ok && !it.IsStack() {
		n.LastSelected[*it.StackID] = *f
	}
}

// selectFirst focuses the very first position: the first root's first
// effective child if any, else the first root.
func (n *Nav) selectFirst() {
	roots := n.current.Root()
	if len(roots) == 0 {
		n.Focused = nil
		return
	}
	children := n.current.Children(roots[0])
	if len(children) > 0 {
		n.Select(&Focus{Item: children[0].ID, Index: 0})
		return
	}
	n.Select(&Focus{Item: roots[0].ID, Index: 0})
}

func (n *Nav) SelectUp() { n.move(-1) }

func (n *Nav) SelectDown() { n.move(1) }

func (n *Nav) move(delta int) {
	if n.Focused == nil {
		n.selectFirst()
		return
	}
	peers := n.Peers()
	idx := peerIndex(peers, n.Focused.Item)
	if idx < 0 {
		n.selectFirst()
		return
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(peers) {
		idx = len(peers) - 1
	}
	n.Select(&Focus{Item: peers[idx].ID, Index: idx})
}

// SelectLeft moves from a child to its parent stack.
func (n *Nav) SelectLeft() {
	if n.Focused == nil {
		return
	}
	it, ok := n.item(n.Focused.Item)
	if !ok || it.IsStack() {
		return
	}
	roots := n.current.Root()
	idx := peerIndex(roots, *it.StackID)
	if idx < 0 {
		return
	}
	n.Select(&Focus{Item: *it.StackID, Index: idx})
}

// SelectRight moves from a stack to its remembered child, or its first
// effective child; a no-op when the stack has no children.
func (n *Nav) SelectRight() {
	if n.Focused == nil {
		return
	}
	it, ok := n.item(n.Focused.Item)
	if !ok || !it.IsStack() {
		return
	}
	children := n.current.Children(it)
	if len(children) == 0 {
		return
	}
	if remembered, ok := n.LastSelected[it.ID]; ok {
		if idx := peerIndex(children, remembered.Item); idx >= 0 {
			n.Select(&Focus{Item: remembered.Item, Index: idx})
			return
		}
	}
	n.Select(&Focus{Item: children[0].ID, Index: 0})
}

// SelectUpStack / SelectDownStack move focus between stacks, carrying the
// remembered child focus if any; when already on a root, behaves like a
// plain up/down.
func (n *Nav) SelectUpStack()   { n.moveStack(-1) }
func (n *Nav) SelectDownStack() { n.moveStack(1) }

func (n *Nav) moveStack(delta int) {
	roots := n.current.Root()
	if len(roots) == 0 {
		return
	}
	if n.Focused != nil {
		if it, ok := n.item(n.Focused.Item); ok && it.IsStack() {
			n.move(delta)
			return
		}
	}
	var curStack cmn.ID
	haveCur := false
	if n.Focused != nil {
		if it, ok := n.item(n.Focused.Item); ok {
			if it.IsStack() {
				curStack, haveCur = it.ID, true
			} else {
				curStack, haveCur = *it.StackID, true
			}
		}
	}
	idx := 0
	if haveCur {
		if i := peerIndex(roots, curStack); i >= 0 {
			idx = i + delta
		}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(roots) {
		idx = len(roots) - 1
	}
	target := roots[idx]

	if remembered, ok := n.LastSelected[target.ID]; ok {
		children := n.current.Children(target)
		if ci := peerIndex(children, remembered.Item); ci >= 0 {
			n.Select(&Focus{Item: remembered.Item, Index: ci})
			return
		}
	}
	n.Select(&Focus{Item: target.ID, Index: idx})
}

// reconcileFocus re-homes focus onto the nearest surviving position after
// the underlying view changes (a filter, an undo, a delete elsewhere).
func (n *Nav) reconcileFocus() {
	if n.Focused == nil {
		return
	}
	if _, ok := n.item(n.Focused.Item); ok {
		return
	}
	peers := n.Peers()
	if len(peers) == 0 {
		n.Focused = nil
		return
	}
	idx := n.Focused.Index
	if idx >= len(peers) {
		idx = len(peers) - 1
	}
	if idx < 0 {
		idx = 0
	}
	n.Select(&Focus{Item: peers[idx].ID, Index: idx})
}
