// Package view implements the deterministic fold from the packet stream to
// the in-memory {items, undo} projection: rebuildable derived state, never
// the source of truth, discarded and rebuilt on desync.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package view

import (
	"github.com/cablehead/stacks/cmn"
)

// Item is a projected, in-memory entity: either a stack (StackID == nil) or
// a child of one (StackID != nil). Stacks never nest (invariant 1).
type Item struct {
	ID          cmn.ID
	LastTouched cmn.ID
	Touched     []cmn.ID
	Hash        cmn.Hash
	StackID     *cmn.ID
	Children    []cmn.ID
	Ephemeral   bool
	Ordered     bool
	Locked      bool
	CrossStream bool
}

// IsStack reports whether the item is a root (no parent).
func (it *Item) IsStack() bool { return it.StackID == nil }

// touch appends id to Touched and advances LastTouched. LastTouched is
// monotonic per item (invariant 6): callers are expected to only ever touch
// with a strictly greater id, since packet ids are themselves monotonic.
func (it *Item) touch(id cmn.ID) {
	it.Touched = append(it.Touched, id)
	it.LastTouched = id
}

// clone returns a deep-enough copy for Fork: a fresh item sharing no slice
// backing array with the source.
func (it *Item) clone() Item {
	c := *it
	c.Touched = append([]cmn.ID(nil), it.Touched...)
	c.Children = nil // a fork never inherits children
	if it.StackID != nil {
		id := *it.StackID
		c.StackID = &id
	}
	return c
}
