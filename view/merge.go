package view

import (
	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/packetlog"
)

// Merge folds a single packet into v, mutating it in place. This is the
// engine's core algorithm: the entire view is nothing but repeated calls to
// Merge starting from an empty View (see New), in packet-id order.
func (v *View) Merge(p packetlog.Packet) {
	switch p.Type {
	case packetlog.Add:
		v.mergeAdd(p)
	case packetlog.Update:
		v.mergeUpdate(p)
	case packetlog.Fork:
		v.mergeFork(p)
	case packetlog.Delete:
		v.mergeDelete(p)
	}
}

func (v *View) mergeAdd(p packetlog.Packet) {
	var hash cmn.Hash
	if p.Hash != nil {
		hash = *p.Hash
	}

	if p.StackID != nil {
		if stack, ok := v.Items[*p.StackID]; ok {
			// Defensive: an ephemeral placeholder sharing this packet's id
			// may still be present from a prior partial replay; drop it
			// before the dedup scan or create below.
			stack.Children = removeID(stack.Children, p.ID)
			v.Items[*p.StackID] = stack
		}
	}

	if !p.Ephemeral {
		if dup, ok := v.findNonEphemeralDup(p.StackID, hash); ok {
			dup.touch(p.ID)
			v.Items[dup.ID] = *dup
			v.bumpStack(p.StackID, p.ID)
			return
		}
	}

	it := Item{
		ID:        p.ID,
		Hash:      hash,
		StackID:   p.StackID,
		Ephemeral: p.Ephemeral,
	}
	it.touch(p.ID)
	if p.LockStatus != nil {
		it.Locked = *p.LockStatus == packetlog.Locked
	}
	v.Items[it.ID] = it

	if p.StackID != nil {
		if stack, ok := v.Items[*p.StackID]; ok {
			stack.Children = append(stack.Children, it.ID)
			v.Items[*p.StackID] = stack
			v.bumpStack(p.StackID, p.ID)
		}
	}
}

// findNonEphemeralDup scans stackID's children (or, for a root Add, nothing:
// dedup only applies within a stack) for a non-ephemeral item whose hash
// matches. Dedup scans only non-ephemeral siblings (design note): streamed
// items are still in flight and must not suppress a genuine duplicate add.
func (v *View) findNonEphemeralDup(stackID *cmn.ID, hash cmn.Hash) (*Item, bool) {
	if stackID == nil {
		return nil, false
	}
	stack, ok := v.Items[*stackID]
	if !ok {
		return nil, false
	}
	for _, cid := range stack.Children {
		c, ok := v.Items[cid]
		if !ok || c.Ephemeral {
			continue
		}
		if c.Hash == hash {
			item := c
			return &item, true
		}
	}
	return nil, false
}

// bumpStack advances stackID's LastTouched to packetID, if stackID resolves
// and packetID is actually newer (monotonicity, invariant 6).
func (v *View) bumpStack(stackID *cmn.ID, packetID cmn.ID) {
	if stackID == nil {
		return
	}
	stack, ok := v.Items[*stackID]
	if !ok {
		return
	}
	if stack.LastTouched.Less(packetID) {
		stack.LastTouched = packetID
		v.Items[*stackID] = stack
	}
}

func (v *View) mergeUpdate(p packetlog.Packet) {
	switch {
	case p.CrossStream:
		v.mergeCrossStream(p)
	case p.Movement != nil:
		v.mergeMovement(p)
	case p.SortOrder != nil:
		v.mergeSortOrder(p)
	case p.LockStatus != nil:
		v.mergeLockStatus(p)
	default:
		v.mergePlainUpdate(p)
	}
}

// mergeCrossStream clears cross_stream everywhere, then sets it on the
// target unless the target was already the flagged one (toggle-off), per
// the design note: clear first, conditionally re-set only when different.
func (v *View) mergeCrossStream(p packetlog.Packet) {
	if p.StackID == nil {
		return
	}
	var wasFlagged bool
	for id, it := range v.Items {
		if it.CrossStream {
			if id == *p.StackID {
				wasFlagged = true
			}
			it.CrossStream = false
			v.Items[id] = it
		}
	}
	if wasFlagged {
		return
	}
	if target, ok := v.Items[*p.StackID]; ok {
		target.CrossStream = true
		v.Items[*p.StackID] = target
	}
}

func (v *View) mergeMovement(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	target, ok := v.Items[*p.SourceID]
	if !ok || target.StackID == nil {
		return
	}
	stackID := *target.StackID
	stack, ok := v.Items[stackID]
	if !ok {
		return
	}

	if !stack.Ordered {
		// Manual-sort snapshotting: freeze the current effective (time-desc)
		// order into Children before the first manual move, or the move
		// would appear to jump relative to what's on screen.
		effective := v.Children(stack)
		ids := make([]cmn.ID, len(effective))
		for i, it := range effective {
			ids[i] = it.ID
		}
		stack.Children = ids
	}

	idx := indexOf(stack.Children, *p.SourceID)
	if idx < 0 {
		return
	}
	var swapWith int
	if *p.Movement == packetlog.Up {
		swapWith = idx - 1
	} else {
		swapWith = idx + 1
	}
	if swapWith >= 0 && swapWith < len(stack.Children) {
		stack.Children[idx], stack.Children[swapWith] = stack.Children[swapWith], stack.Children[idx]
	}
	stack.Ordered = true
	v.Items[stackID] = stack
}

func (v *View) mergeSortOrder(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	target, ok := v.Items[*p.SourceID]
	if !ok {
		return
	}
	target.Ordered = *p.SortOrder == packetlog.Manual
	v.Items[*p.SourceID] = target
}

func (v *View) mergeLockStatus(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	target, ok := v.Items[*p.SourceID]
	if !ok {
		return
	}
	target.Locked = *p.LockStatus == packetlog.Locked
	v.Items[*p.SourceID] = target
}

func (v *View) mergePlainUpdate(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	target, ok := v.Items[*p.SourceID]
	if !ok {
		return
	}

	if p.Hash != nil {
		target.Hash = *p.Hash
	}

	if p.StackID != nil && (target.StackID == nil || *target.StackID != *p.StackID) {
		if target.StackID != nil {
			if old, ok := v.Items[*target.StackID]; ok {
				old.Children = removeID(old.Children, target.ID)
				v.Items[*target.StackID] = old
			}
		}
		newParent := *p.StackID
		target.StackID = &newParent
		if np, ok := v.Items[newParent]; ok {
			np.Children = append(np.Children, target.ID)
			v.Items[newParent] = np
		}
	}

	target.touch(p.ID)
	v.Items[target.ID] = target

	// Bare update_touch or a plain content update still has to advance the
	// parent stack's recency, or auto-sort ordering diverges from what the
	// user just did (open question in the engine's merge design, resolved:
	// always bump when applicable).
	v.bumpStack(target.StackID, p.ID)
}

func (v *View) mergeFork(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	source, ok := v.Items[*p.SourceID]
	if !ok {
		return
	}
	if source.IsStack() {
		panic("view: forking a root stack is not supported")
	}

	clone := source.clone()
	clone.ID = p.ID
	clone.Touched = nil
	if p.Hash != nil {
		clone.Hash = *p.Hash
	}
	if p.StackID != nil {
		stackID := *p.StackID
		clone.StackID = &stackID
	}
	clone.touch(p.ID)
	v.Items[clone.ID] = clone

	if clone.StackID != nil {
		if parent, ok := v.Items[*clone.StackID]; ok {
			parent.Children = append(parent.Children, clone.ID)
			v.Items[*clone.StackID] = parent
			v.bumpStack(clone.StackID, p.ID)
		}
	}
}

func (v *View) mergeDelete(p packetlog.Packet) {
	if p.SourceID == nil {
		return
	}
	target, ok := v.Items[*p.SourceID]
	if !ok {
		// Delete of an already-absent id: the packet is still appended (by
		// the caller) but merge is a no-op here, per the error-handling
		// design.
		return
	}
	delete(v.Items, target.ID)

	if target.StackID != nil {
		if parent, ok := v.Items[*target.StackID]; ok {
			parent.Children = removeID(parent.Children, target.ID)
			parent.LastTouched = p.ID
			v.Items[*target.StackID] = parent
		}
	}

	target.LastTouched = p.ID
	v.Undo = &target
}

func removeID(ids []cmn.ID, remove cmn.ID) []cmn.ID {
	out := ids[:0]
	for _, id := range ids {
		if id != remove {
			out = append(out, id)
		}
	}
	return out
}

func indexOf(ids []cmn.ID, id cmn.ID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
