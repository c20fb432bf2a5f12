package view

import (
	"sort"

	"github.com/cablehead/stacks/cmn"
)

// View is the full in-memory projection: every live item plus, at most, one
// pending undo target (invariant: undo holds at most one entry, the most
// recently deleted item).
type View struct {
	Items map[cmn.ID]Item
	Undo  *Item
}

// New returns an empty view, the starting point every replay folds onto.
func New() *View {
	return &View{Items: make(map[cmn.ID]Item)}
}

// Clone deep-copies v, used by engine.Snapshot and by tests that want to
// mutate a scratch copy.
func (v *View) Clone() *View {
	out := &View{Items: make(map[cmn.ID]Item, len(v.Items))}
	for id, it := range v.Items {
		c := it.clone()
		c.Children = append([]cmn.ID(nil), it.Children...)
		out.Items[id] = c
	}
	if v.Undo != nil {
		u := v.Undo.clone()
		u.Children = append([]cmn.ID(nil), v.Undo.Children...)
		out.Undo = &u
	}
	return out
}

// Root returns the stacks (items with no parent), sorted by LastTouched
// descending, the most recently active stack first.
func (v *View) Root() []Item {
	var roots []Item
	for _, it := range v.Items {
		if it.IsStack() {
			roots = append(roots, it)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		return roots[j].LastTouched.Less(roots[i].LastTouched)
	})
	return roots
}

// Children returns item's effective child order: the stored Children list
// verbatim when Ordered, else Children sorted by each child's LastTouched
// descending (invariant 7).
func (v *View) Children(item Item) []Item {
	out := make([]Item, 0, len(item.Children))
	for _, id := range item.Children {
		if c, ok := v.Items[id]; ok {
			out = append(out, c)
		}
	}
	if item.Ordered {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].LastTouched.Less(out[i].LastTouched)
	})
	return out
}

// Filter produces a derived view keeping a child iff its hash is in hashes,
// and a stack iff at least one filtered child survives. Stacks that survive
// keep only the surviving entries in Children, preserving relative order.
// Filter is idempotent (filtering a filtered view with the same set is a
// no-op) because it only ever removes items, never re-adds them.
func (v *View) Filter(hashes map[cmn.Hash]struct{}) *View {
	out := New()
	out.Undo = v.Undo

	keepChild := make(map[cmn.ID]bool)
	for id, it := range v.Items {
		if it.IsStack() {
			continue
		}
		if _, ok := hashes[it.Hash]; ok {
			keepChild[id] = true
		}
	}

	for id, it := range v.Items {
		if !it.IsStack() {
			if keepChild[id] {
				out.Items[id] = it
			}
			continue
		}
		var kept []cmn.ID
		for _, cid := range it.Children {
			if keepChild[cid] {
				kept = append(kept, cid)
			}
		}
		if len(kept) == 0 {
			continue
		}
		stack := it
		stack.Children = kept
		out.Items[id] = stack
	}
	return out
}
