package nav

import "github.com/cablehead/stacks/cmn"

// queryer is the subset of *store.Store SetFilter needs. Kept as an
// interface so nav never imports store directly (store already depends on
// cas/contentmeta/ftsindex/packetlog/settings; nav stays a leaf consumer of
// view + whatever can answer a query).
type queryer interface {
	Query(filterText, contentType string) map[cmn.Hash]struct{}
}

// SetFilter re-derives the current view under a text+content-type filter,
// clearing it when both arguments are empty. Matches nil means "no filter".
func (n *Nav) SetFilter(q queryer, filterText, contentType string) {
	n.FilterText = filterText
	n.ContentType = contentType

	if filterText == "" && (contentType == "" || contentType == "All") {
		n.Matches = nil
		n.current = n.base
		n.reconcileFocus()
		return
	}

	matches := q.Query(filterText, contentType)
	n.Matches = matches
	n.current = n.base.Filter(matches)
	n.reconcileFocus()
}

// ClearFilter drops any active filter, restoring the unfiltered view.
func (n *Nav) ClearFilter(q queryer) { n.SetFilter(q, "", "") }
