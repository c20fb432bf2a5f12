// Package engine wires {view, store} behind a single process-wide mutex and
// exposes the Core API (§6 of the engine's external-interfaces design):
// every operation an external façade (HTTP, IPC, CLI) or an in-process
// collaborator (clipboard ingress, streaming ingest, publisher) drives goes
// through here, as the one global owner guarding the packet-log/view pair
// behind a single mutex.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package engine

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/xlog"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/store"
	"github.com/cablehead/stacks/view"
)

// Engine is the single process-wide critical section: {view, store,
// skip_change_num} (skip_change_num lives in clipboard.Ingress, which holds
// a reference to Engine, see clipboard.Ingress.SetSkip). All mutation of
// view/store happens inside Lock/Unlock via commit; I/O (CAS writes, index
// commits) happens in Store's Build* methods, called before commit.
type Engine struct {
	mu    sync.Mutex
	View  *view.View
	Store *store.Store

	metrics metrics
}

type metrics struct {
	packetsAppended prometheus.Counter
	viewRebuilds    prometheus.Counter
}

func newMetrics() metrics {
	return metrics{
		packetsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacksd_packets_appended_total",
			Help: "Total packets appended to the packet log.",
		}),
		viewRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stacksd_view_rebuilds_total",
			Help: "Total full view rebuilds (boot replay + undo).",
		}),
	}
}

// Open opens every on-disk store at paths, rebuilds the content-meta cache
// (dropping entries whose CAS blob vanished), then replays the packet log
// into a fresh view, the engine's scan-on-boot recovery.
func Open(paths store.Paths) (*Engine, error) {
	s, err := store.Open(paths)
	if err != nil {
		return nil, err
	}
	e := &Engine{Store: s, metrics: newMetrics()}
	if err := e.rebuild(); err != nil {
		s.Close()
		return nil, err
	}
	e.sweepDisk()
	return e, nil
}

func (e *Engine) Close() error { return e.Store.Close() }

// rebuild is the scan-on-boot / undo-replay routine: drop stale meta, then
// fold the entire packet log into a fresh view.
func (e *Engine) rebuild() error {
	if err := e.Store.Meta.Rebuild(e.Store.CAS.Has); err != nil {
		return err
	}
	v := view.New()
	err := e.Store.Log.ScanSafe(e.Store.CAS.Has, func(p packetlog.Packet) error {
		v.Merge(p)
		if p.Type == packetlog.Update && p.Hash != nil && p.ContentType != nil {
			if err := e.Store.Meta.SetContentType(*p.Hash, *p.ContentType); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "engine: failed to replay packet log")
	}
	e.View = v
	e.metrics.viewRebuilds.Inc()
	return nil
}

// sweepDisk is the defence-in-depth consistency check: blobs present on
// disk that the meta cache has no record of are logged, never acted on:
// the meta cache stays authoritative for enumerate() and liveness.
func (e *Engine) sweepDisk() {
	err := e.Store.CAS.WalkDisk(func(h cmn.Hash) {
		if _, ok := e.Store.Meta.Get(h); !ok {
			xlog.Warnf("engine: blob %s present on disk with no content-meta entry", h)
		}
	})
	if err != nil {
		xlog.Warnf("engine: disk consistency sweep failed: %v", err)
	}
}

// commit appends p to the log and folds it into the view, atomically with
// respect to every other engine operation. commit, Snapshot and Undo are
// the methods that take the engine's lock; all IO needed to build p (blob
// writes, index commits) must already be done by the time commit is called.
func (e *Engine) commit(p packetlog.Packet) (packetlog.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.Store.Append(p); err != nil {
		return p, err
	}
	e.View.Merge(p)
	e.metrics.packetsAppended.Inc()
	return p, nil
}

// Snapshot returns a clone of the current view, taken under the same lock
// every mutation uses. Callers get their own Items/Children maps, so the
// returned view stays consistent even while later commits mutate e.View.
func (e *Engine) Snapshot() *view.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.View.Clone()
}

// Commit appends an already-shaped packet (any blob IO the caller needed
// already done) and folds it into the view, the exported hook streaming
// ingest uses to finalize an InProgressStream's Add packet, since that
// packet is built outside the engine package via store.Store directly.
func (e *Engine) Commit(p packetlog.Packet) (packetlog.Packet, error) {
	return e.commit(p)
}

// --- Core API: packet constructors (§4.4) ------------------------------

func (e *Engine) Add(content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	p, err := e.Store.BuildAdd(content, mime, stack)
	if err != nil {
		return p, err
	}
	return e.commit(p)
}

func (e *Engine) AddStack(name string, lockStatus packetlog.LockStatus) (packetlog.Packet, error) {
	p, err := e.Store.BuildAddStack(name, lockStatus)
	if err != nil {
		return p, err
	}
	return e.commit(p)
}

func (e *Engine) Update(source cmn.ID, content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	p, err := e.Store.BuildUpdate(source, content, mime, stack)
	if err != nil {
		return p, err
	}
	return e.commit(p)
}

func (e *Engine) UpdateTouch(source cmn.ID) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildUpdateTouch(source))
}

func (e *Engine) UpdateContentType(hash cmn.Hash, contentType string) (packetlog.Packet, error) {
	p, err := e.Store.BuildUpdateContentType(hash, contentType)
	if err != nil {
		return p, err
	}
	return e.commit(p)
}

func (e *Engine) UpdateMove(source cmn.ID, movement packetlog.Movement) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildUpdateMove(source, movement))
}

func (e *Engine) MarkAsCrossStream(stack cmn.ID) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildMarkAsCrossStream(stack))
}

func (e *Engine) UpdateStackLockStatus(source cmn.ID, status packetlog.LockStatus) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildUpdateStackLockStatus(source, status))
}

func (e *Engine) UpdateStackSortOrder(source cmn.ID, order packetlog.SortOrder) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildUpdateStackSortOrder(source, order))
}

func (e *Engine) Fork(source cmn.ID, content []byte, mime contentmeta.MimeType, stack *cmn.ID) (packetlog.Packet, error) {
	p, err := e.Store.BuildFork(source, content, mime, stack)
	if err != nil {
		return p, err
	}
	return e.commit(p)
}

func (e *Engine) Delete(source cmn.ID) (packetlog.Packet, error) {
	return e.commit(e.Store.BuildDelete(source))
}

// --- Core API: reads (§6) -----------------------------------------------

func (e *Engine) GetContent(hash cmn.Hash) ([]byte, bool, error) { return e.Store.GetContent(hash) }

func (e *Engine) GetContentMeta(hash cmn.Hash) (contentmeta.ContentMeta, bool) {
	return e.Store.GetContentMeta(hash)
}

func (e *Engine) GetRoot() []view.Item {
	return e.Snapshot().Root()
}

func (e *Engine) Query(filterText, contentType string) map[cmn.Hash]struct{} {
	return e.Store.Query(filterText, contentType)
}

// --- Undo ----------------------------------------------------------------

// Undo removes the deletion packet behind the view's current undo target
// and rebuilds the view from scratch by replaying the remaining log. It
// returns the id of the item that was restored, for the UI to refocus on.
func (e *Engine) Undo() (cmn.ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.View.Undo == nil {
		return cmn.ID{}, errors.New("engine: nothing to undo")
	}
	target := *e.View.Undo

	if err := e.Store.Log.Remove(target.LastTouched); err != nil {
		return cmn.ID{}, errors.Wrap(err, "engine: failed to remove deletion packet")
	}
	if err := e.rebuild(); err != nil {
		return cmn.ID{}, err
	}
	return target.ID, nil
}
