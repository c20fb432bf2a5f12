// Package tokenizer runs the background tiktoken backfill worker (4.10):
// it subscribes to the content-meta broadcast and, for every new TextPlain
// blob, computes a token count off the hot path and writes it back.
package tokenizer

import (
	"context"

	"github.com/cablehead/stacks/cmn/xlog"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
)

// Count computes the number of tokens content would encode to. Left a
// pure function signature the worker calls, the same way Preview is for
// publish: the tokenizer's actual vocabulary/BPE table is out of scope.
type Count func(content []byte) (int, error)

// Worker drains an engine's content-meta bus, backfilling tiktoken counts.
type Worker struct {
	Engine *engine.Engine
	Count  Count
}

func New(e *engine.Engine, count Count) *Worker {
	return &Worker{Engine: e, Count: count}
}

// Run subscribes to the bus and processes events until ctx is cancelled or
// the bus closes the channel. A lagged event is logged and processed like
// any other: the tokenizer tolerates missed items because it can always
// recompute from the meta cache (Backfill) on boot.
func (w *Worker) Run(ctx context.Context) {
	events, unsubscribe := w.Engine.Store.Bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Lagged > 0 {
				xlog.Warnf("tokenizer: bus reported %d lagged event(s)", ev.Lagged)
			}
			w.process(ev.Meta)
		}
	}
}

func (w *Worker) process(cm contentmeta.ContentMeta) {
	if cm.MimeType != contentmeta.TextPlain {
		return
	}
	if cm.Tiktokens != 0 {
		return
	}
	content, ok, err := w.Engine.GetContent(cm.Hash)
	if err != nil || !ok {
		if err != nil {
			xlog.Warnf("tokenizer: failed to read content for %s: %v", cm.Hash, err)
		}
		return
	}
	n, err := w.Count(content)
	if err != nil {
		xlog.Warnf("tokenizer: count failed for %s: %v", cm.Hash, err)
		return
	}
	if err := w.Engine.Store.Meta.SetTiktokens(cm.Hash, n); err != nil {
		xlog.Warnf("tokenizer: failed to persist token count for %s: %v", cm.Hash, err)
	}
}

// Backfill scans every TextPlain entry in the meta cache missing a token
// count and computes it, the boot-time recovery path for whatever the bus
// may have dropped while the tokenizer wasn't running.
func (w *Worker) Backfill() {
	for _, cm := range w.Engine.Store.Meta.All() {
		w.process(cm)
	}
}
