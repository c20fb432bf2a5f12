package engine

import (
	"time"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/packetlog"
)

// currentStackWindow is the recency window past which a new stack is
// started instead of reusing the most recent one (spec 4.8).
const currentStackWindow = time.Hour

// CurrentStack resolves the stack new clipboard/streaming-ingest items
// should land in: the most recently touched root stack, if its last touch
// was within the last hour; otherwise a freshly created stack named with a
// human-readable timestamp. Shared by clipboard ingress and streaming
// ingest, per the engine's design.
func (e *Engine) CurrentStack(now time.Time) (cmn.ID, error) {
	roots := e.GetRoot()
	if len(roots) > 0 {
		mostRecent := roots[0]
		if now.Sub(mostRecent.LastTouched.Time()) <= currentStackWindow {
			return mostRecent.ID, nil
		}
	}
	p, err := e.AddStack(now.Format("2006-01-02 15:04:05"), packetlog.Unlocked)
	if err != nil {
		return cmn.ID{}, err
	}
	return p.ID, nil
}
