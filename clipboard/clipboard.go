// Package clipboard implements the clipboard ingress state machine: a
// single-purpose reader loop that consumes events from an opaque
// ClipboardAgent and feeds TextPlain/ImagePng adds into the engine's
// current stack.
package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cmn/xlog"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
)

// UTI names the clipboard payload types Ingress understands; everything
// else is ignored (4.8.4).
const (
	UTIPlainText = "public.utf8-plain-text"
	UTIPNG       = "public.png"
)

// Event is one decoded clipboard change: a monotonic counter and a map of
// UTI to base64-encoded payload, exactly as the agent emits it.
type Event struct {
	Change int64             `json:"change"`
	Types  map[string]string `json:"types"`
}

// Agent is the opaque producer Ingress consumes: anything that can hand
// back a channel of decoded Events. main wires noopClipboardAgent, which
// never sends an event; tests wire a fake that sends canned events.
type Agent interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// Ingress drains an Agent into the engine, applying the skip_change_num
// echo-suppression rule (4.8.1): the core sets SkipChangeNum whenever it
// writes to the system clipboard itself, so that write doesn't loop back in
// as a duplicate add.
type Ingress struct {
	Engine *engine.Engine

	skipChangeNum atomic.Int64
}

// SetSkip records the change counter the core's own write to the system
// clipboard will appear as, so Run can drop the echo.
func (in *Ingress) SetSkip(change int64) { in.skipChangeNum.Store(change) }

// Run drains agent's events until ctx is cancelled or the agent's channel
// closes. Each event is handled independently; a handling error is logged
// and does not stop the loop (clipboard ingress must never wedge on one bad
// event, the same "log and continue" posture the broadcast bus's lagged
// subscribers use).
func (in *Ingress) Run(ctx context.Context, agent Agent) error {
	events, err := agent.Events(ctx)
	if err != nil {
		return errors.Wrap(err, "clipboard: failed to start agent")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := in.handle(ctx, ev); err != nil {
				xlog.Warnf("clipboard: failed to handle event %d: %v", ev.Change, err)
			}
		}
	}
}

func (in *Ingress) handle(ctx context.Context, ev Event) error {
	if ev.Change == in.skipChangeNum.Load() {
		return nil
	}

	if raw, ok := ev.Types[UTIPlainText]; ok {
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return errors.Wrap(err, "clipboard: bad base64 in public.utf8-plain-text")
		}
		if len(bytes.TrimSpace(content)) == 0 {
			return nil
		}
		return in.add(content, contentmeta.TextPlain)
	}

	if raw, ok := ev.Types[UTIPNG]; ok {
		content, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return errors.Wrap(err, "clipboard: bad base64 in public.png")
		}
		return in.add(content, contentmeta.ImagePng)
	}

	return nil
}

func (in *Ingress) add(content []byte, mime contentmeta.MimeType) error {
	stackID, err := in.Engine.CurrentStack(time.Now())
	if err != nil {
		return err
	}
	_, err = in.Engine.Add(content, mime, &stackID)
	return err
}
