package clipboard_test

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/clipboard"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/store"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := engine.Open(store.Paths{
		CASDir:       filepath.Join(dir, "cas"),
		IndexDir:     filepath.Join(dir, "index"),
		PacketsFile:  filepath.Join(dir, "packets.db"),
		MetaFile:     filepath.Join(dir, "meta.db"),
		SettingsFile: filepath.Join(dir, "settings.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

type fakeAgent struct {
	events chan clipboard.Event
}

func (f fakeAgent) Events(ctx context.Context) (<-chan clipboard.Event, error) {
	return f.events, nil
}

func runIngress(t *testing.T, in *clipboard.Ingress, events chan clipboard.Event) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		in.Run(ctx, fakeAgent{events: events})
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestPlainTextEventAddsItemToCurrentStack(t *testing.T) {
	e := openTestEngine(t)
	in := &clipboard.Ingress{Engine: e}
	events := make(chan clipboard.Event, 1)
	runIngress(t, in, events)

	events <- clipboard.Event{
		Change: 1,
		Types:  map[string]string{clipboard.UTIPlainText: base64.StdEncoding.EncodeToString([]byte("copied text"))},
	}

	require.Eventually(t, func() bool {
		roots := e.GetRoot()
		return len(roots) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSkipChangeNumSuppressesEcho(t *testing.T) {
	e := openTestEngine(t)
	in := &clipboard.Ingress{Engine: e}
	in.SetSkip(42)
	events := make(chan clipboard.Event, 1)
	runIngress(t, in, events)

	events <- clipboard.Event{
		Change: 42,
		Types:  map[string]string{clipboard.UTIPlainText: base64.StdEncoding.EncodeToString([]byte("our own write"))},
	}

	// Give the loop a moment to (not) process the suppressed echo, then
	// confirm a genuine event still gets through afterward.
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, e.GetRoot())

	events <- clipboard.Event{
		Change: 43,
		Types:  map[string]string{clipboard.UTIPlainText: base64.StdEncoding.EncodeToString([]byte("genuine"))},
	}
	require.Eventually(t, func() bool {
		return len(e.GetRoot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBlankPlainTextIsIgnored(t *testing.T) {
	e := openTestEngine(t)
	in := &clipboard.Ingress{Engine: e}
	events := make(chan clipboard.Event, 1)
	runIngress(t, in, events)

	events <- clipboard.Event{
		Change: 1,
		Types:  map[string]string{clipboard.UTIPlainText: base64.StdEncoding.EncodeToString([]byte("   \n"))},
	}
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, e.GetRoot())
}

func TestUnknownUTIIsIgnored(t *testing.T) {
	e := openTestEngine(t)
	in := &clipboard.Ingress{Engine: e}
	events := make(chan clipboard.Event, 1)
	runIngress(t, in, events)

	events <- clipboard.Event{
		Change: 1,
		Types:  map[string]string{"public.rtf": "ignored"},
	}
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, e.GetRoot())
}
