package publish

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/settings"
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

// refusingTransport fails the test if a request is ever sent through it;
// used to assert publish bails out before attempting a POST.
type refusingTransport struct{ t *testing.T }

func (r refusingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.t.Fatal("unexpected outward POST")
	return nil, nil
}

type capturingTransport struct {
	req  *http.Request
	body []byte
}

func (c *capturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.req = req
	if req.Body != nil {
		c.body, _ = io.ReadAll(req.Body)
	}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func naivePreview(content []byte, mime contentmeta.MimeType, contentType string, ephemeral bool) string {
	return string(content)
}

func TestOnUpdateWithoutTokenNeverPosts(t *testing.T) {
	e := openTestEngine(t)
	p := New(e, naivePreview)
	p.Client.Transport = refusingTransport{t: t}

	p.OnUpdate(context.Background())
}

func TestOnUpdateWithNoCrossStreamStackNeverPosts(t *testing.T) {
	e := openTestEngine(t)
	token := strings.Repeat("a", 64)
	require.NoError(t, e.Store.Settings.Save(settings.Settings{CrossStreamAccessToken: &token}))

	p := New(e, naivePreview)
	p.Client.Transport = refusingTransport{t: t}

	p.OnUpdate(context.Background())
}

func TestPublishPostsRenderedChildrenAndDedupsUnchangedState(t *testing.T) {
	e := openTestEngine(t)
	token := strings.Repeat("b", 64)
	require.NoError(t, e.Store.Settings.Save(settings.Settings{CrossStreamAccessToken: &token}))

	stackPacket, err := e.AddStack("shared", packetlog.Unlocked)
	require.NoError(t, err)
	_, err = e.MarkAsCrossStream(stackPacket.ID)
	require.NoError(t, err)
	_, err = e.Add([]byte("hello"), contentmeta.TextPlain, &stackPacket.ID)
	require.NoError(t, err)

	p := New(e, naivePreview)
	transport := &capturingTransport{}
	p.Client.Transport = transport

	require.NoError(t, p.publish(context.Background()))
	require.NotNil(t, transport.req)
	require.Equal(t, "Bearer "+token, transport.req.Header.Get("Authorization"))
	require.Contains(t, string(transport.body), "hello")

	// A second publish with no state change must not re-POST.
	transport.req = nil
	require.NoError(t, p.publish(context.Background()))
	require.Nil(t, transport.req, "an unchanged child list must not trigger a second POST")
}
