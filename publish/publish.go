// Package publish implements the external-publish loop (4.9): watch the
// cross-stream stack's children, diff against the last-published list, and
// POST rendered previews to an outward URL.
package publish

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/xlog"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/view"
)

const outwardURL = "https://cross.stream"

// Preview renders one item's content into an embeddable HTML fragment. Left
// a pure function signature the Publisher calls; preview rendering itself
// is out of scope, only the contract it's driven through.
type Preview func(content []byte, mimeType contentmeta.MimeType, contentType string, ephemeral bool) string

// published identifies one item for the equality check in 4.9.3: by id,
// hash, and content type together.
type published struct {
	ID          cmn.ID
	Hash        cmn.Hash
	ContentType string
}

// Publisher watches the engine's view for the cross-stream stack and POSTs
// a rendered digest whenever its children change.
type Publisher struct {
	Engine  *engine.Engine
	Preview Preview
	Client  *http.Client

	lastPublished []published
	previewCache  map[previewKey]string
}

type previewKey struct {
	Hash        cmn.Hash
	ContentType string
}

func New(e *engine.Engine, preview Preview) *Publisher {
	return &Publisher{
		Engine:       e,
		Preview:      preview,
		Client:       &http.Client{Timeout: 10 * time.Second},
		previewCache: make(map[previewKey]string),
	}
}

// OnUpdate is the per-update entry point (4.9): called by whatever drives
// the view-update signal (engine.Commit's caller, or a poll loop). It never
// blocks the core; any error is logged and swallowed, retrying on the next
// call with the previous published list intact (4.9.4).
func (p *Publisher) OnUpdate(ctx context.Context) {
	if err := p.publish(ctx); err != nil {
		xlog.Warnf("publish: %v", err)
	}
}

func (p *Publisher) publish(ctx context.Context) error {
	token, err := p.crossStreamToken()
	if err != nil {
		return err
	}

	stack, children, ok := p.findCrossStreamStack()
	if !ok {
		return nil
	}
	_ = stack

	current := make([]published, 0, len(children))
	for _, c := range children {
		current = append(current, published{ID: c.ID, Hash: c.Hash, ContentType: p.contentType(c.Hash)})
	}
	if equalPublished(current, p.lastPublished) {
		return nil
	}

	body, err := p.render(children)
	if err != nil {
		return err
	}

	if err := p.post(ctx, token, body); err != nil {
		return errors.Wrap(err, "publish: POST failed")
	}
	p.lastPublished = current
	return nil
}

// crossStreamToken resolves and validates the settings' token (4.9.1): it
// must be exactly 64 characters.
func (p *Publisher) crossStreamToken() (string, error) {
	s, err := p.Engine.Store.Settings.Load()
	if err != nil {
		return "", err
	}
	if s.CrossStreamAccessToken == nil || len(*s.CrossStreamAccessToken) != 64 {
		return "", errors.New("publish: cross_stream_access_token missing or not 64 characters")
	}
	return *s.CrossStreamAccessToken, nil
}

// findCrossStreamStack locates the unique item flagged cross_stream = true
// and its effective children (4.9.2).
func (p *Publisher) findCrossStreamStack() (view.Item, []view.Item, bool) {
	v := p.Engine.Snapshot()
	for _, it := range v.Items {
		if it.IsStack() && it.CrossStream {
			return it, v.Children(it), true
		}
	}
	return view.Item{}, nil, false
}

func (p *Publisher) contentType(hash cmn.Hash) string {
	if cm, ok := p.Engine.GetContentMeta(hash); ok {
		return cm.ContentType
	}
	return ""
}

func equalPublished(a, b []published) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// render builds the concatenated <div>…</div> body (4.9.4), memoising
// previews by (hash, content_type) so re-rendering an unchanged item across
// calls doesn't re-invoke Preview.
func (p *Publisher) render(children []view.Item) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range children {
		cm, ok := p.Engine.GetContentMeta(c.Hash)
		if !ok {
			continue
		}
		key := previewKey{Hash: c.Hash, ContentType: cm.ContentType}
		html, cached := p.previewCache[key]
		if !cached {
			content, _, err := p.Engine.GetContent(c.Hash)
			if err != nil {
				return nil, err
			}
			html = p.Preview(content, cm.MimeType, cm.ContentType, c.Ephemeral)
			p.previewCache[key] = html
		}
		buf.WriteString("<div>")
		buf.WriteString(html)
		buf.WriteString("</div>")
	}
	return buf.Bytes(), nil
}

func (p *Publisher) post(ctx context.Context, token string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, outwardURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("publish: outward POST returned status %d", resp.StatusCode)
	}
	return nil
}
