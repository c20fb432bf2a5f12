// Package ingest implements streaming ingest for producers whose output
// becomes a single item assembled incrementally: piped shell commands being
// the main case. Bytes accumulate in memory and commit once at the end.
package ingest

import (
	"bytes"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/cos"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/store"
)

// InProgressStream accumulates bytes for a single eventual item, surfacing
// an ephemeral placeholder in the view while data is still arriving.
type InProgressStream struct {
	id          cmn.ID
	mime        contentmeta.MimeType
	contentType *string
	stackID     *cmn.ID
	buf         bytes.Buffer

	// Packet is the current, ephemeral, not-yet-appended add packet;
	// Begin's caller must commit() it once so the view shows progress.
	Packet packetlog.Packet
	// Meta is the tentative ContentMeta: an empty hash until the first
	// Append, then the hash of everything appended so far, plus a terse
	// computed from the same bytes.
	Meta contentmeta.ContentMeta
}

// Begin allocates a stream: a buffered accumulator, a tentative ContentMeta
// with an empty hash, and an ephemeral Add packet. The returned packet
// still needs appending by the caller (engine.commit) so the UI can show it.
func Begin(mime contentmeta.MimeType, contentType *string, stackID *cmn.ID) *InProgressStream {
	id := cmn.NewID()
	s := &InProgressStream{
		id:          id,
		mime:        mime,
		contentType: contentType,
		stackID:     stackID,
	}
	s.Packet = packetlog.NewAdd(id, cmn.Hash{}, stackID, true)
	s.recomputeMeta()
	return s
}

// Append extends the buffer and recomputes the running terse + hash over
// the buffer seen so far. The hash is provisional: finalize computes the
// real CAS hash over the full, final content.
func (s *InProgressStream) Append(b []byte) {
	s.buf.Write(b)
	s.recomputeMeta()
	s.Meta.Hash = cmn.HashBytes(s.buf.Bytes())
}

func (s *InProgressStream) recomputeMeta() {
	content := s.buf.Bytes()
	terse := cos.TruncateUTF8Lossy(string(content), 100)
	s.Meta = contentmeta.ContentMeta{
		Hash:     cmn.Hash{},
		MimeType: s.mime,
		Terse:    terse,
	}
	if s.contentType != nil {
		s.Meta.ContentType = *s.contentType
	}
}

// Content returns everything appended so far.
func (s *InProgressStream) Content() []byte { return s.buf.Bytes() }

// Finalize writes the accumulated bytes to CAS, producing the final
// non-ephemeral Add packet the caller must commit (engine.commit). It does
// not append to the log itself, only shapes the packet, same contract as
// store's Build* methods.
func (s *InProgressStream) Finalize(st *store.Store) (packetlog.Packet, error) {
	hash, err := st.WriteBlob(s.buf.Bytes(), s.mime)
	if err != nil {
		return packetlog.Packet{}, err
	}
	p := packetlog.NewAdd(s.id, hash, s.stackID, false)
	if s.contentType != nil {
		if err := st.Meta.SetContentType(hash, *s.contentType); err != nil {
			return p, err
		}
	}
	return p, nil
}
