package packetlog

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/cablehead/stacks/cmn"
)

// legacyFieldCount is the width of the narrower shape every older packet on
// disk might still be in: id, packet_type, source_id, hash, stack_id,
// ephemeral. Anything beyond that is only ever present in the current shape.
const legacyFieldCount = 6

// EncodeMsg writes p in the current wire shape. Always the current shape:
// the legacy shape is read-only compatibility, never written.
func (p *Packet) EncodeMsg(en *msgp.Writer) error {
	if err := en.WriteMapHeader(11); err != nil {
		return err
	}

	fields := []struct {
		key string
		wr  func() error
	}{
		{"id", func() error { return en.WriteBytes(p.ID.Bytes()) }},
		{"packet_type", func() error { return en.WriteUint8(uint8(p.Type)) }},
		{"source_id", func() error { return writeOptID(en, p.SourceID) }},
		{"hash", func() error { return writeOptHash(en, p.Hash) }},
		{"stack_id", func() error { return writeOptID(en, p.StackID) }},
		{"ephemeral", func() error { return en.WriteBool(p.Ephemeral) }},
		{"content_type", func() error { return writeOptString(en, p.ContentType) }},
		{"movement", func() error { return writeOptUint8(en, (*uint8)(p.Movement)) }},
		{"lock_status", func() error { return writeOptUint8(en, (*uint8)(p.LockStatus)) }},
		{"sort_order", func() error { return writeOptUint8(en, (*uint8)(p.SortOrder)) }},
		{"cross_stream", func() error { return en.WriteBool(p.CrossStream) }},
	}
	for _, f := range fields {
		if err := en.WriteString(f.key); err != nil {
			return err
		}
		if err := f.wr(); err != nil {
			return msgp.WrapError(err, f.key)
		}
	}
	return nil
}

// DecodeMsg reads p back. Per the open question in the engine's packet-log
// design, the current shape is always attempted first; callers fall back to
// DecodeLegacyMsg only when this fails. Trying the legacy shape first would
// silently drop the newer fields on any packet written by a current build.
func (p *Packet) DecodeMsg(dc *msgp.Reader) error {
	n, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		key, err := dc.ReadString()
		if err != nil {
			return err
		}
		if err := p.decodeField(dc, key); err != nil {
			return msgp.WrapError(err, key)
		}
	}
	return nil
}

func (p *Packet) decodeField(dc *msgp.Reader, key string) error {
	switch key {
	case "id":
		b, err := dc.ReadBytes(nil)
		if err != nil {
			return err
		}
		if len(b) != 16 {
			return errors.New("packetlog: malformed id")
		}
		copy(p.ID[:], b)
	case "packet_type":
		v, err := dc.ReadUint8()
		if err != nil {
			return err
		}
		p.Type = PacketType(v)
	case "source_id":
		id, err := readOptID(dc)
		if err != nil {
			return err
		}
		p.SourceID = id
	case "hash":
		h, err := readOptHash(dc)
		if err != nil {
			return err
		}
		p.Hash = h
	case "stack_id":
		id, err := readOptID(dc)
		if err != nil {
			return err
		}
		p.StackID = id
	case "ephemeral":
		v, err := dc.ReadBool()
		if err != nil {
			return err
		}
		p.Ephemeral = v
	case "content_type":
		s, err := readOptString(dc)
		if err != nil {
			return err
		}
		p.ContentType = s
	case "movement":
		v, err := readOptUint8(dc)
		if err != nil {
			return err
		}
		p.Movement = (*Movement)(v)
	case "lock_status":
		v, err := readOptUint8(dc)
		if err != nil {
			return err
		}
		p.LockStatus = (*LockStatus)(v)
	case "sort_order":
		v, err := readOptUint8(dc)
		if err != nil {
			return err
		}
		p.SortOrder = (*SortOrder)(v)
	case "cross_stream":
		v, err := dc.ReadBool()
		if err != nil {
			return err
		}
		p.CrossStream = v
	default:
		return dc.Skip()
	}
	return nil
}

// DecodeLegacyMsg reads the narrower, older shape: id, packet_type,
// source_id, hash, stack_id, ephemeral. The remaining current-shape fields
// default to absent/false, per the documented legacy compatibility rule.
func (p *Packet) DecodeLegacyMsg(dc *msgp.Reader) error {
	n, err := dc.ReadMapHeader()
	if err != nil {
		return err
	}
	if n > legacyFieldCount {
		return errors.New("packetlog: not a legacy-shaped packet")
	}
	for i := uint32(0); i < n; i++ {
		key, err := dc.ReadString()
		if err != nil {
			return err
		}
		switch key {
		case "id", "packet_type", "source_id", "hash", "stack_id", "ephemeral":
			if err := p.decodeField(dc, key); err != nil {
				return msgp.WrapError(err, key)
			}
		default:
			return errors.Errorf("packetlog: unexpected field %q in legacy packet", key)
		}
	}
	return nil
}

// Marshal encodes p to the current shape.
func (p *Packet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := p.EncodeMsg(w); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes b into p, trying the current shape first and falling
// back to the legacy shape, never the other order (see DecodeMsg doc).
func Unmarshal(b []byte) (Packet, error) {
	var p Packet
	r := msgp.NewReader(bytes.NewReader(b))
	if err := p.DecodeMsg(r); err == nil {
		return p, nil
	}
	p = Packet{}
	r = msgp.NewReader(bytes.NewReader(b))
	if err := p.DecodeLegacyMsg(r); err != nil {
		return Packet{}, errors.Wrap(err, "packetlog: packet matches neither current nor legacy shape")
	}
	return p, nil
}

// --- optional-field helpers --------------------------------------------

func writeOptID(en *msgp.Writer, id *cmn.ID) error {
	if id == nil {
		return en.WriteNil()
	}
	return en.WriteBytes(id.Bytes())
}

func readOptID(dc *msgp.Reader) (*cmn.ID, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	b, err := dc.ReadBytes(nil)
	if err != nil {
		return nil, err
	}
	if len(b) != 16 {
		return nil, errors.New("packetlog: malformed optional id")
	}
	var id cmn.ID
	copy(id[:], b)
	return &id, nil
}

func writeOptHash(en *msgp.Writer, h *cmn.Hash) error {
	if h == nil {
		return en.WriteNil()
	}
	return en.WriteString(h.String())
}

func readOptHash(dc *msgp.Reader) (*cmn.Hash, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	s, err := dc.ReadString()
	if err != nil {
		return nil, err
	}
	h, ok := cmn.ParseHash(s)
	if !ok {
		return nil, errors.Errorf("packetlog: malformed hash %q", s)
	}
	return &h, nil
}

func writeOptString(en *msgp.Writer, s *string) error {
	if s == nil {
		return en.WriteNil()
	}
	return en.WriteString(*s)
}

func readOptString(dc *msgp.Reader) (*string, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	s, err := dc.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func writeOptUint8(en *msgp.Writer, v *uint8) error {
	if v == nil {
		return en.WriteNil()
	}
	return en.WriteUint8(*v)
}

func readOptUint8(dc *msgp.Reader) (*uint8, error) {
	if dc.IsNil() {
		return nil, dc.ReadNil()
	}
	v, err := dc.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
