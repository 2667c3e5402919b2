package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec is the concrete Codec shipped with this repo. It serializes
// envelopes as msgpack maps keyed by field name, with the "type" field
// acting as the tagged-union discriminant the same way the reference
// ingestion pipeline this project's ambient stack is modeled on decodes its
// own event envelopes: peek the discriminant, unmarshal the whole struct,
// trust the typed fields matching Kind.
type MsgpackCodec struct{}

// NewMsgpackCodec returns the default wire codec.
func NewMsgpackCodec() *MsgpackCodec { return &MsgpackCodec{} }

// EncodeInbound serializes an Inbound envelope to msgpack bytes.
func (MsgpackCodec) EncodeInbound(in *Inbound) ([]byte, error) {
	b, err := msgpack.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("wire: encode inbound: %w", err)
	}
	return b, nil
}

// DecodeOutbound deserializes msgpack bytes into an Outbound envelope.
// A decode failure is a *FrameError so callers can treat it as the
// protocol-fatal condition it is.
func (MsgpackCodec) DecodeOutbound(b []byte) (*Outbound, error) {
	var out Outbound
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "decode outbound envelope", Err: err}
	}
	if out.Kind == "" {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "outbound envelope missing type discriminant"}
	}
	return &out, nil
}

var _ Codec = MsgpackCodec{}
