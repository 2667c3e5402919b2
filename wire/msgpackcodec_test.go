package wire

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/embedstyle/stylehost/value"
)

func marshalForTest(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func TestMsgpackCodecRoundTripFunctionCall(t *testing.T) {
	codec := NewMsgpackCodec()

	in := &Inbound{
		Kind:          InboundCompileRequest,
		CompilationID: 7,
		CompileRequest: &CompileRequest{
			Entry: CompileEntry{
				Data:   strPtr("a {b: foo(bar)}"),
				Syntax: "scss",
				URL:    "stdin://entry.scss",
			},
			Style:              "expanded",
			FunctionSignatures: []string{"foo($arg)"},
		},
	}

	encoded, err := codec.EncodeInbound(in)
	if err != nil {
		t.Fatalf("EncodeInbound: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("expected non-empty encoding")
	}

	out := &Outbound{
		Kind:          OutboundFunctionCallRequest,
		CompilationID: 7,
		ID:            1,
		FunctionCallRequest: &FunctionCallRequest{
			FunctionID: 1,
			Signature:  "foo($arg)",
			Arguments:  []value.Value{value.String("bar")},
		},
	}

	// Exercise decode by round-tripping an Outbound through the same
	// underlying encoder, since the codec only needs to decode what the
	// compiler would actually send.
	raw, err := marshalForTest(out)
	if err != nil {
		t.Fatalf("marshal outbound: %v", err)
	}

	decoded, err := codec.DecodeOutbound(raw)
	if err != nil {
		t.Fatalf("DecodeOutbound: %v", err)
	}
	if decoded.Kind != OutboundFunctionCallRequest {
		t.Fatalf("kind mismatch: got %s", decoded.Kind)
	}
	if decoded.FunctionCallRequest == nil {
		t.Fatal("expected FunctionCallRequest payload")
	}
	if len(decoded.FunctionCallRequest.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(decoded.FunctionCallRequest.Arguments))
	}
	got, err := decoded.FunctionCallRequest.Arguments[0].AsString()
	if err != nil {
		t.Fatalf("AsString: %v", err)
	}
	if got != "bar" {
		t.Fatalf("expected argument %q, got %q", "bar", got)
	}
}

func TestMsgpackCodecRejectsMissingDiscriminant(t *testing.T) {
	codec := NewMsgpackCodec()
	raw, err := marshalForTest(map[string]any{"compilation_id": 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := codec.DecodeOutbound(raw); err == nil {
		t.Fatal("expected decode error for envelope missing type discriminant")
	}
}

func strPtr(s string) *string { return &s }
