package broker

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeWireShape(t *testing.T) {
	env, err := NewEnvelope(EventGenerateReport, map[string]string{"interviewId": "i1"})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Events and RPC requests share one wire shape: a type tag and a data
	// object, nothing else.
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(wire) != 2 {
		t.Fatalf("expected exactly type and data, got %d fields", len(wire))
	}
	if string(wire["type"]) != `"GENERATE_REPORT"` {
		t.Fatalf("unexpected type field: %s", wire["type"])
	}

	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var data map[string]string
	if err := decoded.Decode(&data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["interviewId"] != "i1" {
		t.Fatalf("payload lost in round trip: %v", data)
	}
}
