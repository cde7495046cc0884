// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// sampleFrame is a representative wire envelope using cbor struct tags
// (the convention for wire-only types).
type sampleFrame struct {
	Type   string `cbor:"t"`
	ID     string `cbor:"id,omitempty"`
	Method string `cbor:"method,omitempty"`
	Seq    uint64 `cbor:"seq,omitempty"`
}

// sampleScenario uses json struct tags (the convention for types that
// serve both JSON and CBOR, relying on fxamacker's fallback).
type sampleScenario struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFrame{
		Type:   "call",
		ID:     "c-7",
		Method: "send_message",
		Seq:    42,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	frame := sampleFrame{Type: "result", ID: "c-3", Seq: 9}

	first, err := Marshal(frame)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(frame)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	frames := []sampleFrame{
		{Type: "hello"},
		{Type: "call", ID: "c-1", Method: "send_message"},
		{Type: "event", Seq: 3},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got sampleFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	// Types with json tags (no cbor tags) should encode and decode
	// through our modes using the json tag names as CBOR map keys.
	original := sampleScenario{Version: 2, Name: "greeter"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleScenario
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("json-tag roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withID := sampleFrame{Type: "call", ID: "c-1", Method: "send_message"}
	withoutID := sampleFrame{Type: "call", Method: "send_message"}

	dataWith, err := Marshal(withID)
	if err != nil {
		t.Fatal(err)
	}
	dataWithout, err := Marshal(withoutID)
	if err != nil {
		t.Fatal(err)
	}

	// The encoding without the ID should be shorter because the
	// omitted field is absent entirely, not encoded as empty.
	if len(dataWithout) >= len(dataWith) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(dataWithout), len(dataWith))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var frame sampleFrame
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &frame); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalIgnoresUnknownKeys(t *testing.T) {
	// A server a version ahead of us may add envelope fields. Decoding
	// must not fail on keys we do not know.
	data, err := Marshal(map[string]any{
		"t":            "event",
		"seq":          uint64(5),
		"future_field": "ignored",
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var frame sampleFrame
	if err := Unmarshal(data, &frame); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if frame.Type != "event" || frame.Seq != 5 {
		t.Errorf("decoded frame %+v, want type=event seq=5", frame)
	}
}

func TestRawMessageDelaysDecoding(t *testing.T) {
	// Frame bodies ride as RawMessage inside the envelope; the raw
	// bytes must survive an envelope roundtrip unchanged.
	type envelope struct {
		Type string     `cbor:"t"`
		Body RawMessage `cbor:"body,omitempty"`
	}

	body, err := Marshal(map[string]any{"channel_id": "chan-1", "text": "hi"})
	if err != nil {
		t.Fatalf("Marshal body: %v", err)
	}

	data, err := Marshal(envelope{Type: "call", Body: body})
	if err != nil {
		t.Fatalf("Marshal envelope: %v", err)
	}

	var decoded envelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if !bytes.Equal(decoded.Body, body) {
		t.Errorf("body bytes changed: got %x, want %x", decoded.Body, body)
	}

	var payload map[string]any
	if err := Unmarshal(decoded.Body, &payload); err != nil {
		t.Fatalf("Unmarshal body: %v", err)
	}
	if payload["text"] != "hi" {
		t.Errorf("payload text = %v, want hi", payload["text"])
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"t": "hello"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"t"`) {
		t.Errorf("notation %q does not contain \"t\"", notation)
	}
	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("notation %q does not contain \"hello\"", notation)
	}
}

func TestDiagnoseFirst(t *testing.T) {
	item1, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal item 1: %v", err)
	}
	item2, err := Marshal(int64(42))
	if err != nil {
		t.Fatalf("Marshal item 2: %v", err)
	}

	var sequence []byte
	sequence = append(sequence, item1...)
	sequence = append(sequence, item2...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("first item notation %q does not contain \"hello\"", notation)
	}
	if len(remaining) == 0 {
		t.Fatal("expected remaining bytes after first item")
	}

	notation2, remaining2, err := DiagnoseFirst(remaining)
	if err != nil {
		t.Fatalf("DiagnoseFirst second: %v", err)
	}
	if !strings.Contains(notation2, "42") {
		t.Errorf("second item notation %q does not contain \"42\"", notation2)
	}
	if len(remaining2) != 0 {
		t.Errorf("expected no remaining bytes, got %d", len(remaining2))
	}
}

func BenchmarkMarshal(b *testing.B) {
	frame := sampleFrame{
		Type:   "call",
		ID:     "c-7",
		Method: "send_message",
		Seq:    42,
	}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(frame)
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	frame := sampleFrame{
		Type:   "call",
		ID:     "c-7",
		Method: "send_message",
		Seq:    42,
	}
	data, err := Marshal(frame)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		var decoded sampleFrame
		Unmarshal(data, &decoded)
	}
}
