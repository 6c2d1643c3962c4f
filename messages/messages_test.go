package messages

import (
	"bytes"
	"testing"
)

func TestAudioRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "empty", frame: []byte{}},
		{name: "single sample", frame: []byte{0x01, 0x00}},
		{name: "negative samples", frame: []byte{0xFF, 0xFF, 0x00, 0x80}},
		{name: "frame", frame: bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 240)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewAudioMessage(tt.frame)
			if msg.Type != TypeAudio {
				t.Errorf("type=%q", msg.Type)
			}

			got, err := msg.AudioBytes()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, tt.frame) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.frame))
			}
		})
	}
}

func TestAudioBytesInvalid(t *testing.T) {
	msg := Message{Type: TypeAudio, Payload: "not!base64!!"}
	if _, err := msg.AudioBytes(); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name        string
		msg         Message
		wantType    string
		wantPayload string
	}{
		{"user", NewUserMessage("hello"), TypeUser, "hello"},
		{"assistant", NewAssistantMessage("hi"), TypeAssistant, "hi"},
		{"console", NewConsoleMessage("connected"), TypeConsole, "connected"},
		{"function", NewFunctionMessage(`{"id":"1"}`), TypeFunction, `{"id":"1"}`},
		{"interrupt", NewInterruptMessage(), TypeInterrupt, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.msg.Type != tt.wantType {
				t.Errorf("type=%q, want %q", tt.msg.Type, tt.wantType)
			}
			if tt.msg.Payload != tt.wantPayload {
				t.Errorf("payload=%q, want %q", tt.msg.Payload, tt.wantPayload)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"user", NewUserMessage("table for two")},
		{"audio", NewAudioMessage([]byte{1, 2, 3, 4})},
		{"interrupt", NewInterruptMessage()},
		{"function", NewFunctionMessage(`{"name":"lookup","args":{"q":"x"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			got, err := Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.msg {
				t.Errorf("got %+v, want %+v", got, tt.msg)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"missing type", `{"payload":"x"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}
