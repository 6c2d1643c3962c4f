package messages

import (
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"
)

// Message kinds exchanged over the duplex channel.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
	TypeAudio     = "audio"
	TypeConsole   = "console"
	TypeInterrupt = "interrupt"
	TypeMessages  = "messages"
	TypeFunction  = "function"
)

// Message is the single envelope exchanged in both directions.
// Type determines how Payload is interpreted; there is no secondary
// type field. For "audio" the payload is base64 PCM16 (little-endian);
// for "interrupt" it is empty; for everything else it is
// application-defined text.
type Message struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// NewUserMessage creates a user text message.
func NewUserMessage(text string) Message {
	return Message{Type: TypeUser, Payload: text}
}

// NewAssistantMessage creates an assistant text message.
func NewAssistantMessage(text string) Message {
	return Message{Type: TypeAssistant, Payload: text}
}

// NewAudioMessage wraps a raw PCM16 frame as a base64 audio message.
func NewAudioMessage(frame []byte) Message {
	return Message{Type: TypeAudio, Payload: base64.StdEncoding.EncodeToString(frame)}
}

// NewInterruptMessage creates a barge-in signal. The kind alone is the
// signal; the payload stays empty.
func NewInterruptMessage() Message {
	return Message{Type: TypeInterrupt}
}

// NewConsoleMessage creates a console/status message.
func NewConsoleMessage(text string) Message {
	return Message{Type: TypeConsole, Payload: text}
}

// NewFunctionMessage creates a function-call message with an
// application-defined payload (typically JSON).
func NewFunctionMessage(payload string) Message {
	return Message{Type: TypeFunction, Payload: payload}
}

// AudioBytes decodes the payload of an audio message back to raw PCM16
// bytes.
func (m Message) AudioBytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	return data, nil
}

// Encode serializes a message to its wire form.
func Encode(m Message) ([]byte, error) {
	data, err := sonic.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses a wire frame into a message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("message missing type field")
	}
	return m, nil
}
