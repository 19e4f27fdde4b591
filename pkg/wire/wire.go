// Package wire defines the JSON envelopes exchanged with the backend voice
// endpoint. Every frame is a text message discriminated by a "type" field.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies socket payload variants.
type MessageType string

// Client -> server types.
const (
	TypeAudio             MessageType = "audio"
	TypeEndTurn           MessageType = "end_turn"
	TypeInterrupt         MessageType = "interrupt"
	TypeBotSpeechComplete MessageType = "bot_speech_complete"
)

// Server -> client types.
const (
	TypeConnected   MessageType = "connected"
	TypeTranscript  MessageType = "transcript"
	TypeResponse    MessageType = "response"
	TypeInterrupted MessageType = "interrupted"
	TypeError       MessageType = "error"
	TypeStatus      MessageType = "status"
)

// ErrUnknownType marks message types this client does not understand.
// Callers skip such messages so newer servers stay compatible.
var ErrUnknownType = errors.New("unknown message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type AudioChunk struct {
	Type        MessageType `json:"type"`
	AudioBase64 string      `json:"audio_base64"`
	Format      string      `json:"format"`
}

type EndTurn struct {
	Type MessageType `json:"type"`
}

type Interrupt struct {
	Type MessageType `json:"type"`
}

type BotSpeechComplete struct {
	Type MessageType `json:"type"`
}

type Connected struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
}

type Transcript struct {
	Type  MessageType `json:"type"`
	Text  string      `json:"text"`
	Final bool        `json:"final,omitempty"`
}

type Response struct {
	Type        MessageType `json:"type"`
	Text        string      `json:"text"`
	AudioBase64 string      `json:"audio_base64,omitempty"`
	Format      string      `json:"format,omitempty"`
}

type Interrupted struct {
	Type MessageType `json:"type"`
}

type ErrorEvent struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type Status struct {
	Type       MessageType `json:"type"`
	STTEnabled bool        `json:"stt_enabled"`
	TTSEnabled bool        `json:"tts_enabled"`
}

func NewAudioChunk(audioBase64, format string) AudioChunk {
	return AudioChunk{Type: TypeAudio, AudioBase64: audioBase64, Format: format}
}

func NewEndTurn() EndTurn { return EndTurn{Type: TypeEndTurn} }

func NewInterrupt() Interrupt { return Interrupt{Type: TypeInterrupt} }

func NewBotSpeechComplete() BotSpeechComplete {
	return BotSpeechComplete{Type: TypeBotSpeechComplete}
}

// ParseServerMessage decodes one inbound text frame into its typed variant.
// Unknown types return ErrUnknownType.
func ParseServerMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeConnected:
		var msg Connected
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeTranscript:
		var msg Transcript
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeResponse:
		var msg Response
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeInterrupted:
		var msg Interrupted
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeError:
		var msg ErrorEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeStatus:
		var msg Status
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// ParseClientMessage decodes one outbound text frame; used by test doubles
// and the dev server.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeAudio:
		var msg AudioChunk
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.AudioBase64 == "" {
			return nil, errors.New("invalid audio chunk: empty payload")
		}
		return msg, nil
	case TypeEndTurn:
		return EndTurn{Type: TypeEndTurn}, nil
	case TypeInterrupt:
		return Interrupt{Type: TypeInterrupt}, nil
	case TypeBotSpeechComplete:
		return BotSpeechComplete{Type: TypeBotSpeechComplete}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
