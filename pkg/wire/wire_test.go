package wire

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseServerMessageResponse(t *testing.T) {
	raw := []byte(`{"type":"response","text":"hello","audio_base64":"aGk=","format":"mp3"}`)
	v, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	msg, ok := v.(Response)
	if !ok {
		t.Fatalf("expected Response, got %T", v)
	}
	if msg.Text != "hello" || msg.AudioBase64 != "aGk=" || msg.Format != "mp3" {
		t.Fatalf("unexpected response fields: %+v", msg)
	}
}

func TestParseServerMessageStatus(t *testing.T) {
	raw := []byte(`{"type":"status","stt_enabled":false,"tts_enabled":true}`)
	v, err := ParseServerMessage(raw)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	msg, ok := v.(Status)
	if !ok {
		t.Fatalf("expected Status, got %T", v)
	}
	if msg.STTEnabled || !msg.TTSEnabled {
		t.Fatalf("unexpected capability flags: %+v", msg)
	}
}

func TestParseServerMessageUnknownType(t *testing.T) {
	_, err := ParseServerMessage([]byte(`{"type":"telemetry","payload":1}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestParseServerMessageInvalidJSON(t *testing.T) {
	if _, err := ParseServerMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestParseClientMessageAudio(t *testing.T) {
	b, err := json.Marshal(NewAudioChunk("aGk=", "wav"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	v, err := ParseClientMessage(b)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	msg, ok := v.(AudioChunk)
	if !ok {
		t.Fatalf("expected AudioChunk, got %T", v)
	}
	if msg.Format != "wav" {
		t.Fatalf("expected wav format, got %q", msg.Format)
	}
}

func TestParseClientMessageEmptyAudioRejected(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"audio","audio_base64":""}`)); err == nil {
		t.Fatalf("expected error for empty audio payload")
	}
}

func TestParseClientMessageControls(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want MessageType
	}{
		{`{"type":"end_turn"}`, TypeEndTurn},
		{`{"type":"interrupt"}`, TypeInterrupt},
		{`{"type":"bot_speech_complete"}`, TypeBotSpeechComplete},
	} {
		v, err := ParseClientMessage([]byte(tc.raw))
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		var got MessageType
		switch m := v.(type) {
		case EndTurn:
			got = m.Type
		case Interrupt:
			got = m.Type
		case BotSpeechComplete:
			got = m.Type
		default:
			t.Fatalf("unexpected variant %T", v)
		}
		if got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}
