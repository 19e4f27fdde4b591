package audio

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x02}, 1600)
	wav, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, rate, err := DecodeWAVPCM16LE(wav)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("expected rate 16000, got %d", rate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm mismatch: %d vs %d bytes", len(got), len(pcm))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAVPCM16LE([]byte("definitely not audio")); err == nil {
		t.Fatalf("expected error for non-wav input")
	}
}

func TestEncodeDefaultsSampleRate(t *testing.T) {
	wav, err := EncodeWAVPCM16LE([]byte{0, 0}, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, rate, err := DecodeWAVPCM16LE(wav)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("expected default 16000, got %d", rate)
	}
}
