package audio

import (
	"context"
	"errors"
)

// ErrNoCaptureDevice is returned by NullSource.Start; it models a host with
// no microphone configured.
var ErrNoCaptureDevice = errors.New("no capture device configured")

// NullSource is the default capture source on hosts without one. Start always
// fails, which exercises the same degrade path as a denied microphone.
type NullSource struct {
	out chan []byte
}

func NewNullSource() *NullSource {
	return &NullSource{out: make(chan []byte)}
}

func (s *NullSource) Name() string                    { return "none" }
func (s *NullSource) Start(ctx context.Context) error { return ErrNoCaptureDevice }
func (s *NullSource) Close() error                    { return nil }
func (s *NullSource) Chunks() <-chan []byte           { return s.out }
func (s *NullSource) Format() Format                  { return Format{Tag: "wav", SampleRate: 16000, Channels: 1} }

// DiscardSink drops clips immediately. Useful when only transcripts matter.
type DiscardSink struct{}

func (DiscardSink) Name() string                               { return "discard" }
func (DiscardSink) Play(ctx context.Context, clip Clip) error { return nil }
