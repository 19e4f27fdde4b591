// Package audio bridges capture devices and playback sinks to the voice
// client. Platform microphone/speaker access sits behind the Source and Sink
// interfaces; file and in-memory implementations ship with the module.
package audio

import "context"

// Format describes a capture or playback payload.
type Format struct {
	Tag        string // wire format tag, e.g. "wav", "pcm16", "mp3"
	SampleRate int
	Channels   int
}

// Source produces raw audio chunks from a capture device. Start acquires the
// device and may fail with a permission error; Close releases it and closes
// the chunk channel.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Close() error
	Chunks() <-chan []byte
	Format() Format
}

// Clip is one playable utterance.
type Clip struct {
	Data   []byte
	Format string
}

// Sink renders a clip. Play blocks until the clip has been fully rendered or
// ctx is cancelled.
type Sink interface {
	Name() string
	Play(ctx context.Context, clip Clip) error
}
