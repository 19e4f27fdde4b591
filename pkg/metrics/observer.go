// Package metrics defines the event stream the voice client emits as a
// conversation progresses. Every lifecycle moment (recording start, turn
// end, playback, interruption) becomes one MetricsEvent fanned out to the
// configured observers.
package metrics

import "time"

// MetricsEvent is a single conversation event. Tags carry low-cardinality
// identifiers such as the session and turn IDs; Fields carry everything
// else (byte counts, durations, degrade reasons).
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Observer receives conversation events. RecordEvent must not block, as it
// runs on the client's dispatch path.
type Observer interface {
	RecordEvent(ev MetricsEvent)
}

// Flusher is implemented by observers that buffer events. The client
// flushes them during Close so a session's tail is not lost.
type Flusher interface {
	Flush() error
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
