package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/metrics"
)

// LatencyObserver reconstructs per-turn timing from client events and logs
// the turn breakdown once the bot's utterance has fully rendered.
type LatencyObserver struct {
	mu     sync.Mutex
	turns  map[string]*turnTrace
	log    *slog.Logger
}

type turnTrace struct {
	turnEnd       time.Time
	transcript    time.Time
	responseText  time.Time
	playbackStart time.Time
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		turns: make(map[string]*turnTrace),
		log:   log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	sessionID := ""
	if ev.Tags != nil {
		sessionID = ev.Tags["session_id"]
	}
	if sessionID == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.turns[sessionID]
	if t == nil {
		t = &turnTrace{}
		o.turns[sessionID] = t
	}
	switch ev.Name {
	case "turn_end":
		// A new turn resets the trace.
		*t = turnTrace{turnEnd: ev.Time}
	case "transcript_final":
		if t.transcript.IsZero() {
			t.transcript = ev.Time
		}
	case "response_text":
		if t.responseText.IsZero() {
			t.responseText = ev.Time
		}
	case "playback_start":
		if t.playbackStart.IsZero() {
			t.playbackStart = ev.Time
		}
	case "playback_complete":
		o.emit(sessionID, t, ev.Time)
		delete(o.turns, sessionID)
	}
}

func (o *LatencyObserver) emit(sessionID string, t *turnTrace, done time.Time) {
	if t.turnEnd.IsZero() {
		return
	}
	attrs := []any{
		slog.String("session_id", sessionID),
		slog.Int64("total_ms", done.Sub(t.turnEnd).Milliseconds()),
	}
	if !t.transcript.IsZero() {
		attrs = append(attrs, slog.Int64("transcript_ms", t.transcript.Sub(t.turnEnd).Milliseconds()))
	}
	if !t.responseText.IsZero() {
		attrs = append(attrs, slog.Int64("response_ms", t.responseText.Sub(t.turnEnd).Milliseconds()))
	}
	if !t.playbackStart.IsZero() {
		attrs = append(attrs, slog.Int64("first_audio_ms", t.playbackStart.Sub(t.turnEnd).Milliseconds()))
	}
	o.log.Info("turn_latency", attrs...)
}
