package turn

import (
	"sync"
	"time"
)

type manager struct {
	mu         sync.RWMutex
	sm         *stateMachine
	emit       InterruptEmitter
	sessionID  string
	lastChange time.Time
}

// NewManager builds a turn manager for one session. The emitter receives an
// interrupt control frame whenever a bot utterance is cut off mid-playback.
func NewManager(sessionID string, emitter InterruptEmitter) Manager {
	return &manager{
		sm:         newStateMachine(),
		emit:       emitter,
		sessionID:  sessionID,
		lastChange: time.Now(),
	}
}

func (m *manager) State() State {
	return m.sm.State()
}

func (m *manager) setState(s State, reason string) {
	m.mu.Lock()
	m.lastChange = time.Now()
	m.mu.Unlock()
	_ = m.sm.Transition(s, reason)
}

func (m *manager) OnLiveModeEnabled() {
	m.setState(StateConnecting, "live mode enabled")
}

func (m *manager) OnConnected() {
	// Socket open: ready but quiescent until recording starts.
	if m.sm.State() == StateConnecting {
		m.setState(StateIdle, "socket connected")
	}
}

func (m *manager) OnDisconnected() {
	if m.sm.State() != StateIdle {
		m.setState(StateIdle, "socket disconnected")
	}
}

func (m *manager) OnRecordingStart() {
	m.setState(StateListening, "recording started")
}

func (m *manager) OnTurnEnd() {
	m.setState(StateProcessing, "turn ended")
}

func (m *manager) OnResponseStart() {
	// Text-only responses resolve straight back to listening; audio arrives
	// through OnPlaybackStart.
	if m.sm.State() == StateListening {
		m.setState(StateProcessing, "response streaming")
	}
}

func (m *manager) OnPlaybackStart() {
	m.setState(StateSpeaking, "bot audio playing")
}

func (m *manager) OnPlaybackComplete(liveMode bool) {
	if m.sm.State() != StateSpeaking {
		return
	}
	if liveMode {
		m.setState(StateListening, "playback complete")
		return
	}
	m.setState(StateIdle, "playback complete")
}

// OnInterrupt cancels an in-flight bot utterance. Both while speaking and
// while a response is still being generated, an interrupt control frame is
// emitted so the server stops streaming.
func (m *manager) OnInterrupt() {
	switch m.sm.State() {
	case StateSpeaking, StateProcessing:
		if m.emit != nil {
			_ = m.emit.Emit(NewInterruptFrame(m.sessionID, time.Now().UnixNano()))
		}
		m.setState(StateListening, "interrupted")
	}
}

// OnRemoteInterrupted records a server-confirmed interrupt. No control frame
// is emitted; the server already stopped streaming.
func (m *manager) OnRemoteInterrupted() {
	if m.sm.State() == StateSpeaking {
		m.setState(StateListening, "interrupted by server")
	}
}

// OnTurnComplete resolves a turn that produced no bot audio, such as a
// push-to-talk transcription.
func (m *manager) OnTurnComplete() {
	if m.sm.State() == StateProcessing {
		m.setState(StateIdle, "turn complete")
	}
}

// AddListener registers a listener for state change events.
func (m *manager) AddListener(listener StateListener) {
	m.sm.AddListener(listener)
}
