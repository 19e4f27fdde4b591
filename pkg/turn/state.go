package turn

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListening
	StateProcessing
	StateSpeaking
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateListening:
		return "LISTENING"
	case StateProcessing:
		return "PROCESSING"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

type Manager interface {
	OnLiveModeEnabled()
	OnConnected()
	OnDisconnected()
	OnRecordingStart()
	OnTurnEnd()
	OnResponseStart()
	OnPlaybackStart()
	OnPlaybackComplete(liveMode bool)
	OnInterrupt()
	OnRemoteInterrupted()
	OnTurnComplete()
	AddListener(listener StateListener)
	State() State
}
