package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonMicPermission ReasonCode = "mic_permission"
	ReasonCaptureRead   ReasonCode = "capture_read"

	ReasonSocketConnect ReasonCode = "ws_connect"
	ReasonTransportSend ReasonCode = "transport_send"

	ReasonStatusRequest ReasonCode = "status_request"
	ReasonListenRequest ReasonCode = "listen_request"
	ReasonSpeakRequest  ReasonCode = "speak_request"

	ReasonAudioDecode ReasonCode = "audio_decode"
	ReasonPlayback    ReasonCode = "playback"
)
