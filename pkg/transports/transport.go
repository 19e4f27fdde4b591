package transports

import (
	"context"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
)

// Transport defines the I/O boundary between the voice client and the
// backend voice endpoint. Implementations own their network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan frames.Frame
	Send(frames.Frame) error
}

// ConnState tracks the socket lifecycle. Transitions are driven only by the
// underlying connection events, never forced synchronously by callers.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StateReporter exposes connection state for transports that maintain a
// persistent connection.
type StateReporter interface {
	ConnState() ConnState
}
