// Package mock provides an in-memory transport for tests and local wiring.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/transports"
)

// Transport implements transports.Transport without any network dependency.
type Transport struct {
	recvCh chan frames.Frame
	sentCh chan frames.Frame
	done   chan struct{}
	state  atomic.Int32
	closed atomic.Bool
	mu     sync.Mutex
}

func New() *Transport {
	return &Transport{
		recvCh: make(chan frames.Frame, 256),
		sentCh: make(chan frames.Frame, 256),
		done:   make(chan struct{}),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.state.Store(int32(transports.StateConnected))
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-t.done:
		}
	}()
	return nil
}

func (t *Transport) Stop() error {
	if t.closed.CompareAndSwap(false, true) {
		t.state.Store(int32(transports.StateDisconnected))
		t.mu.Lock()
		close(t.recvCh)
		close(t.sentCh)
		close(t.done)
		t.mu.Unlock()
	}
	return nil
}

func (t *Transport) ConnState() transports.ConnState {
	return transports.ConnState(t.state.Load())
}

func (t *Transport) Recv() <-chan frames.Frame { return t.recvCh }

func (t *Transport) Send(f frames.Frame) error {
	if t.closed.Load() {
		return nil
	}
	select {
	case t.sentCh <- f:
	default:
	}
	return nil
}

// Push injects an inbound frame into the transport.
func (t *Transport) Push(f frames.Frame) {
	if t.closed.Load() {
		return
	}
	select {
	case t.recvCh <- f:
	default:
	}
}

// Sent exposes outbound frames for inspection.
func (t *Transport) Sent() <-chan frames.Frame { return t.sentCh }

var _ transports.Transport = (*Transport)(nil)
var _ transports.StateReporter = (*Transport)(nil)
