// Package gateway implements the websocket client transport to the digital
// twin backend's voice endpoint.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/transports"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/wire"
)

type Config struct {
	URL                string `mapstructure:"url"`
	HandshakeTimeoutMS int    `mapstructure:"handshake_timeout_ms"`
	SendBuffer         int    `mapstructure:"send_buffer"`
	RecvBuffer         int    `mapstructure:"recv_buffer"`
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeoutMS <= 0 {
		c.HandshakeTimeoutMS = 5000
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.RecvBuffer <= 0 {
		c.RecvBuffer = 512
	}
	return c
}

// Hooks surface connection lifecycle events to the owner. Both are optional
// and invoked from transport goroutines.
type Hooks struct {
	OnState func(transports.ConnState)
	OnError func(error)
}

type Transport struct {
	cfg   Config
	hooks Hooks
	log   *slog.Logger

	state atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn

	recvCh chan frames.Frame
	sendCh chan []byte

	wg        sync.WaitGroup
	done      chan struct{}
	closed    atomic.Bool
	stopOnce  sync.Once
	closeRecv sync.Once

	sessionID atomic.Pointer[string]
}

// ErrClosed is returned by Start after the transport has been torn down. A
// transport carries at most one socket over its lifetime; re-enabling live
// mode builds a fresh one.
var ErrClosed = errors.New("gateway transport closed")

func New(cfg Config, hooks Hooks, log *slog.Logger) *Transport {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Transport{
		cfg:    cfg,
		hooks:  hooks,
		log:    log,
		recvCh: make(chan frames.Frame, cfg.RecvBuffer),
		sendCh: make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (t *Transport) Name() string { return "gateway" }

func (t *Transport) Recv() <-chan frames.Frame { return t.recvCh }

func (t *Transport) ConnState() transports.ConnState {
	return transports.ConnState(t.state.Load())
}

// SessionID returns the identifier assigned by the server on connect, or ""
// before the connected event has arrived.
func (t *Transport) SessionID() string {
	if p := t.sessionID.Load(); p != nil {
		return *p
	}
	return ""
}

// Start dials the voice endpoint. It is a no-op when a connection is already
// open or being opened; at most one socket exists per transport instance.
// There is no automatic reconnect: after a close or error the owner must call
// Start again.
func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if t.closed.Load() {
		return ErrClosed
	}
	if !t.state.CompareAndSwap(int32(transports.StateDisconnected), int32(transports.StateConnecting)) {
		return nil
	}
	t.notifyState(transports.StateConnecting)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: time.Duration(t.cfg.HandshakeTimeoutMS) * time.Millisecond,
	}
	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		t.state.Store(int32(transports.StateDisconnected))
		t.notifyState(transports.StateDisconnected)
		t.log.Warn("gateway_connect_failed",
			slog.String("url", t.cfg.URL),
			slog.String("reason_code", string(errorsx.ReasonSocketConnect)),
			slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonSocketConnect)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	t.state.Store(int32(transports.StateConnected))
	t.notifyState(transports.StateConnected)
	t.log.Info("gateway_connected", slog.String("url", t.cfg.URL))

	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-t.done:
		}
	}()
	return nil
}

// Stop closes the socket; idempotent. After Stop returns no further frames
// are delivered on Recv.
func (t *Transport) Stop() error {
	t.stopOnce.Do(func() {
		// Order matters: mark closed and drop out of Connected before touching
		// sendCh, and close sendCh under the same mutex Send enqueues under,
		// so no sender can race the close.
		t.closed.Store(true)
		t.state.Store(int32(transports.StateDisconnected))
		t.mu.Lock()
		conn := t.conn
		t.conn = nil
		close(t.sendCh)
		close(t.done)
		t.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
	})
	t.wg.Wait()

	t.state.Store(int32(transports.StateDisconnected))
	t.closeRecv.Do(func() {
		t.notifyState(transports.StateDisconnected)
		close(t.recvCh)
	})
	return nil
}

// Send frames the payload as a typed JSON envelope. Frames are silently
// dropped while the socket is not connected.
func (t *Transport) Send(f frames.Frame) error {
	if t.ConnState() != transports.StateConnected {
		return nil
	}
	var payload any
	switch f.Kind() {
	case frames.KindAudio:
		af := f.(frames.AudioFrame)
		payload = wire.NewAudioChunk(base64.StdEncoding.EncodeToString(af.RawPayload()), af.Format())
	case frames.KindControl:
		cf := f.(frames.ControlFrame)
		switch cf.Code() {
		case frames.ControlEndTurn:
			payload = wire.NewEndTurn()
		case frames.ControlInterrupt:
			payload = wire.NewInterrupt()
		case frames.ControlBotSpeechComplete:
			payload = wire.NewBotSpeechComplete()
		default:
			return nil
		}
	default:
		return nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	// Recheck under the mutex that guards the close: a Stop racing this call
	// must not find the enqueue in flight.
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return nil
	}
	select {
	case t.sendCh <- b:
	default:
		t.log.Warn("gateway_send_buffer_full")
	}
	return nil
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()
	for msg := range t.sendCh {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			t.log.Warn("gateway_write_error", slog.String("error", err.Error()))
			return
		}
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	for {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.handleReadError(err)
			return
		}
		t.dispatch(msg)
	}
}

func (t *Transport) handleReadError(err error) {
	// The local Stop path clears the conn under the mutex; a nil conn means
	// the read failed because we are tearing down, not because the peer went
	// away.
	t.mu.Lock()
	local := t.conn == nil
	t.mu.Unlock()

	t.state.Store(int32(transports.StateDisconnected))
	if !local && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		t.log.Warn("gateway_read_error", slog.String("error", err.Error()))
		if t.hooks.OnError != nil {
			t.hooks.OnError(errorsx.Wrap(err, errorsx.ReasonSocketConnect))
		}
	}
	if !local {
		go func() { _ = t.Stop() }()
	}
}

func (t *Transport) dispatch(raw []byte) {
	v, err := wire.ParseServerMessage(raw)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownType) {
			t.log.Debug("gateway_unknown_message_type")
			return
		}
		t.log.Warn("gateway_bad_message", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UnixNano()
	sessionID := t.SessionID()

	switch msg := v.(type) {
	case wire.Connected:
		if msg.SessionID != "" {
			sid := msg.SessionID
			t.sessionID.Store(&sid)
			sessionID = sid
		}
		t.deliver(frames.NewSystemFrame(sessionID, now, "connected", nil))
	case wire.Transcript:
		meta := map[string]string{frames.MetaSource: "transcript"}
		if msg.Final {
			meta[frames.MetaFinal] = "true"
		}
		t.deliver(frames.NewTextFrame(sessionID, now, msg.Text, meta))
	case wire.Response:
		t.deliver(frames.NewTextFrame(sessionID, now, msg.Text, map[string]string{
			frames.MetaSource: "response",
		}))
		if msg.AudioBase64 != "" {
			data, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
			if err != nil {
				t.log.Warn("gateway_audio_decode_error",
					slog.String("reason_code", string(errorsx.ReasonAudioDecode)),
					slog.String("error", err.Error()))
				return
			}
			t.deliver(frames.NewAudioFrame(sessionID, now, data, 0, 1, msg.Format, map[string]string{
				frames.MetaSource: "response",
			}))
		}
	case wire.Interrupted:
		t.deliver(frames.NewControlFrame(sessionID, now, frames.ControlInterrupted, nil))
	case wire.ErrorEvent:
		t.deliver(frames.NewSystemFrame(sessionID, now, "error", map[string]string{
			frames.MetaMessage: msg.Message,
		}))
	case wire.Status:
		t.deliver(frames.NewSystemFrame(sessionID, now, "status", map[string]string{
			frames.MetaSTT: boolString(msg.STTEnabled),
			frames.MetaTTS: boolString(msg.TTSEnabled),
		}))
	}
}

func (t *Transport) deliver(f frames.Frame) {
	select {
	case t.recvCh <- f:
	default:
		t.log.Warn("gateway_recv_buffer_full")
	}
}

func (t *Transport) notifyState(s transports.ConnState) {
	if t.hooks.OnState != nil {
		t.hooks.OnState(s)
	}
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.StateReporter = (*Transport)(nil)
