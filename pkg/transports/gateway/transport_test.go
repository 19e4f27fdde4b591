package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/transports"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/wire"
)

type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	inbound  chan []byte
	accepted atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{inbound: make(chan []byte, 64)}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.accepted.Add(1)
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ts.inbound <- msg
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) send(t *testing.T, payload string) {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.conns) == 0 {
		t.Fatalf("no server-side connection")
	}
	if err := ts.conns[len(ts.conns)-1].WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func waitFrame(t *testing.T, ch <-chan frames.Frame) frames.Frame {
	t.Helper()
	select {
	case f, ok := <-ch:
		if !ok {
			t.Fatalf("recv channel closed")
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame")
	}
	return nil
}

func TestStartIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	tr := New(Config{URL: ts.url()}, Hooks{}, nil)
	defer tr.Stop()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("third start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := ts.accepted.Load(); got != 1 {
		t.Fatalf("expected exactly one socket, server accepted %d", got)
	}
	if tr.ConnState() != transports.StateConnected {
		t.Fatalf("expected connected state, got %s", tr.ConnState())
	}
}

func TestStartAfterStopReturnsErrClosed(t *testing.T) {
	ts := newTestServer(t)
	tr := New(Config{URL: ts.url()}, Hooks{}, nil)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if err := tr.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestStartFailureLeavesDisconnected(t *testing.T) {
	tr := New(Config{URL: "ws://127.0.0.1:1/voice", HandshakeTimeoutMS: 200}, Hooks{}, nil)
	if err := tr.Start(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	if tr.ConnState() != transports.StateDisconnected {
		t.Fatalf("expected disconnected state, got %s", tr.ConnState())
	}
}

func TestInboundDispatch(t *testing.T) {
	ts := newTestServer(t)
	tr := New(Config{URL: ts.url()}, Hooks{}, nil)
	defer tr.Stop()
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	ts.send(t, `{"type":"connected","session_id":"sess-42"}`)
	f := waitFrame(t, tr.Recv())
	sys, ok := f.(frames.SystemFrame)
	if !ok || sys.Name() != "connected" {
		t.Fatalf("expected connected system frame, got %#v", f)
	}
	if tr.SessionID() != "sess-42" {
		t.Fatalf("expected session id sess-42, got %q", tr.SessionID())
	}

	ts.send(t, `{"type":"transcript","text":"hello there","final":true}`)
	f = waitFrame(t, tr.Recv())
	tf, ok := f.(frames.TextFrame)
	if !ok || tf.Text() != "hello there" {
		t.Fatalf("expected transcript text frame, got %#v", f)
	}
	if tf.Meta()[frames.MetaFinal] != "true" {
		t.Fatalf("expected final transcript meta")
	}

	audio := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
	ts.send(t, `{"type":"response","text":"hi","audio_base64":"`+audio+`","format":"mp3"}`)
	f = waitFrame(t, tr.Recv())
	if tf, ok := f.(frames.TextFrame); !ok || tf.Text() != "hi" {
		t.Fatalf("expected response text frame, got %#v", f)
	}
	f = waitFrame(t, tr.Recv())
	af, ok := f.(frames.AudioFrame)
	if !ok {
		t.Fatalf("expected response audio frame, got %#v", f)
	}
	if af.Format() != "mp3" || string(af.RawPayload()) != "pcm-bytes" {
		t.Fatalf("unexpected audio frame: format=%q payload=%q", af.Format(), af.RawPayload())
	}

	// Unknown types are skipped without disturbing the stream.
	ts.send(t, `{"type":"future_thing"}`)
	ts.send(t, `{"type":"interrupted"}`)
	f = waitFrame(t, tr.Recv())
	cf, ok := f.(frames.ControlFrame)
	if !ok || cf.Code() != frames.ControlInterrupted {
		t.Fatalf("expected interrupted control frame, got %#v", f)
	}
}

func TestSendFramesAudioEnvelope(t *testing.T) {
	ts := newTestServer(t)
	tr := New(Config{URL: ts.url()}, Hooks{}, nil)
	defer tr.Stop()
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	af := frames.NewAudioFrame("sess", time.Now().UnixNano(), []byte{1, 2, 3}, 16000, 1, "wav", nil)
	if err := tr.Send(af); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case raw := <-ts.inbound:
		v, err := wire.ParseClientMessage(raw)
		if err != nil {
			t.Fatalf("parse client message: %v", err)
		}
		chunk, ok := v.(wire.AudioChunk)
		if !ok {
			t.Fatalf("expected audio chunk, got %T", v)
		}
		if chunk.Format != "wav" {
			t.Fatalf("expected wav format, got %q", chunk.Format)
		}
		data, err := base64.StdEncoding.DecodeString(chunk.AudioBase64)
		if err != nil || len(data) != 3 {
			t.Fatalf("bad payload: %v %v", data, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive audio envelope")
	}
}

func TestSendDroppedWhileDisconnected(t *testing.T) {
	tr := New(Config{URL: "ws://example.invalid/voice"}, Hooks{}, nil)
	af := frames.NewAudioFrame("sess", time.Now().UnixNano(), []byte{1}, 16000, 1, "wav", nil)
	if err := tr.Send(af); err != nil {
		t.Fatalf("expected silent drop, got %v", err)
	}
	if len(tr.sendCh) != 0 {
		t.Fatalf("frame queued while disconnected")
	}
}

func TestNoDispatchAfterStop(t *testing.T) {
	ts := newTestServer(t)
	tr := New(Config{URL: ts.url()}, Hooks{}, nil)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tr.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Recv must be closed; a closed channel yields immediately with ok=false.
	select {
	case _, ok := <-tr.Recv():
		if ok {
			t.Fatalf("unexpected frame after stop")
		}
	case <-time.After(time.Second):
		t.Fatalf("recv channel not closed after stop")
	}
}

func TestSendRacingStopDoesNotPanic(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 50; i++ {
		tr := New(Config{URL: ts.url()}, Hooks{}, nil)
		if err := tr.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}

		af := frames.NewAudioFrame("sess", int64(i), []byte{1, 2}, 16000, 1, "wav", nil)
		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if err := tr.Send(af); err != nil {
						t.Errorf("send during teardown: %v", err)
						return
					}
				}
			}
		}()

		time.Sleep(time.Millisecond)
		if err := tr.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
		close(stop)
		wg.Wait()

		// Frames offered after teardown are silently dropped.
		if err := tr.Send(af); err != nil {
			t.Fatalf("send after stop: %v", err)
		}
	}
}

func TestStopReleasesContextWatcher(t *testing.T) {
	ts := newTestServer(t)
	// A long-lived caller ctx must not pin one goroutine per session.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		tr := New(Config{URL: ts.url()}, Hooks{}, nil)
		if err := tr.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
		if err := tr.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for runtime.NumGoroutine() > base+2 {
		select {
		case <-deadline:
			t.Fatalf("goroutines leaked: %d running, baseline %d", runtime.NumGoroutine(), base)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRemoteCloseSurfacesErrorHook(t *testing.T) {
	ts := newTestServer(t)
	errCh := make(chan error, 1)
	downCh := make(chan transports.ConnState, 8)
	tr := New(Config{URL: ts.url()}, Hooks{
		OnState: func(s transports.ConnState) { downCh <- s },
		OnError: func(err error) { errCh <- err },
	}, nil)
	defer tr.Stop()
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Abrupt server-side close, no close handshake.
	ts.mu.Lock()
	_ = ts.conns[0].Close()
	ts.mu.Unlock()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected non-nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("error hook not invoked on remote close")
	}

	deadline := time.After(2 * time.Second)
	for tr.ConnState() != transports.StateDisconnected {
		select {
		case <-deadline:
			t.Fatalf("state never reached disconnected")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
