// Package twin exposes the voice client for the digital twin backend: a
// control surface over the websocket transport, the REST voice endpoints, the
// turn-taking state machine, and the local audio devices.
package twin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/audio"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/configutil"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/logging"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/metrics"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/transports"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/transports/gateway"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/turn"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/wire"
)

var (
	// ErrSTTUnavailable is returned by recording operations when the backend
	// reports speech-to-text disabled.
	ErrSTTUnavailable = errors.New("speech-to-text is unavailable")
	// ErrTTSUnavailable is returned by Speak when the backend reports
	// text-to-speech disabled.
	ErrTTSUnavailable = errors.New("text-to-speech is unavailable")
	// ErrClientClosed is returned by operations after Close.
	ErrClientClosed = errors.New("client closed")
)

// Callbacks surface conversation events to the embedding application. All are
// optional and invoked from client goroutines.
type Callbacks struct {
	OnTranscript  func(text string, final bool)
	OnResponse    func(text string)
	OnStateChange func(change turn.StateChange)
	OnError       func(err error)
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger replaces the logger built from config.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithObserver attaches a metrics observer.
func WithObserver(obs metrics.Observer) Option {
	return func(c *Client) { c.obs = obs }
}

// WithHTTPClient replaces the HTTP client used for the REST endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTransportFactory replaces the websocket transport constructor. A fresh
// transport is built each time live mode is enabled.
func WithTransportFactory(factory func() transports.Transport) Option {
	return func(c *Client) { c.newTransport = factory }
}

// WithSourceFactory replaces the capture source constructor. A fresh source is
// built per recording span.
func WithSourceFactory(factory func() (audio.Source, error)) Option {
	return func(c *Client) { c.newSource = factory }
}

// WithSink replaces the playback sink.
func WithSink(sink audio.Sink) Option {
	return func(c *Client) { c.sink = sink }
}

// Client is the voice control surface for one conversation session.
type Client struct {
	cfg Config
	cb  Callbacks
	log *slog.Logger
	obs metrics.Observer

	sessionID string
	pts       *frames.PTSGen
	api       *apiClient
	turns     turn.Manager
	player    *audio.Player

	httpClient   *http.Client
	sink         audio.Sink
	newTransport func() transports.Transport
	newSource    func() (audio.Source, error)

	mu         sync.Mutex
	transport  transports.Transport
	rec        *audio.Recorder
	turnID     string
	live       bool
	connecting bool
	caps       Capabilities
	closed     bool
	dispatchWG sync.WaitGroup
}

// New builds a client from config. The session identifier is minted here and
// tagged onto every frame and metrics event the client produces.
func New(cfg Config, cb Callbacks, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:       cfg,
		cb:        cb,
		obs:       metrics.NoopObserver{},
		sessionID: uuid.NewString(),
		pts:       frames.NewPTSGen(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	}
	c.log = logging.NewComponentLogger(c.log, "client").With(slog.String("session_id", c.sessionID))

	c.api = newAPIClient(cfg.Server, c.httpClient, logging.NewComponentLogger(c.log, "api"))

	if c.sink == nil {
		sink, err := buildSink(cfg.Audio.Sink)
		if err != nil {
			return nil, err
		}
		c.sink = sink
	}
	if c.newSource == nil {
		c.newSource = sourceFactory(cfg.Audio.Source)
	}
	if c.newTransport == nil {
		c.newTransport = func() transports.Transport {
			return gateway.New(gateway.Config{URL: cfg.Server.SocketURL}, gateway.Hooks{
				OnError: c.onTransportError,
			}, logging.NewComponentLogger(c.log, "gateway"))
		}
	}

	c.player = audio.NewPlayer(c.sink, logging.NewComponentLogger(c.log, "player"), c.onPlaybackComplete)
	c.turns = turn.NewManager(c.sessionID, frameEmitter{c})
	c.turns.AddListener(stateHook{c})
	return c, nil
}

// SessionID returns the identifier minted for this client instance.
func (c *Client) SessionID() string { return c.sessionID }

// State returns the current turn-taking state.
func (c *Client) State() turn.State { return c.turns.State() }

// Start performs the one-time capability check. A failed check degrades to
// all features disabled; it is not retried, but RefreshCapabilities can be
// called later to probe again.
func (c *Client) Start(ctx context.Context) error {
	caps, err := c.api.Status(ctx)
	if err != nil {
		c.log.Warn("status_check_failed",
			slog.String("reason_code", string(errorsx.ReasonStatusRequest)),
			slog.String("error", err.Error()))
		c.notifyError(err)
		caps = Capabilities{}
	}
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
	c.record("status_check", 0, map[string]any{
		"stt_enabled": caps.STTEnabled,
		"tts_enabled": caps.TTSEnabled,
	})
	return nil
}

// Capabilities reports the most recently observed backend capabilities.
func (c *Client) Capabilities() Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// RefreshCapabilities drops the cached status and probes the backend again.
func (c *Client) RefreshCapabilities(ctx context.Context) (Capabilities, error) {
	c.api.InvalidateStatus()
	caps, err := c.api.Status(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
	return caps, nil
}

// EnableLiveMode opens the websocket session. A transport instance carries at
// most one socket, so each call builds a fresh one. No-op while live.
func (c *Client) EnableLiveMode(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.live || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()

	t := c.newTransport()
	c.turns.OnLiveModeEnabled()
	if err := t.Start(ctx); err != nil {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
		c.turns.OnDisconnected()
		c.record("connect_failed", 0, nil)
		c.notifyError(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.connecting = false
		c.mu.Unlock()
		_ = t.Stop()
		return ErrClientClosed
	}
	c.transport = t
	c.live = true
	c.connecting = false
	c.dispatchWG.Add(1)
	c.mu.Unlock()

	c.turns.OnConnected()
	c.record("live_mode_enabled", 0, nil)
	go c.dispatch(t)
	return nil
}

// DisableLiveMode closes the websocket session. Any in-progress recording is
// discarded; the backend treats the close as end of conversation.
func (c *Client) DisableLiveMode() error {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return nil
	}
	c.live = false
	t := c.transport
	c.transport = nil
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()

	if rec != nil {
		_ = rec.Stop()
	}
	if t != nil {
		_ = t.Stop()
	}
	c.dispatchWG.Wait()
	c.turns.OnDisconnected()
	c.record("live_mode_disabled", 0, nil)
	return nil
}

// LiveMode reports whether a websocket session is currently open.
func (c *Client) LiveMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// StartRecording opens the capture device and begins a turn. In live mode the
// captured audio streams over the socket on the configured interval; otherwise
// it accumulates locally until StopRecording.
func (c *Client) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if !c.caps.STTEnabled {
		c.mu.Unlock()
		return ErrSTTUnavailable
	}
	if c.rec != nil && c.rec.Recording() {
		c.mu.Unlock()
		return nil
	}
	live := c.live
	src, err := c.newSource()
	if err != nil {
		c.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("open capture source: %w", err), errorsx.ReasonCaptureRead)
	}
	interval := time.Duration(c.cfg.Audio.ChunkIntervalMS) * time.Millisecond
	rec := audio.NewRecorder(src, interval, logging.NewComponentLogger(c.log, "recorder"))
	c.rec = rec
	turnID := uuid.NewString()
	c.turnID = turnID
	c.mu.Unlock()

	mode := audio.ModeBuffer
	var emit func([]byte)
	if live {
		mode = audio.ModeStream
		format := src.Format()
		emit = func(chunk []byte) { c.sendAudio(chunk, format) }
	}

	if err := rec.Start(ctx, mode, emit); err != nil {
		c.mu.Lock()
		if c.rec == rec {
			c.rec = nil
		}
		c.mu.Unlock()
		c.record("mic_denied", 0, nil)
		c.notifyError(err)
		return err
	}
	c.turns.OnRecordingStart()
	c.record("recording_start", 0, map[string]any{"live": live, "turn_id": turnID})
	return nil
}

// StopRecording ends the turn. In live mode the recorder flushes pending
// audio first and then a single end-of-turn signal goes out, so the server
// sees the full utterance before the boundary. In push-to-talk mode the
// buffered utterance is submitted for transcription over REST.
func (c *Client) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	live := c.live
	turnID := c.turnID
	c.mu.Unlock()

	if rec == nil || !rec.Recording() {
		return nil
	}
	payload := rec.Stop()
	c.turns.OnTurnEnd()
	c.record("turn_end", 0, map[string]any{"live": live, "turn_id": turnID})

	if live {
		_ = c.send(turn.NewEndTurnFrame(c.sessionID, c.pts.Next(c.sessionID)))
		return nil
	}

	if len(payload) == 0 {
		c.turns.OnTurnComplete()
		return nil
	}
	text, err := c.api.Listen(ctx, payload, rec.Format().Tag)
	if err != nil {
		c.log.Warn("transcription_failed",
			slog.String("reason_code", string(errorsx.ReasonListenRequest)),
			slog.String("error", err.Error()))
		c.notifyError(err)
		c.turns.OnTurnComplete()
		return err
	}
	c.record("transcript_final", 0, nil)
	if c.cb.OnTranscript != nil {
		c.cb.OnTranscript(text, true)
	}
	c.turns.OnTurnComplete()
	return nil
}

// Recording reports whether a capture span is open.
func (c *Client) Recording() bool {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()
	return rec != nil && rec.Recording()
}

// Speak synthesizes text through the backend and plays the returned clip.
func (c *Client) Speak(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	tts := c.caps.TTSEnabled
	c.mu.Unlock()
	if !tts {
		return ErrTTSUnavailable
	}

	clip, err := c.api.Speak(ctx, text)
	if err != nil {
		c.log.Warn("speak_failed",
			slog.String("reason_code", string(errorsx.ReasonSpeakRequest)),
			slog.String("error", err.Error()))
		c.notifyError(err)
		return err
	}
	c.record("speak_request", 0, map[string]any{"chars": len(text)})
	// Playback outlives the request context.
	c.playClip(context.WithoutCancel(ctx), clip)
	return nil
}

// Interrupt cuts off the bot mid-utterance. Playback stops immediately; in
// live mode an interrupt signal also goes to the server.
func (c *Client) Interrupt() {
	c.player.Stop()
	c.turns.OnInterrupt()
	c.record("interrupt", 0, nil)
}

// Close tears the client down: live mode off, playback stopped, any open
// recording discarded.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.DisableLiveMode()
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()
	if rec != nil {
		_ = rec.Stop()
	}
	c.player.Stop()
	c.record("client_closed", 0, nil)
	if fl, ok := c.obs.(metrics.Flusher); ok {
		_ = fl.Flush()
	}
	return nil
}

func (c *Client) dispatch(t transports.Transport) {
	defer c.dispatchWG.Done()
	for f := range t.Recv() {
		c.handleFrame(f)
	}

	c.mu.Lock()
	dropped := c.transport == t
	if dropped {
		c.transport = nil
		c.live = false
	}
	c.mu.Unlock()
	if dropped {
		// Remote close or transport failure; DisableLiveMode handles its own
		// teardown notification.
		c.turns.OnDisconnected()
		c.record("disconnected", 0, nil)
	}
}

func (c *Client) handleFrame(f frames.Frame) {
	switch fr := f.(type) {
	case frames.SystemFrame:
		c.handleSystemFrame(fr)
	case frames.TextFrame:
		c.handleTextFrame(fr)
	case frames.AudioFrame:
		if !c.Capabilities().TTSEnabled {
			c.log.Debug("audio_skipped", slog.String("reason", "tts_disabled"))
			return
		}
		c.playClip(context.Background(), audio.Clip{Data: fr.Data(), Format: fr.Format()})
	case frames.ControlFrame:
		if fr.Code() == frames.ControlInterrupted {
			c.player.Stop()
			c.turns.OnRemoteInterrupted()
			c.record("interrupted_by_server", 0, nil)
		}
	}
}

func (c *Client) handleSystemFrame(fr frames.SystemFrame) {
	meta := fr.Meta()
	switch fr.Name() {
	case string(wire.TypeConnected):
		c.log.Info("session_connected", slog.String("server_session_id", meta[frames.MetaSessionID]))
		c.record("session_connected", 0, nil)
	case string(wire.TypeStatus):
		caps := Capabilities{
			STTEnabled: meta[frames.MetaSTT] == "true",
			TTSEnabled: meta[frames.MetaTTS] == "true",
		}
		c.mu.Lock()
		c.caps = caps
		c.mu.Unlock()
		c.record("capabilities_updated", 0, map[string]any{
			"stt_enabled": caps.STTEnabled,
			"tts_enabled": caps.TTSEnabled,
		})
	case string(wire.TypeError):
		msg := meta[frames.MetaMessage]
		c.log.Warn("server_error", slog.String("message", msg))
		c.record("server_error", 0, nil)
		c.notifyError(fmt.Errorf("server error: %s", msg))
	}
}

func (c *Client) handleTextFrame(fr frames.TextFrame) {
	meta := fr.Meta()
	switch meta[frames.MetaSource] {
	case "transcript":
		final := meta[frames.MetaFinal] == "true"
		if final {
			c.record("transcript_final", 0, nil)
		}
		if c.cb.OnTranscript != nil {
			c.cb.OnTranscript(fr.Text(), final)
		}
	case "response":
		c.turns.OnResponseStart()
		c.record("response_text", 0, map[string]any{"chars": len(fr.Text())})
		if c.cb.OnResponse != nil {
			c.cb.OnResponse(fr.Text())
		}
	}
}

func (c *Client) playClip(ctx context.Context, clip audio.Clip) {
	c.turns.OnPlaybackStart()
	c.record("playback_start", 0, map[string]any{"bytes": len(clip.Data)})
	c.player.Play(ctx, clip)
}

// onPlaybackComplete fires only when a clip ran to its natural end. In live
// mode the server waits for this signal before opening the next turn.
func (c *Client) onPlaybackComplete(audio.Clip) {
	live := c.LiveMode()
	if live {
		_ = c.send(turn.NewBotSpeechCompleteFrame(c.sessionID))
	}
	c.turns.OnPlaybackComplete(live)
	c.record("playback_complete", 0, nil)
}

func (c *Client) onTransportError(err error) {
	c.log.Warn("transport_error", slog.String("error", err.Error()))
	c.notifyError(err)
}

func (c *Client) sendAudio(chunk []byte, format audio.Format) {
	f := frames.NewAudioFrame(c.sessionID, c.pts.Next(c.sessionID), chunk,
		format.SampleRate, format.Channels, format.Tag, nil)
	_ = c.send(f)
	c.record("audio_chunk", float64(len(chunk)), nil)
}

// send drops silently when no socket is open; degraded transport never fails
// a recording span.
func (c *Client) send(f frames.Frame) error {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t == nil {
		c.log.Debug("send_dropped", slog.String("kind", string(f.Kind())))
		return nil
	}
	return t.Send(f)
}

func (c *Client) notifyError(err error) {
	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
}

func (c *Client) record(name string, value float64, fields map[string]any) {
	c.obs.RecordEvent(metrics.MetricsEvent{
		Name:   name,
		Time:   time.Now(),
		Value:  value,
		Tags:   map[string]string{"session_id": c.sessionID, "component": "client"},
		Fields: fields,
	})
}

// frameEmitter lets the turn manager push control frames through the client's
// transport.
type frameEmitter struct{ c *Client }

func (e frameEmitter) Emit(f frames.Frame) error { return e.c.send(f) }

// stateHook forwards turn transitions to the log and the owner's callback.
type stateHook struct{ c *Client }

func (h stateHook) OnStateChange(change turn.StateChange) {
	h.c.log.Debug("turn_state",
		slog.String("from", change.FromState.String()),
		slog.String("to", change.ToState.String()),
		slog.String("reason", change.Reason))
	if h.c.cb.OnStateChange != nil {
		h.c.cb.OnStateChange(change)
	}
}

func sourceFactory(cfg DeviceConfig) func() (audio.Source, error) {
	return func() (audio.Source, error) {
		switch cfg.Provider {
		case "", "none":
			return audio.NewNullSource(), nil
		case "wav_file":
			schema := configutil.Schema{Required: []string{"path"}, Optional: []string{"chunk_ms"}}
			if err := configutil.ValidateSettings(cfg.Settings, schema); err != nil {
				return nil, fmt.Errorf("audio.source settings: %w", err)
			}
			var settings struct {
				Path    string `mapstructure:"path"`
				ChunkMS int    `mapstructure:"chunk_ms"`
			}
			if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
				return nil, fmt.Errorf("audio.source settings: %w", err)
			}
			return audio.NewFileSource(settings.Path, settings.ChunkMS), nil
		default:
			return nil, fmt.Errorf("unknown audio source provider %q", cfg.Provider)
		}
	}
}

func buildSink(cfg DeviceConfig) (audio.Sink, error) {
	switch cfg.Provider {
	case "", "discard":
		return audio.DiscardSink{}, nil
	case "wav_dir":
		if err := configutil.ValidateSettings(cfg.Settings, configutil.Schema{Required: []string{"dir"}}); err != nil {
			return nil, fmt.Errorf("audio.sink settings: %w", err)
		}
		var settings struct {
			Dir string `mapstructure:"dir"`
		}
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, fmt.Errorf("audio.sink settings: %w", err)
		}
		return audio.NewFileSink(settings.Dir), nil
	default:
		return nil, fmt.Errorf("unknown audio sink provider %q", cfg.Provider)
	}
}
