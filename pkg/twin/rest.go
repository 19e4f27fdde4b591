package twin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/audio"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/dedupe"
	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
)

// Capabilities reports which voice features the backend currently exposes.
type Capabilities struct {
	STTEnabled bool `json:"stt_enabled"`
	TTSEnabled bool `json:"tts_enabled"`
}

const statusCacheKey = "voice/status"

type apiClient struct {
	http      *http.Client
	log       *slog.Logger
	cache     *dedupe.Cache
	statusURL string
	listenURL string
	speakURL  string
	statusTTL time.Duration
}

func newAPIClient(cfg ServerConfig, httpClient *http.Client, log *slog.Logger) *apiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &apiClient{
		http:      httpClient,
		log:       log,
		cache:     dedupe.New(time.Duration(cfg.StatusTTLMS) * time.Millisecond),
		statusURL: base + cfg.StatusPath,
		listenURL: base + cfg.ListenPath,
		speakURL:  base + cfg.SpeakPath,
		statusTTL: time.Duration(cfg.StatusTTLMS) * time.Millisecond,
	}
}

// Status fetches backend capabilities. Concurrent callers share a single
// request and the result is cached for the configured TTL.
func (c *apiClient) Status(ctx context.Context) (Capabilities, error) {
	return dedupe.Get(ctx, c.cache, statusCacheKey, c.statusTTL, func(ctx context.Context) (Capabilities, error) {
		var caps Capabilities
		if err := c.getJSON(ctx, c.statusURL, &caps); err != nil {
			return Capabilities{}, errorsx.Wrap(fmt.Errorf("fetch voice status: %w", err), errorsx.ReasonStatusRequest)
		}
		c.log.Debug("status_fetched",
			slog.Bool("stt_enabled", caps.STTEnabled),
			slog.Bool("tts_enabled", caps.TTSEnabled))
		return caps, nil
	})
}

// InvalidateStatus forces the next Status call to hit the backend.
func (c *apiClient) InvalidateStatus() {
	c.cache.Invalidate(statusCacheKey)
}

type listenRequest struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
}

type listenResponse struct {
	Text string `json:"text"`
}

// Listen submits a complete utterance for transcription.
func (c *apiClient) Listen(ctx context.Context, pcm []byte, format string) (string, error) {
	req := listenRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(pcm),
		Format:      format,
	}
	var resp listenResponse
	if err := c.postJSON(ctx, c.listenURL, req, &resp); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("transcribe utterance: %w", err), errorsx.ReasonListenRequest)
	}
	return resp.Text, nil
}

type speakRequest struct {
	Text string `json:"text"`
}

type speakResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
}

// Speak synthesizes the given text into a playable clip.
func (c *apiClient) Speak(ctx context.Context, text string) (audio.Clip, error) {
	var resp speakResponse
	if err := c.postJSON(ctx, c.speakURL, speakRequest{Text: text}, &resp); err != nil {
		return audio.Clip{}, errorsx.Wrap(fmt.Errorf("synthesize speech: %w", err), errorsx.ReasonSpeakRequest)
	}
	data, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return audio.Clip{}, errorsx.Wrap(fmt.Errorf("decode synthesized audio: %w", err), errorsx.ReasonAudioDecode)
	}
	format := resp.Format
	if format == "" {
		format = "wav"
	}
	return audio.Clip{Data: data, Format: format}, nil
}

func (c *apiClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
