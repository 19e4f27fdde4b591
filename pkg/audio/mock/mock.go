// Package mock provides in-memory capture sources and playback sinks for
// tests.
package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/audio"
)

var ErrPermissionDenied = errors.New("microphone permission denied")

// SourceConfig scripts a capture source.
type SourceConfig struct {
	Chunks   [][]byte
	Interval time.Duration
	Deny     bool
	Format   audio.Format
}

type Source struct {
	cfg    SourceConfig
	out    chan []byte
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewSource(cfg SourceConfig) *Source {
	if cfg.Format.Tag == "" {
		cfg.Format = audio.Format{Tag: "wav", SampleRate: 16000, Channels: 1}
	}
	return &Source{cfg: cfg, out: make(chan []byte, 256)}
}

func (s *Source) Name() string         { return "mock_source" }
func (s *Source) Format() audio.Format { return s.cfg.Format }
func (s *Source) Chunks() <-chan []byte {
	return s.out
}

func (s *Source) Start(ctx context.Context) error {
	if s.cfg.Deny {
		return ErrPermissionDenied
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, chunk := range s.cfg.Chunks {
			if s.cfg.Interval > 0 {
				select {
				case <-cctx.Done():
					return
				case <-time.After(s.cfg.Interval):
				}
			}
			select {
			case s.out <- chunk:
			case <-cctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Source) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.closed.CompareAndSwap(false, true) {
		close(s.out)
	}
	return nil
}

// Sink records played clips. A non-zero Delay simulates render time so
// cancellation paths are exercisable.
type Sink struct {
	Delay time.Duration

	mu        sync.Mutex
	played    []audio.Clip
	cancelled int
}

func (s *Sink) Name() string { return "mock_sink" }

func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cancelled++
			s.mu.Unlock()
			return nil
		case <-time.After(s.Delay):
		}
	}
	s.mu.Lock()
	s.played = append(s.played, clip)
	s.mu.Unlock()
	return nil
}

func (s *Sink) Played() []audio.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.Clip, len(s.played))
	copy(out, s.played)
	return out
}

func (s *Sink) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
