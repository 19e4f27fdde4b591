package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
)

// Player renders synthesized speech through a Sink. At most one clip is
// active per player; starting a new one stops the previous first.
type Player struct {
	sink       Sink
	log        *slog.Logger
	onComplete func(Clip)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer wires a sink and an optional completion hook. The hook fires only
// when a clip ran to its natural end, never after Stop or supersession.
func NewPlayer(sink Sink, log *slog.Logger, onComplete func(Clip)) *Player {
	if log == nil {
		log = slog.Default()
	}
	return &Player{sink: sink, log: log, onComplete: onComplete}
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Play starts rendering a clip, cancelling any active playback first.
func (p *Player) Play(ctx context.Context, clip Clip) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.Stop()

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := p.sink.Play(cctx, clip); err != nil {
			if cctx.Err() == nil {
				p.log.Warn("playback_failed",
					slog.String("sink", p.sink.Name()),
					slog.String("reason_code", string(errorsx.ReasonPlayback)),
					slog.String("error", err.Error()))
			}
			return
		}
		if cctx.Err() != nil {
			return
		}
		if p.onComplete != nil {
			p.onComplete(clip)
		}
	}()
}

// Stop cancels the active playback, if any, and waits for it to wind down.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
