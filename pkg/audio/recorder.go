package audio

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
)

// Mode selects how captured audio leaves the recorder.
type Mode int

const (
	// ModeBuffer concatenates all chunks locally; the full payload is
	// returned once on Stop (push-to-talk).
	ModeBuffer Mode = iota
	// ModeStream flushes accumulated audio through the emit callback on a
	// fixed interval (live mode).
	ModeStream
)

const DefaultChunkInterval = 500 * time.Millisecond

// Recorder owns one capture source. At most one recording span is open at a
// time; Start while recording is a no-op.
type Recorder struct {
	src      Source
	interval time.Duration
	log      *slog.Logger

	mu        sync.Mutex
	recording bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
	buf       bytes.Buffer
}

func NewRecorder(src Source, interval time.Duration, log *slog.Logger) *Recorder {
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{src: src, interval: interval, log: log}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) Format() Format { return r.src.Format() }

// Start opens the capture device and begins a turn. A permission failure
// degrades: the recorder stays stopped and the error carries the
// mic_permission reason for the caller's warn log.
func (r *Recorder) Start(ctx context.Context, mode Mode, emit func([]byte)) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.src.Start(ctx); err != nil {
		r.log.Warn("capture_start_failed",
			slog.String("source", r.src.Name()),
			slog.String("reason_code", string(errorsx.ReasonMicPermission)),
			slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonMicPermission)
	}

	r.mu.Lock()
	r.recording = true
	r.stopCh = make(chan struct{})
	r.buf.Reset()
	stopCh := r.stopCh
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop(mode, emit, stopCh)
	return nil
}

// Stop ends the turn. In ModeBuffer the concatenated payload of the whole
// turn is returned; in ModeStream any pending audio is flushed through emit
// before Stop returns, so the caller can order its end-of-turn signal after
// the final chunk.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	close(r.stopCh)
	r.mu.Unlock()

	_ = r.src.Close()
	r.wg.Wait()

	if r.buf.Len() == 0 {
		return nil
	}
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	r.buf.Reset()
	return out
}

func (r *Recorder) loop(mode Mode, emit func([]byte), stopCh chan struct{}) {
	defer r.wg.Done()

	if mode == ModeBuffer {
		for {
			select {
			case <-stopCh:
				r.drain()
				return
			case chunk, ok := <-r.src.Chunks():
				if !ok {
					return
				}
				r.buf.Write(chunk)
			}
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	var pending []byte
	flush := func() {
		if len(pending) > 0 && emit != nil {
			emit(pending)
			pending = nil
		}
	}
	for {
		select {
		case <-stopCh:
			flush()
			return
		case chunk, ok := <-r.src.Chunks():
			if !ok {
				flush()
				return
			}
			pending = append(pending, chunk...)
		case <-ticker.C:
			flush()
		}
	}
}

// drain collects chunks already produced before the source closed.
func (r *Recorder) drain() {
	for {
		select {
		case chunk, ok := <-r.src.Chunks():
			if !ok {
				return
			}
			r.buf.Write(chunk)
		default:
			return
		}
	}
}
