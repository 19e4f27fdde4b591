package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/errorsx"
)

// FileSource replays a WAV file as a capture device, pacing chunks in real
// time. It stands in for a microphone in headless runs and demos.
type FileSource struct {
	path    string
	chunkMS int

	mu     sync.Mutex
	format Format
	out    chan []byte
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewFileSource(path string, chunkMS int) *FileSource {
	if chunkMS <= 0 {
		chunkMS = 100
	}
	return &FileSource{
		path:    path,
		chunkMS: chunkMS,
		out:     make(chan []byte, 64),
		format:  Format{Tag: "wav", SampleRate: 16000, Channels: 1},
	}
}

func (s *FileSource) Name() string { return "wav_file" }

func (s *FileSource) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

func (s *FileSource) Chunks() <-chan []byte { return s.out }

func (s *FileSource) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonCaptureRead)
	}
	pcm, rate, err := DecodeWAVPCM16LE(raw)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonCaptureRead)
	}

	s.mu.Lock()
	s.format = Format{Tag: "wav", SampleRate: rate, Channels: 1}
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	chunkBytes := rate * 2 * s.chunkMS / 1000
	if chunkBytes <= 0 {
		chunkBytes = 1600
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Duration(s.chunkMS) * time.Millisecond)
		defer ticker.Stop()
		for off := 0; off < len(pcm); off += chunkBytes {
			end := off + chunkBytes
			if end > len(pcm) {
				end = len(pcm)
			}
			select {
			case <-cctx.Done():
				return
			case <-ticker.C:
			}
			chunk, err := EncodeWAVPCM16LE(pcm[off:end], rate)
			if err != nil {
				return
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

func (s *FileSource) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if s.closed.CompareAndSwap(false, true) {
		close(s.out)
	}
	return nil
}

// FileSink renders clips by writing them under a directory, one file per
// utterance. WAV clips are paced so playback takes roughly as long as the
// audio itself, which keeps interrupt behavior observable in demos.
type FileSink struct {
	dir string
	seq atomic.Int64
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Name() string { return "wav_dir" }

func (s *FileSink) Play(ctx context.Context, clip Clip) error {
	if ctx == nil {
		ctx = context.Background()
	}
	n := s.seq.Add(1)
	ext := clip.Format
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("utterance-%03d.%s", n, ext))
	if err := os.WriteFile(path, clip.Data, 0o644); err != nil {
		return err
	}
	if d := clipDuration(clip); d > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(d):
		}
	}
	return nil
}

func clipDuration(clip Clip) time.Duration {
	if clip.Format != "wav" {
		return 0
	}
	pcm, rate, err := DecodeWAVPCM16LE(clip.Data)
	if err != nil || rate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
