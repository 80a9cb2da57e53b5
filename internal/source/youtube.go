package source

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// PCMSink receives raw 16-kHz mono s16le PCM frames tagged with a feed id,
// implemented by the VOX Recorder.
type PCMSink func(feedID string, frame []byte)

// YouTubeAudioSource spawns ffmpeg to decode a livestream's audio track to
// 16-kHz mono PCM and hands frames to a PCMSink. The subprocess is restarted
// with exponential backoff, capped at 60s, whenever it exits.
type YouTubeAudioSource struct {
	feedID    string
	streamURL string
	sink      PCMSink
	log       zerolog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	lastErr   atomic.Value // string
	frames    atomic.Int64
}

func NewYouTubeAudioSource(feedID, streamURL string, sink PCMSink, log zerolog.Logger) *YouTubeAudioSource {
	s := &YouTubeAudioSource{
		feedID:    feedID,
		streamURL: streamURL,
		sink:      sink,
		log:       log.With().Str("source", "youtube").Str("feed_id", feedID).Logger(),
	}
	s.lastErr.Store("")
	return s
}

func (s *YouTubeAudioSource) Name() string { return "youtube:" + s.feedID }

func (s *YouTubeAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.supervise(runCtx)
	return nil
}

func (s *YouTubeAudioSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("youtube source %s: stop timed out", s.feedID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *YouTubeAudioSource) Stats() Stats {
	return Stats{
		Connected:    s.connected.Load(),
		LastUpdate:   time.Now().UTC(),
		MessageCount: s.frames.Load(),
		LastError:    s.lastErr.Load().(string),
	}
}

// supervise runs ffmpeg, restarting it with exponential backoff capped at
// 60s on every exit, until the context is canceled.
func (s *YouTubeAudioSource) supervise(ctx context.Context) {
	defer close(s.done)
	backoff := time.Second

	for ctx.Err() == nil {
		err := s.runOnce(ctx)
		s.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.lastErr.Store(err.Error())
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("ffmpeg exited, restarting")
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > 60*time.Second {
			backoff = 60 * time.Second
		}
	}
}

func (s *YouTubeAudioSource) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-loglevel", "error",
		"-i", s.streamURL,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "s16le",
		"pipe:1",
	)
	// On cancellation ask ffmpeg to exit, and kill it if it is still running 3s later.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = 3 * time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.connected.Store(true)

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			s.frames.Add(1)
			s.sink(s.feedID, frame)
		}
		if err != nil {
			if err != io.EOF {
				_ = cmd.Wait()
				return err
			}
			break
		}
	}
	return cmd.Wait()
}
