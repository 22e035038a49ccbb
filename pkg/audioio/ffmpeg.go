package audioio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// FFmpegSource captures microphone audio through an ffmpeg subprocess,
// reading raw s16le PCM from its stdout.
type FFmpegSource struct {
	cfg    Config
	stream chan Chunk

	mu      sync.Mutex
	running bool
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	done    chan struct{}
	stats   SourceStats
}

var _ Source = (*FFmpegSource)(nil)

// NewFFmpegSource creates an ffmpeg-backed capture source.
func NewFFmpegSource(cfg Config) *FFmpegSource {
	return &FFmpegSource{
		cfg:    cfg,
		stream: make(chan Chunk, 16),
	}
}

func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("ffmpeg source: already started")
	}

	inputFmt, device := captureInput(s.cfg.Device)
	runCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(runCtx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", inputFmt,
		"-i", device,
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-ac", fmt.Sprintf("%d", s.cfg.Channels),
		"-f", "s16le",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg source: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg source: start: %w", err)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.readLoop(stdout)
	return nil
}

func (s *FFmpegSource) readLoop(stdout io.Reader) {
	defer close(s.done)
	defer close(s.stream)

	buf := make([]byte, s.cfg.ChunkBytes())
	for {
		if _, err := io.ReadFull(stdout, buf); err != nil {
			return
		}
		var chunk Chunk
		chunk.FromBytes(buf, s.cfg.SampleRate, s.cfg.Channels)

		s.mu.Lock()
		s.stats.ChunksCaptured++
		s.stats.BytesCaptured += uint64(len(buf))
		s.mu.Unlock()

		select {
		case s.stream <- chunk:
		default:
			s.mu.Lock()
			s.stats.ChunksDropped++
			s.mu.Unlock()
		}
	}
}

func (s *FFmpegSource) Stream() <-chan Chunk { return s.stream }

func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	_ = cmd.Wait()
	return nil
}

func (s *FFmpegSource) Config() Config { return s.cfg }
func (s *FFmpegSource) Name() string   { return "ffmpeg" }

// Stats returns a snapshot of capture counters.
func (s *FFmpegSource) Stats() SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// captureInput returns the ffmpeg input format and device for this platform.
func captureInput(device string) (string, string) {
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return "avfoundation", device
	default:
		if device == "" {
			device = "default"
		}
		return "alsa", device
	}
}

// FFmpegSink plays audio by piping raw s16le PCM into an ffplay subprocess.
type FFmpegSink struct {
	cfg Config

	mu       sync.Mutex
	running  bool
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	cancel   context.CancelFunc
	buffered time.Duration
	lastTick time.Time
	stats    SinkStats
}

var _ Sink = (*FFmpegSink)(nil)

// NewFFmpegSink creates an ffplay-backed playback sink.
func NewFFmpegSink(cfg Config) *FFmpegSink {
	return &FFmpegSink{cfg: cfg}
}

func (s *FFmpegSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("ffmpeg sink: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, "ffplay",
		"-hide_banner", "-loglevel", "error",
		"-nodisp", "-autoexit",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-ch_layout", "mono",
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg sink: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg sink: start: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.cancel = cancel
	s.running = true
	s.lastTick = time.Now()
	return nil
}

func (s *FFmpegSink) Write(chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("ffmpeg sink: not started")
	}
	data := chunk.Bytes()
	if _, err := s.stdin.Write(data); err != nil {
		return fmt.Errorf("ffmpeg sink: write: %w", err)
	}
	s.drainLocked()
	s.buffered += chunk.Duration()
	s.stats.ChunksPlayed++
	s.stats.BytesPlayed += uint64(len(data))
	return nil
}

func (s *FFmpegSink) drainLocked() {
	now := time.Now()
	s.buffered -= now.Sub(s.lastTick)
	s.lastTick = now
	if s.buffered < 0 {
		s.buffered = 0
	}
}

func (s *FFmpegSink) Buffered() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()
	return s.buffered
}

// Clear restarts the playback process to drop queued audio. ffplay has no
// flush control, so the process is killed and relaunched on the next Start.
func (s *FFmpegSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stats.ChunksCleared += s.stats.ChunksPlayed
	s.buffered = 0
	s.cancel()
	_ = s.stdin.Close()
	_ = s.cmd.Wait()
	s.running = false

	// Relaunch immediately so subsequent writes keep working.
	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, "ffplay",
		"-hide_banner", "-loglevel", "error",
		"-nodisp", "-autoexit",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-ch_layout", "mono",
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return
	}
	s.cmd = cmd
	s.stdin = stdin
	s.cancel = cancel
	s.running = true
	s.lastTick = time.Now()
}

func (s *FFmpegSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	_ = s.stdin.Close()
	err := s.cmd.Wait()
	s.cancel()
	if err != nil {
		return fmt.Errorf("ffmpeg sink: stop: %w", err)
	}
	return nil
}

func (s *FFmpegSink) Config() Config { return s.cfg }
func (s *FFmpegSink) Name() string   { return "ffmpeg" }
