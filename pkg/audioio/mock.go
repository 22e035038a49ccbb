package audioio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MockSource generates synthetic audio chunks at the configured rate.
// By default it emits silence; use WithSineWave for a test tone.
type MockSource struct {
	cfg    Config
	freq   float64
	phase  float64
	stream chan Chunk

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ Source = (*MockSource)(nil)

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave makes the source emit a sine tone at freq Hz instead of silence.
func WithSineWave(freq float64) MockSourceOption {
	return func(s *MockSource) { s.freq = freq }
}

// NewMockSource creates a mock capture source.
func NewMockSource(cfg Config, opts ...MockSourceOption) *MockSource {
	s := &MockSource{
		cfg:    cfg,
		stream: make(chan Chunk, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MockSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("mock source: already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(runCtx)
	return nil
}

func (s *MockSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.stream)

	ticker := time.NewTicker(s.cfg.ChunkDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			chunk := s.generate()
			select {
			case s.stream <- chunk:
			default:
				// Consumer is behind; drop rather than block the clock.
			}
		}
	}
}

func (s *MockSource) generate() Chunk {
	n := s.cfg.ChunkSamples()
	samples := make([]int16, n)
	if s.freq > 0 {
		step := 2 * math.Pi * s.freq / float64(s.cfg.SampleRate)
		for i := range samples {
			samples[i] = int16(16000 * math.Sin(s.phase))
			s.phase += step
		}
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi * math.Floor(s.phase/(2*math.Pi))
		}
	}
	return Chunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}
}

func (s *MockSource) Stream() <-chan Chunk { return s.stream }

func (s *MockSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (s *MockSource) Config() Config { return s.cfg }
func (s *MockSource) Name() string   { return "mock" }

// MockSink records written chunks and simulates playback timing by
// draining its buffered duration against a wall clock.
type MockSink struct {
	cfg Config

	mu       sync.Mutex
	running  bool
	written  []Chunk
	buffered time.Duration
	lastTick time.Time
	stats    SinkStats
}

var _ Sink = (*MockSink)(nil)

// NewMockSink creates a mock playback sink.
func NewMockSink(cfg Config) *MockSink {
	return &MockSink{cfg: cfg}
}

func (s *MockSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.lastTick = time.Now()
	return nil
}

func (s *MockSink) Write(chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("mock sink: not started")
	}
	s.drainLocked()
	s.written = append(s.written, chunk)
	s.buffered += chunk.Duration()
	s.stats.ChunksPlayed++
	s.stats.BytesPlayed += uint64(len(chunk.Samples) * 2)
	return nil
}

// drainLocked advances the simulated playback position.
func (s *MockSink) drainLocked() {
	now := time.Now()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	s.buffered -= elapsed
	if s.buffered < 0 {
		s.buffered = 0
	}
}

func (s *MockSink) Buffered() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()
	return s.buffered
}

func (s *MockSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ChunksCleared += uint64(len(s.written))
	s.written = nil
	s.buffered = 0
}

func (s *MockSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSink) Config() Config { return s.cfg }
func (s *MockSink) Name() string   { return "mock" }

// Written returns a copy of all chunks written since the last Clear.
func (s *MockSink) Written() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.written))
	copy(out, s.written)
	return out
}

// Stats returns a snapshot of playback counters.
func (s *MockSink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
