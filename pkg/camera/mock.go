package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
)

// MockSource synthesizes JPEG frames. Each call to Frame encodes a gradient
// that shifts over time, so consecutive frames differ.
type MockSource struct {
	cfg Config

	mu      sync.Mutex
	running bool
	started time.Time
	seq     int
}

var _ Source = (*MockSource)(nil)

// NewMockSource creates a mock camera.
func NewMockSource(cfg Config) *MockSource {
	return &MockSource{cfg: cfg}
}

func (s *MockSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.started = time.Now()
	return nil
}

func (s *MockSource) Frame() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return Frame{}, ErrNoFrame
	}
	s.seq++
	data, err := s.encode(s.seq)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, CapturedAt: time.Now()}, nil
}

func (s *MockSource) WaitFrame(timeout time.Duration) (Frame, error) {
	return s.Frame()
}

func (s *MockSource) encode(seq int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
	for y := 0; y < s.cfg.Height; y++ {
		for x := 0; x < s.cfg.Width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + seq) % 256),
				G: uint8((y + seq) % 256),
				B: uint8(seq % 256),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *MockSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) Name() string { return "mock" }
