package camera

import "fmt"

// Backend selects the camera implementation.
type Backend string

const (
	// BackendWebRTC pulls frames from a remote camera over WebRTC.
	BackendWebRTC Backend = "webrtc"

	// BackendMock synthesizes frames for testing.
	BackendMock Backend = "mock"
)

// Config holds camera configuration.
type Config struct {
	// Backend selects the implementation.
	Backend Backend

	// SignallingURL is the GStreamer signalling server address for the
	// webrtc backend, e.g. "ws://192.168.1.20:8443".
	SignallingURL string

	// ProducerName identifies the camera producer on the signalling server.
	ProducerName string

	// Width and Height are the frame dimensions for the mock backend.
	Width  int
	Height int
}

// DefaultConfig returns a mock camera config suitable for development.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMock,
		Width:   640,
		Height:  480,
	}
}

// Validate checks the config for invalid values.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendWebRTC:
		if c.SignallingURL == "" {
			return fmt.Errorf("camera: webrtc backend requires a signalling URL")
		}
		if c.ProducerName == "" {
			return fmt.Errorf("camera: webrtc backend requires a producer name")
		}
	case BackendMock:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("camera: invalid mock dimensions %dx%d", c.Width, c.Height)
		}
	default:
		return fmt.Errorf("camera: unknown backend %q", c.Backend)
	}
	return nil
}

// NewSource creates a camera source for the configured backend.
func NewSource(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendWebRTC:
		return NewWebRTCSource(cfg), nil
	default:
		return NewMockSource(cfg), nil
	}
}
