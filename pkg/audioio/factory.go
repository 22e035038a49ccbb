package audioio

import (
	"fmt"
	"os/exec"
)

// NewSource creates a capture source for the configured backend.
func NewSource(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch resolveBackend(cfg.Backend) {
	case BackendFFmpeg:
		return NewFFmpegSource(cfg), nil
	case BackendMock:
		return NewMockSource(cfg), nil
	default:
		return nil, fmt.Errorf("audioio: no capture backend available")
	}
}

// NewSink creates a playback sink for the configured backend.
func NewSink(cfg Config) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch resolveBackend(cfg.Backend) {
	case BackendFFmpeg:
		return NewFFmpegSink(cfg), nil
	case BackendMock:
		return NewMockSink(cfg), nil
	default:
		return nil, fmt.Errorf("audioio: no playback backend available")
	}
}

func resolveBackend(b Backend) Backend {
	if b != BackendAuto {
		return b
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		return BackendFFmpeg
	}
	return BackendMock
}
