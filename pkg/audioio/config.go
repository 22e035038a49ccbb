package audioio

import (
	"fmt"
	"time"
)

// Backend selects the audio implementation.
type Backend string

const (
	// BackendAuto picks the best available backend for the platform.
	BackendAuto Backend = "auto"

	// BackendFFmpeg captures and plays audio through an ffmpeg subprocess.
	BackendFFmpeg Backend = "ffmpeg"

	// BackendMock generates synthetic audio for testing.
	BackendMock Backend = "mock"
)

// Config holds audio device configuration shared by sources and sinks.
type Config struct {
	// Backend selects the implementation. Default: BackendAuto.
	Backend Backend

	// SampleRate in Hz. Capture typically runs at 16000, playback at 24000.
	SampleRate int

	// Channels is the channel count. Only mono is supported.
	Channels int

	// ChunkDuration is the duration of each captured chunk.
	ChunkDuration time.Duration

	// Device is the backend-specific device name. Empty means default device.
	Device string
}

// DefaultCaptureConfig returns a config suitable for microphone capture.
func DefaultCaptureConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    16000,
		Channels:      1,
		ChunkDuration: 20 * time.Millisecond,
	}
}

// DefaultPlaybackConfig returns a config suitable for speaker playback.
func DefaultPlaybackConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    24000,
		Channels:      1,
		ChunkDuration: 20 * time.Millisecond,
	}
}

// Validate checks the config for invalid values.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audioio: invalid sample rate %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("audioio: unsupported channel count %d (mono only)", c.Channels)
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("audioio: invalid chunk duration %v", c.ChunkDuration)
	}
	switch c.Backend {
	case BackendAuto, BackendFFmpeg, BackendMock:
	default:
		return fmt.Errorf("audioio: unknown backend %q", c.Backend)
	}
	return nil
}

// ChunkSamples returns the number of samples per chunk.
func (c Config) ChunkSamples() int {
	return int(float64(c.SampleRate*c.Channels) * c.ChunkDuration.Seconds())
}

// ChunkBytes returns the number of PCM16 bytes per chunk.
func (c Config) ChunkBytes() int {
	return c.ChunkSamples() * 2
}
