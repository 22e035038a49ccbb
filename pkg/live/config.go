package live

import (
	"errors"
	"time"
)

// Sentinel errors for the session lifecycle.
var (
	ErrMissingAPIKey = errors.New("live: API key required")
	ErrNotConnected  = errors.New("live: not connected")
	ErrClosed        = errors.New("live: session closed")
	ErrNoFrame       = errors.New("live: no camera frame available")
)

const (
	// defaultEndpoint is the bidirectional generative session endpoint.
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// defaultModel handles VAD, ASR, LLM and TTS in a single stream.
	defaultModel = "models/gemini-2.0-flash-exp"
)

// Config holds all tunable parameters for a live session.
// Parameters are organized by stage for clarity.
type Config struct {
	// Connection
	Endpoint string // WebSocket endpoint (default: Gemini Live)
	APIKey   string // Required
	Model    string // Model name (default: gemini-2.0-flash-exp)
	Voice    string // Synthesized voice name (default: "Puck")

	// SystemPrompt holds the session instructions for the AI.
	SystemPrompt string

	// Audio settings
	InputSampleRate  int // Microphone sample rate (default: 16000)
	OutputSampleRate int // Synthesized audio sample rate (default: 24000)

	// Outbound pacing
	FrameInterval time.Duration // Minimum interval between camera frames (default: 1s)
	AudioInterval time.Duration // Minimum interval between audio chunks (default: 10ms)
	PacerBuffer   int           // Pre-setup buffer size per media kind (default: 10)

	// Playback backpressure
	PreBuffer   time.Duration // Queued duration before playback starts (default: 220ms)
	MaxBuffered time.Duration // Queue cap; exceeding it clears everything (default: 3s)

	// Inbound dedup
	DedupWindow  time.Duration // Audio recency window (default: 100ms)
	TurnCooldown time.Duration // Repeated turn-complete suppression (default: 1s)

	// FailSafeInterval is how often the half-duplex coordinator checks for
	// a lost turn-complete signal (default: 500ms).
	FailSafeInterval time.Duration

	// KeepAlive is the WebSocket ping interval (default: 20s).
	KeepAlive time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint: defaultEndpoint,
		Model:    defaultModel,
		Voice:    "Puck",

		InputSampleRate:  16000,
		OutputSampleRate: 24000,

		FrameInterval: time.Second,
		AudioInterval: 10 * time.Millisecond,
		PacerBuffer:   10,

		PreBuffer:   220 * time.Millisecond,
		MaxBuffered: 3 * time.Second,

		DedupWindow:  100 * time.Millisecond,
		TurnCooldown: time.Second,

		FailSafeInterval: 500 * time.Millisecond,
		KeepAlive:        20 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Endpoint == "" {
		return errors.New("live: endpoint required")
	}
	if c.Model == "" {
		return errors.New("live: model required")
	}
	if c.InputSampleRate <= 0 || c.OutputSampleRate <= 0 {
		return errors.New("live: sample rates must be positive")
	}
	if c.FrameInterval < c.AudioInterval {
		return errors.New("live: frame interval must not be shorter than audio interval")
	}
	if c.PacerBuffer <= 0 {
		return errors.New("live: pacer buffer must be positive")
	}
	if c.PreBuffer <= 0 || c.MaxBuffered <= c.PreBuffer {
		return errors.New("live: playback buffer bounds invalid")
	}
	return nil
}

// WithSystemPrompt returns a copy with the system prompt set.
func (c Config) WithSystemPrompt(prompt string) Config {
	c.SystemPrompt = prompt
	return c
}

// WithVoice returns a copy with the voice set.
func (c Config) WithVoice(voice string) Config {
	c.Voice = voice
	return c
}
