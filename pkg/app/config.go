// Package app assembles the stallcam capture agent: camera and
// microphone adapters, the live session, listing persistence and the
// web dashboard.
package app

import (
	"github.com/stallworks/go-stallcam/internal/config"
	"github.com/stallworks/go-stallcam/pkg/audioio"
	"github.com/stallworks/go-stallcam/pkg/camera"
)

// Default configuration values.
const (
	DefaultWebPort      = "8090"
	DefaultSystemPrompt = "You are a friendly market-stall assistant helping a seller list items " +
		"for sale. The seller shows you items and talks about them. Capture reference photos when " +
		"an item is shown, ask short questions to learn the title, price and condition, and " +
		"finalize the listing once you know enough. When a new item appears, finalize the " +
		"previous one first. Keep replies brief; the seller is busy running a stall."
)

// Config holds all configuration for the stallcam application.
// Flag parsing is done in cmd/stallcam/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// APIKey authenticates the live session (GEMINI_API_KEY).
	APIKey string

	// Model and voice overrides for the live session.
	Model string
	Voice string

	// SystemPrompt holds the session instructions.
	SystemPrompt string

	// PipelineURL is the listing finalize service. Empty selects an
	// in-process mock for offline development.
	PipelineURL string
	PipelineKey string

	// Camera settings.
	CameraBackend camera.Backend
	SignallingURL string
	ProducerName  string

	// Audio settings.
	AudioBackend  audioio.Backend
	MicDevice     string
	SpeakerDevice string

	// WebPort is the dashboard listen port.
	WebPort string

	// StorePath overrides the listing store location
	// (default: ~/.stallcam/listings.json).
	StorePath string

	// Google OAuth for the Docs export integration.
	GoogleClientID     string
	GoogleClientSecret string
}

// DefaultConfig returns sensible defaults for stallcam configuration.
func DefaultConfig() Config {
	return Config{
		SystemPrompt:  DefaultSystemPrompt,
		CameraBackend: camera.BackendMock,
		AudioBackend:  audioio.BackendAuto,
		WebPort:       DefaultWebPort,
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	// Flags win over environment; env fills what flags left empty.
	if c.APIKey == "" {
		c.APIKey = config.Env("GEMINI_API_KEY", "")
	}
	if c.PipelineURL == "" {
		c.PipelineURL = config.Env("STALLCAM_PIPELINE_URL", "")
	}
	if c.PipelineKey == "" {
		c.PipelineKey = config.Env("STALLCAM_PIPELINE_KEY", "")
	}
	if c.SignallingURL == "" {
		c.SignallingURL = config.Env("STALLCAM_SIGNALLING_URL", "")
	}
	c.Debug = config.EnvBool("STALLCAM_DEBUG", c.Debug)
	c.GoogleClientID = config.Env("GOOGLE_CLIENT_ID", "")
	c.GoogleClientSecret = config.Env("GOOGLE_CLIENT_SECRET", "")
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "APIKey", Message: "GEMINI_API_KEY environment variable is required"}
	}
	if c.CameraBackend == camera.BackendWebRTC && c.SignallingURL == "" {
		return &ConfigError{Field: "SignallingURL", Message: "STALLCAM_SIGNALLING_URL is required for the webrtc camera backend"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
