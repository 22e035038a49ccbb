package app

import (
	"testing"

	"github.com/stallworks/go-stallcam/pkg/camera"
)

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without API key")
	}

	cfg.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateWebRTCNeedsSignalling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.CameraBackend = camera.BackendWebRTC

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without signalling URL")
	}

	cfg.SignallingURL = "ws://localhost:8443"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CameraBackend != camera.BackendMock {
		t.Errorf("default camera backend = %q, want mock", cfg.CameraBackend)
	}
	if cfg.WebPort != DefaultWebPort {
		t.Errorf("default port = %q, want %q", cfg.WebPort, DefaultWebPort)
	}
	if cfg.SystemPrompt == "" {
		t.Error("default system prompt is empty")
	}
}
