// Package camera provides still-frame capture for stallcam.
//
// A Source produces JPEG frames on demand. The webrtc backend pulls frames
// from a remote camera over a GStreamer-style signalling server; the mock
// backend synthesizes frames for testing.
package camera

import (
	"context"
	"errors"
	"time"
)

// ErrNoFrame is returned when no frame has been captured yet.
var ErrNoFrame = errors.New("camera: no frame available")

// Frame is a single captured image.
type Frame struct {
	// Data is the JPEG-encoded image.
	Data []byte

	// CapturedAt is when the frame was captured.
	CapturedAt time.Time
}

// Source captures frames from a camera device.
type Source interface {
	// Start connects to the device and begins capturing.
	Start(ctx context.Context) error

	// Frame returns the most recent captured frame. Returns ErrNoFrame if
	// nothing has been captured since Start.
	Frame() (Frame, error)

	// WaitFrame blocks until a frame is available or the timeout expires.
	WaitFrame(timeout time.Duration) (Frame, error)

	// Stop disconnects from the device.
	Stop() error

	// Name returns a human-readable backend name for logging.
	Name() string
}
