package audioio

import (
	"context"
	"time"
)

// Sink plays audio chunks on an output device.
type Sink interface {
	// Start prepares the device for playback.
	Start(ctx context.Context) error

	// Write enqueues a chunk for playback. It blocks only if the device
	// buffer is full.
	Write(chunk Chunk) error

	// Buffered returns the duration of audio queued but not yet played.
	Buffered() time.Duration

	// Clear drops all queued audio without playing it.
	Clear()

	// Stop flushes remaining audio and releases the device.
	Stop() error

	// Config returns the sink's configuration.
	Config() Config

	// Name returns a human-readable backend name for logging.
	Name() string
}

// SinkStats tracks playback counters.
type SinkStats struct {
	ChunksPlayed  uint64
	ChunksCleared uint64
	BytesPlayed   uint64
}
