package audioio

import "context"

// Source captures audio chunks from an input device.
type Source interface {
	// Start begins capture. It must be called before Stream.
	Start(ctx context.Context) error

	// Stream returns the channel of captured chunks. The channel is closed
	// when capture stops.
	Stream() <-chan Chunk

	// Stop halts capture and closes the stream channel.
	Stop() error

	// Config returns the source's configuration.
	Config() Config

	// Name returns a human-readable backend name for logging.
	Name() string
}

// SourceStats tracks capture counters.
type SourceStats struct {
	ChunksCaptured uint64
	ChunksDropped  uint64
	BytesCaptured  uint64
}
