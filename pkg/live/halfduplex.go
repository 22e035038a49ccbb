package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// HalfDuplex suppresses the microphone path while the model is speaking so
// the session never hears its own output. Capture itself keeps running for
// level metering; only delivery to the transport is gated.
type HalfDuplex struct {
	logger   *slog.Logger
	interval time.Duration
	idle     func() bool

	mu         sync.Mutex
	speaking   bool
	emptyTicks int
}

// NewHalfDuplex creates a coordinator. idle reports whether the playback
// queue is empty; it backs the fail-safe that unmutes the microphone if a
// turn-complete signal is lost.
func NewHalfDuplex(cfg Config, idle func() bool) *HalfDuplex {
	return &HalfDuplex{
		logger:   slog.Default().With("component", "halfduplex"),
		interval: cfg.FailSafeInterval,
		idle:     idle,
	}
}

// ModelSpeaking reports whether microphone output should be discarded.
func (h *HalfDuplex) ModelSpeaking() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.speaking
}

// OnModelAudio marks the model as speaking. Called for every audio chunk
// delivered to playback.
func (h *HalfDuplex) OnModelAudio() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.speaking = true
	h.emptyTicks = 0
}

// OnTurnComplete unmutes the microphone.
func (h *HalfDuplex) OnTurnComplete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.speaking = false
}

// OnInterrupted unmutes only if the model was actually speaking, and
// reports whether the interruption was acted on. Peers emit spurious
// interrupted signals after tool-call acknowledgments; those must not
// clear playback.
func (h *HalfDuplex) OnInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.speaking {
		return false
	}
	h.speaking = false
	return true
}

// Run drives the fail-safe: if the flag is still set while playback has
// been empty for two consecutive checks, the microphone is force-unmuted.
// A single empty check is not enough; audio may still be pre-buffering.
func (h *HalfDuplex) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check()
		}
	}
}

func (h *HalfDuplex) check() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.speaking {
		h.emptyTicks = 0
		return
	}
	if !h.idle() {
		h.emptyTicks = 0
		return
	}
	h.emptyTicks++
	if h.emptyTicks >= 2 {
		h.logger.Warn("turn completion lost, force unmuting")
		h.speaking = false
		h.emptyTicks = 0
	}
}
