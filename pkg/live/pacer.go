package live

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ChunkKind tags an outbound media chunk.
type ChunkKind int

const (
	ChunkFrame ChunkKind = iota
	ChunkAudio
)

// OutboundChunk is one paced media chunk headed for the transport.
type OutboundChunk struct {
	Kind       ChunkKind
	Data       []byte
	MimeType   string
	SampleRate int
	EnqueuedAt time.Time
}

// Pacer throttles outbound media to configured per-kind intervals and holds
// a small bounded buffer until the session completes setup. Frames arriving
// faster than the frame interval are dropped, never queued; stale frames
// have no value. Audio arriving early is queued and drained in order.
type Pacer struct {
	frameInterval time.Duration
	audioInterval time.Duration
	bufferLimit   int
	send          func(OutboundChunk) error
	logger        *slog.Logger
	now           func() time.Time

	mu         sync.Mutex
	ready      bool
	lastFrame  time.Time
	lastAudio  time.Time
	heldFrames []OutboundChunk
	heldAudio  []OutboundChunk

	framesSent    atomic.Int64
	framesDropped atomic.Int64
	audioSent     atomic.Int64
	audioDropped  atomic.Int64
}

// NewPacer creates a pacer that forwards chunks through send once ready.
func NewPacer(cfg Config, send func(OutboundChunk) error) *Pacer {
	return &Pacer{
		frameInterval: cfg.FrameInterval,
		audioInterval: cfg.AudioInterval,
		bufferLimit:   cfg.PacerBuffer,
		send:          send,
		logger:        slog.Default().With("component", "pacer"),
		now:           time.Now,
	}
}

// SubmitFrame offers an encoded camera frame. Frames inside the throttle
// interval are dropped.
func (p *Pacer) SubmitFrame(data []byte, mimeType string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.lastFrame.IsZero() && now.Sub(p.lastFrame) < p.frameInterval {
		p.framesDropped.Add(1)
		return
	}
	p.lastFrame = now

	chunk := OutboundChunk{Kind: ChunkFrame, Data: data, MimeType: mimeType, EnqueuedAt: now}
	if !p.ready {
		p.holdLocked(&p.heldFrames, chunk)
		return
	}
	p.forwardLocked(chunk)
}

// SubmitAudio offers a PCM chunk. Early chunks are queued, not dropped, and
// drained in order as the interval allows.
func (p *Pacer) SubmitAudio(data []byte, sampleRate int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	chunk := OutboundChunk{Kind: ChunkAudio, Data: data, SampleRate: sampleRate, MimeType: "audio/pcm", EnqueuedAt: now}
	if !p.ready {
		p.holdLocked(&p.heldAudio, chunk)
		return
	}

	if !p.lastAudio.IsZero() && now.Sub(p.lastAudio) < p.audioInterval {
		p.holdLocked(&p.heldAudio, chunk)
		return
	}

	// Drain anything queued first so order is preserved.
	p.drainAudioLocked()
	p.lastAudio = p.now()
	p.forwardLocked(chunk)
}

// SetReady marks setup complete and flushes held media: only the newest
// frame, but all audio in submission order.
func (p *Pacer) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return
	}
	p.ready = true

	if n := len(p.heldFrames); n > 0 {
		if n > 1 {
			p.framesDropped.Add(int64(n - 1))
		}
		p.forwardLocked(p.heldFrames[n-1])
		p.heldFrames = nil
	}
	p.drainAudioLocked()
	p.logger.Debug("pacer flushed", "frames_sent", p.framesSent.Load(), "audio_sent", p.audioSent.Load())
}

// Reset discards held media and returns to the not-ready state.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = false
	p.heldFrames = nil
	p.heldAudio = nil
	p.lastFrame = time.Time{}
	p.lastAudio = time.Time{}
}

// Stats returns cumulative pacing counters.
func (p *Pacer) Stats() (framesSent, framesDropped, audioSent, audioDropped int64) {
	return p.framesSent.Load(), p.framesDropped.Load(), p.audioSent.Load(), p.audioDropped.Load()
}

func (p *Pacer) holdLocked(buf *[]OutboundChunk, chunk OutboundChunk) {
	if len(*buf) >= p.bufferLimit {
		*buf = (*buf)[1:]
		if chunk.Kind == ChunkFrame {
			p.framesDropped.Add(1)
		} else {
			p.audioDropped.Add(1)
		}
	}
	*buf = append(*buf, chunk)
}

func (p *Pacer) drainAudioLocked() {
	for _, chunk := range p.heldAudio {
		p.forwardLocked(chunk)
	}
	p.heldAudio = nil
}

func (p *Pacer) forwardLocked(chunk OutboundChunk) {
	if err := p.send(chunk); err != nil {
		p.logger.Warn("send failed", "kind", chunk.Kind, "error", err)
		return
	}
	if chunk.Kind == ChunkFrame {
		p.framesSent.Add(1)
	} else {
		p.audioSent.Add(1)
	}
}
