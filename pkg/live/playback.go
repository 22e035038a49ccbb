package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/stallworks/go-stallcam/pkg/audioio"
)

// levelAlpha is the exponential smoothing factor for the output level.
const levelAlpha = 0.3

// Playback queues synthesized audio for the speaker sink with jitter
// protection. Audio is held until roughly a fifth of a second has
// accumulated before the first write, trading fixed latency for gapless
// starts. If the total queued duration ever exceeds the cap, the whole
// queue is cleared rather than trimmed; partial trims fragment audibly.
type Playback struct {
	preBuffer   time.Duration
	maxBuffered time.Duration
	sink        audioio.Sink
	logger      *slog.Logger

	mu         sync.Mutex
	playing    bool
	pending    []audioio.Chunk
	pendingDur time.Duration
	level      float64
}

// NewPlayback creates a playback controller over the given sink.
func NewPlayback(cfg Config, sink audioio.Sink) *Playback {
	return &Playback{
		preBuffer:   cfg.PreBuffer,
		maxBuffered: cfg.MaxBuffered,
		sink:        sink,
		logger:      slog.Default().With("component", "playback"),
	}
}

// Enqueue accepts a PCM16 chunk, updates the smoothed output level, and
// queues or plays it depending on the pre-buffer state. Chunks arriving
// at a rate other than the sink's are resampled first so playback speed
// and the backpressure clock stay correct.
func (p *Playback) Enqueue(pcm []byte, sampleRate int) {
	if sinkRate := p.sink.Config().SampleRate; sampleRate != sinkRate {
		pcm = audioio.ResampleBytes(pcm, sampleRate, sinkRate)
		sampleRate = sinkRate
	}

	var chunk audioio.Chunk
	chunk.FromBytes(pcm, sampleRate, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = levelAlpha*chunk.Level() + (1-levelAlpha)*p.level

	if p.queuedLocked()+chunk.Duration() > p.maxBuffered {
		p.logger.Warn("playback queue overflow, clearing", "queued", p.queuedLocked())
		p.clearLocked()
	}

	if p.playing {
		p.writeLocked(chunk)
		return
	}

	p.pending = append(p.pending, chunk)
	p.pendingDur += chunk.Duration()
	if p.pendingDur >= p.preBuffer {
		for _, c := range p.pending {
			p.writeLocked(c)
		}
		p.pending = nil
		p.pendingDur = 0
		p.playing = true
	}
}

// Interrupt hard-stops playback and drops everything queued.
func (p *Playback) Interrupt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.level = 0
}

// Clear drops queued audio without resetting the level.
func (p *Playback) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

// Level returns the smoothed output loudness. It reports zero as soon as
// the queue is empty.
func (p *Playback) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queuedLocked() == 0 {
		p.level = 0
		// Drained; the next turn pre-buffers again.
		p.playing = false
	}
	return p.level
}

// Idle reports whether nothing is queued or playing.
func (p *Playback) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queuedLocked() == 0
}

// Queued returns the total duration queued across the controller and sink.
func (p *Playback) Queued() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queuedLocked()
}

func (p *Playback) queuedLocked() time.Duration {
	return p.pendingDur + p.sink.Buffered()
}

func (p *Playback) clearLocked() {
	p.pending = nil
	p.pendingDur = 0
	p.playing = false
	p.sink.Clear()
}

func (p *Playback) writeLocked(chunk audioio.Chunk) {
	if err := p.sink.Write(chunk); err != nil {
		p.logger.Warn("sink write failed", "error", err)
	}
}
