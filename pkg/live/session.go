// Package live implements the real-time streaming session between the
// device and the multimodal inference peer: outbound media pacing,
// transport lifecycle, inbound event demultiplexing, playback
// backpressure, half-duplex microphone gating and asynchronous tool-call
// orchestration.
package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stallworks/go-stallcam/pkg/audioio"
	"github.com/stallworks/go-stallcam/pkg/pipeline"
)

// Status summarizes the session for UI purposes.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusListening  Status = "listening"
	StatusSpeaking   Status = "speaking"
	StatusOffline    Status = "offline"
)

// Session is the host-facing facade over one device-to-peer session. One
// session per device; Start after Stop requires a new Session.
type Session struct {
	cfg    Config
	logger *slog.Logger

	transport *Transport
	pacer     *Pacer
	demux     *Demux
	playback  *Playback
	duplex    *HalfDuplex
	orch      *Orchestrator

	cancel context.CancelFunc

	mu         sync.Mutex
	started    bool
	inputLevel float64
	lastFrame  []byte

	onState      func(State)
	onLevels     func(input, output float64, status Status)
	onText       func(string)
	onTranscript func(text string, fromUser bool, finished bool)
	onError      func(detail string)
}

// NewSession assembles a session over the given speaker sink and listing
// pipeline.
func NewSession(cfg Config, sink audioio.Sink, pipe pipeline.Pipeline) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		logger: slog.Default().With("component", "session"),
	}

	s.transport = NewTransport(cfg)
	s.demux = NewDemux(cfg)
	s.playback = NewPlayback(cfg, sink)
	s.duplex = NewHalfDuplex(cfg, s.playback.Idle)
	s.pacer = NewPacer(cfg, s.sendChunk)
	s.orch = NewOrchestrator(pipe, s.transport.SendToolResponse, s.latestFrame)

	s.transport.OnMessage(s.handleRaw)
	s.transport.OnState(func(state State) {
		s.mu.Lock()
		fn := s.onState
		s.mu.Unlock()
		if fn != nil {
			fn(state)
		}
	})
	s.transport.OnError(func(err error) {
		s.logger.Warn("transport fault", "error", err)
		s.emitError(err.Error())
	})

	return s, nil
}

// OnState sets the connection state callback.
func (s *Session) OnState(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = fn
}

// OnLevels sets the periodic input/output level callback.
func (s *Session) OnLevels(fn func(input, output float64, status Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLevels = fn
}

// OnText sets the callback for text fragments of the model's response.
func (s *Session) OnText(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onText = fn
}

// OnTranscript sets the callback for speech transcriptions, both the
// user's and the model's.
func (s *Session) OnTranscript(fn func(text string, fromUser bool, finished bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTranscript = fn
}

// OnError sets the callback for peer and transport faults. The session
// keeps running after a fault; the host decides what to show the user.
func (s *Session) OnError(fn func(detail string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// OnFinalizeResult sets the callback for background finalize outcomes.
func (s *Session) OnFinalizeResult(fn func(FinalizeResult)) {
	s.orch.OnResult(fn)
}

// RegisterTool adds a custom tool. Must be called before Start.
func (s *Session) RegisterTool(t Tool) {
	s.orch.RegisterTool(t)
}

// State returns the current connection state.
func (s *Session) State() State {
	return s.transport.State()
}

// CurrentSubject returns the subject reference being tracked, if any.
func (s *Session) CurrentSubject() string {
	return s.orch.CurrentSubject()
}

// CaptureCount returns how many reference photos are held for the
// tracked subject.
func (s *Session) CaptureCount() int {
	subject := s.orch.CurrentSubject()
	if subject == "" {
		return 0
	}
	return len(s.orch.Captures(subject))
}

// Start connects to the peer and begins the session loops. Calling Start
// while already started is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.transport.SetToolDeclarations(s.orch.Declarations())
	if err := s.transport.Connect(ctx); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.duplex.Run(runCtx)
	go s.levelLoop(runCtx)
	return nil
}

// Stop closes the session and synchronously releases all session-scoped
// state. Idempotent. In-flight finalize work is allowed to complete; its
// results are discarded.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.lastFrame = nil
	s.inputLevel = 0
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	err := s.transport.Close()
	s.playback.Interrupt()
	s.pacer.Reset()
	s.demux.Reset()
	s.orch.Close()
	return err
}

// SubmitFrame offers an encoded camera frame from the capture adapter.
func (s *Session) SubmitFrame(data []byte, mimeType string) {
	s.mu.Lock()
	s.lastFrame = data
	s.mu.Unlock()
	s.pacer.SubmitFrame(data, mimeType)
}

// SubmitAudio offers a microphone PCM chunk with its loudness level.
// While the model is speaking, the chunk is discarded rather than sent so
// the session never hears its own output; capture keeps running and the
// level still feeds the meter.
func (s *Session) SubmitAudio(pcm []byte, sampleRate int, level float64) {
	s.mu.Lock()
	s.inputLevel = levelAlpha*level + (1-levelAlpha)*s.inputLevel
	s.mu.Unlock()

	if s.duplex.ModelSpeaking() {
		return
	}
	s.pacer.SubmitAudio(pcm, sampleRate)
}

func (s *Session) sendChunk(chunk OutboundChunk) error {
	return s.transport.SendMedia(chunk.Data, chunk.MimeType)
}

func (s *Session) latestFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lastFrame) == 0 {
		return nil, ErrNoFrame
	}
	frame := make([]byte, len(s.lastFrame))
	copy(frame, s.lastFrame)
	return frame, nil
}

// handleRaw is the single inbound dispatch point. The transport delivers
// messages one at a time; only finalize work runs concurrently.
func (s *Session) handleRaw(raw []byte) {
	for _, ev := range s.demux.Parse(raw) {
		switch e := ev.(type) {
		case SetupCompleteEvent:
			s.transport.ConfirmSetup()
			s.pacer.SetReady()

		case AudioEvent:
			s.duplex.OnModelAudio()
			s.playback.Enqueue(e.Data, e.SampleRate)

		case TextEvent:
			s.emitText(e.Content)

		case ToolCallEvent:
			s.orch.Dispatch(e.Calls)

		case TurnCompleteEvent:
			s.duplex.OnTurnComplete()

		case InterruptedEvent:
			if s.duplex.OnInterrupted() {
				s.playback.Interrupt()
			}

		case InputTranscriptionEvent:
			s.emitTranscript(e.Text, true, e.Finished)

		case OutputTranscriptionEvent:
			s.emitTranscript(e.Text, false, e.Finished)

		case ErrorEvent:
			s.logger.Warn("peer error", "detail", e.Detail)
			s.emitError(e.Detail)
		}
	}
}

func (s *Session) emitText(text string) {
	s.mu.Lock()
	fn := s.onText
	s.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (s *Session) emitError(detail string) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(detail)
	}
}

func (s *Session) emitTranscript(text string, fromUser, finished bool) {
	s.mu.Lock()
	fn := s.onTranscript
	s.mu.Unlock()
	if fn != nil {
		fn(text, fromUser, finished)
	}
}

// levelLoop publishes smoothed input/output levels ten times a second.
func (s *Session) levelLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			fn := s.onLevels
			input := s.inputLevel
			s.mu.Unlock()
			if fn == nil {
				continue
			}
			fn(input, s.playback.Level(), s.status())
		}
	}
}

func (s *Session) status() Status {
	switch s.transport.State() {
	case StateConnecting:
		return StatusConnecting
	case StateConnected:
		if s.duplex.ModelSpeaking() {
			return StatusSpeaking
		}
		return StatusListening
	default:
		return StatusOffline
	}
}
