package app

import (
	"context"
	"fmt"
	"time"

	"github.com/stallworks/go-stallcam/internal/log"
	"github.com/stallworks/go-stallcam/pkg/audioio"
	"github.com/stallworks/go-stallcam/pkg/camera"
	"github.com/stallworks/go-stallcam/pkg/listing"
	"github.com/stallworks/go-stallcam/pkg/live"
	"github.com/stallworks/go-stallcam/pkg/pipeline"
	"github.com/stallworks/go-stallcam/pkg/web"
)

// App wires the capture adapters, the live session, listing persistence
// and the web dashboard into one process.
type App struct {
	config Config

	// Live session
	session *live.Session

	// Capture adapters
	mic     audioio.Source
	speaker audioio.Sink
	cam     camera.Source

	// Persistence & integrations
	store *listing.JSONStore
	gdocs *listing.GoogleDocsClient
	pipe  pipeline.Pipeline

	// Web dashboard
	webServer *web.Server
}

// New creates a new stallcam application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{config: cfg}, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	if a.config.Debug {
		log.Init("debug")
	} else {
		log.Init("info")
	}

	if err := a.initStore(); err != nil {
		return fmt.Errorf("store init: %w", err)
	}
	a.initGoogleDocs()
	a.initPipeline()

	if err := a.initAudio(); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	if err := a.initCamera(); err != nil {
		return fmt.Errorf("camera init: %w", err)
	}
	if err := a.initSession(); err != nil {
		return fmt.Errorf("session init: %w", err)
	}
	a.initWeb()

	return nil
}

// Run starts the main event loop.
// Blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.speaker.Start(ctx); err != nil {
		return fmt.Errorf("speaker: %w", err)
	}
	if err := a.mic.Start(ctx); err != nil {
		return fmt.Errorf("microphone: %w", err)
	}
	if err := a.cam.Start(ctx); err != nil {
		log.Warn("camera unavailable, continuing without frames", "error", err)
	}

	if err := a.session.Start(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	a.webServer.StartAsync()

	go a.streamMicrophone(ctx)
	go a.streamCamera(ctx)

	log.Info("stallcam ready, talk to start listing items")
	<-ctx.Done()
	return nil
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	if a.session != nil {
		a.session.Stop()
	}
	if a.mic != nil {
		a.mic.Stop()
	}
	if a.cam != nil {
		a.cam.Stop()
	}
	if a.speaker != nil {
		a.speaker.Stop()
	}
	if a.webServer != nil {
		a.webServer.Shutdown()
	}
	log.Info("stallcam stopped")
}

func (a *App) initStore() error {
	var err error
	if a.config.StorePath != "" {
		a.store, err = listing.NewJSONStore(a.config.StorePath)
	} else {
		a.store, err = listing.NewDefaultStore()
	}
	return err
}

func (a *App) initGoogleDocs() {
	if a.config.GoogleClientID == "" || a.config.GoogleClientSecret == "" {
		log.Info("google docs export disabled, no OAuth credentials")
		return
	}
	gdocs, err := listing.NewGoogleDocsClient(listing.GoogleDocsConfig{
		ClientID:     a.config.GoogleClientID,
		ClientSecret: a.config.GoogleClientSecret,
		RedirectURL:  "http://localhost:" + a.config.WebPort + "/api/google/callback",
	})
	if err != nil {
		log.Warn("google docs export disabled", "error", err)
		return
	}
	a.gdocs = gdocs
}

func (a *App) initPipeline() {
	if a.config.PipelineURL == "" {
		log.Warn("no pipeline URL configured, finalize calls use an in-process mock")
		a.pipe = &pipeline.MockPipeline{}
		return
	}
	a.pipe = pipeline.NewHTTPPipeline(a.config.PipelineURL, a.config.PipelineKey)
}

func (a *App) initAudio() error {
	micCfg := audioio.DefaultCaptureConfig()
	micCfg.Backend = a.config.AudioBackend
	micCfg.Device = a.config.MicDevice
	mic, err := audioio.NewSource(micCfg)
	if err != nil {
		return err
	}

	spkCfg := audioio.DefaultPlaybackConfig()
	spkCfg.Backend = a.config.AudioBackend
	spkCfg.Device = a.config.SpeakerDevice
	speaker, err := audioio.NewSink(spkCfg)
	if err != nil {
		return err
	}

	a.mic = mic
	a.speaker = speaker
	return nil
}

func (a *App) initCamera() error {
	camCfg := camera.DefaultConfig()
	camCfg.Backend = a.config.CameraBackend
	camCfg.SignallingURL = a.config.SignallingURL
	camCfg.ProducerName = a.config.ProducerName

	cam, err := camera.NewSource(camCfg)
	if err != nil {
		return err
	}
	a.cam = cam
	return nil
}

func (a *App) initSession() error {
	liveCfg := live.DefaultConfig()
	liveCfg.APIKey = a.config.APIKey
	liveCfg.SystemPrompt = a.config.SystemPrompt
	if a.config.Model != "" {
		liveCfg.Model = a.config.Model
	}
	if a.config.Voice != "" {
		liveCfg.Voice = a.config.Voice
	}

	session, err := live.NewSession(liveCfg, a.speaker, a.pipe)
	if err != nil {
		return err
	}
	a.session = session

	a.registerTools()
	a.session.OnFinalizeResult(a.handleFinalizeResult)
	return nil
}

func (a *App) initWeb() {
	server := web.NewServer(a.config.WebPort, a.store, a.gdocs)

	server.OnCaptureFrame = func() ([]byte, error) {
		frame, err := a.cam.Frame()
		if err != nil {
			return nil, err
		}
		return frame.Data, nil
	}
	server.OnToolTrigger = a.triggerTool

	a.session.OnState(func(state live.State) {
		server.AddEvent("info", "session "+state.String())
		server.UpdateState(func(s *web.SessionState) {
			s.Connected = state == live.StateConnected
		})
	})

	a.session.OnError(func(detail string) {
		server.AddEvent("error", detail)
	})

	a.session.OnLevels(func(input, output float64, status live.Status) {
		server.UpdateState(func(s *web.SessionState) {
			s.InputLevel = input
			s.OutputLevel = output
			s.Status = string(status)
			s.CurrentSubject = a.session.CurrentSubject()
			s.CaptureCount = a.session.CaptureCount()
		})
	})

	a.session.OnTranscript(func(text string, fromUser, finished bool) {
		if !finished || text == "" {
			return
		}
		role := "assistant"
		if fromUser {
			role = "seller"
		}
		server.AddTranscript(role, text)
		server.UpdateState(func(s *web.SessionState) {
			if fromUser {
				s.LastHeard = text
			} else {
				s.LastSaid = text
			}
		})
	})

	a.webServer = server
}

// handleFinalizeResult persists the finalized listing, exports it to
// Google Docs when linked, and surfaces the outcome on the dashboard.
func (a *App) handleFinalizeResult(res live.FinalizeResult) {
	if !res.Success {
		log.Warn("finalize failed", "subject", res.SubjectRef, "error", res.Err)
		if a.webServer != nil {
			a.webServer.AddEvent("error", fmt.Sprintf("finalize failed for %q: %v", res.Draft.Title, res.Err))
		}
		return
	}

	l := &listing.Listing{
		SubjectRef:  res.SubjectRef,
		Title:       res.Draft.Title,
		Description: res.Draft.Description,
		Price:       res.Draft.Price,
		Condition:   res.Draft.Condition,
		Brand:       res.Draft.Brand,
		Category:    res.Draft.Category,
		ImagePrompt: res.Draft.ImagePrompt,
		ArtifactURL: res.ArtifactURL,
	}
	if res.RecordID != "" {
		l.ID = res.RecordID
	}

	if err := a.store.Save(l); err != nil {
		log.Error("failed to save listing", "title", l.Title, "error", err)
	}

	if a.gdocs != nil && a.gdocs.IsAuthenticated() {
		if err := a.gdocs.ExportListing(l); err != nil {
			log.Warn("google docs export failed", "title", l.Title, "error", err)
		} else if err := a.store.Save(l); err == nil {
			log.Info("listing exported to google docs", "doc", listing.DocURL(l.DocID))
		}
	}

	if a.webServer != nil {
		a.webServer.AddEvent("finalize", fmt.Sprintf("listing created: %s", l.Title))
		a.webServer.UpdateState(func(s *web.SessionState) {})
	}
	log.Info("listing finalized", "title", l.Title, "id", l.ID)
}

// streamMicrophone forwards captured audio chunks into the session.
func (a *App) streamMicrophone(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-a.mic.Stream():
			if !ok {
				return
			}
			a.session.SubmitAudio(chunk.Bytes(), chunk.SampleRate, chunk.Level())
		}
	}
}

// streamCamera offers the latest frame to the session once a second and
// mirrors it to dashboard preview clients.
func (a *App) streamCamera(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	connected := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := a.cam.Frame()
			if err != nil {
				if connected {
					connected = false
					a.webServer.UpdateState(func(s *web.SessionState) { s.CameraConnected = false })
				}
				continue
			}
			if !connected {
				connected = true
				a.webServer.UpdateState(func(s *web.SessionState) { s.CameraConnected = true })
			}
			a.session.SubmitFrame(frame.Data, "image/jpeg")
			a.webServer.SendCameraFrame(frame.Data)
		}
	}
}
