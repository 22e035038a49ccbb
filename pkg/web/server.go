// Package web provides a real-time dashboard and REST API for a
// stallcam capture session: live status, transcripts, camera preview
// and access to saved listings.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/stallworks/go-stallcam/internal/log"
	"github.com/stallworks/go-stallcam/pkg/hub"
	"github.com/stallworks/go-stallcam/pkg/listing"
)

// SessionState is the dashboard's view of the capture session
type SessionState struct {
	Connected       bool    `json:"connected"`
	CameraConnected bool    `json:"camera_connected"`
	Status          string  `json:"status"` // connecting, listening, speaking, offline
	InputLevel      float64 `json:"input_level"`
	OutputLevel     float64 `json:"output_level"`
	CurrentSubject  string  `json:"current_subject"`
	CaptureCount    int     `json:"capture_count"`
	ListingCount    int     `json:"listing_count"`
	LastHeard       string  `json:"last_heard"`
	LastSaid        string  `json:"last_said"`
	GoogleLinked    bool    `json:"google_linked"`
}

// TranscriptEntry is one line of the session transcript
type TranscriptEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"` // seller, assistant
	Message string `json:"message"`
}

// EventEntry is a dashboard event (finalize outcomes, tool activity)
type EventEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, capture, finalize, error
	Message string `json:"message"`
}

const (
	maxTranscript = 200
	maxEvents     = 500
)

// Server is the web dashboard server
type Server struct {
	app  *fiber.App
	port string

	store *listing.JSONStore
	gdocs *listing.GoogleDocsClient

	state   SessionState
	stateMu sync.RWMutex

	transcript   []TranscriptEntry
	transcriptMu sync.RWMutex

	events   []EventEntry
	eventsMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	eventHub  *hub.Hub
	cameraHub *hub.Hub

	// OnToolTrigger fires a session tool manually from the dashboard
	OnToolTrigger func(name string, args map[string]interface{}) (string, error)

	// OnCaptureFrame returns the most recent camera frame as JPEG
	OnCaptureFrame func() ([]byte, error)
}

// NewServer creates a new web dashboard server
func NewServer(port string, store *listing.JSONStore, gdocs *listing.GoogleDocsClient) *Server {
	s := &Server{
		port:       port,
		store:      store,
		gdocs:      gdocs,
		transcript: make([]TranscriptEntry, 0, maxTranscript),
		events:     make([]EventEntry, 0, maxEvents),
		statusHub:  hub.New("status"),
		eventHub:   hub.New("events"),
		cameraHub:  hub.New("camera"),
	}
	s.state.Status = "offline"

	app := fiber.New(fiber.Config{
		AppName:               "Stallcam Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/transcript", s.handleGetTranscript)
	api.Get("/events", s.handleGetEvents)
	api.Post("/tools/:name", s.handleTriggerTool)
	api.Get("/frame", s.handleFrame)

	api.Get("/listings", s.handleListListings)
	api.Get("/listings/search", s.handleSearchListings)
	api.Get("/listings/:id", s.handleGetListing)
	api.Delete("/listings/:id", s.handleDeleteListing)

	api.Get("/google/status", s.handleGoogleStatus)
	api.Get("/google/auth", s.handleGoogleAuth)
	api.Get("/google/callback", s.handleGoogleCallback)
	api.Post("/google/disconnect", s.handleGoogleDisconnect)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the web server and its broadcast hubs. Blocks.
func (s *Server) Start() error {
	log.Info("web dashboard listening", "addr", "http://localhost:"+s.port)

	go s.statusHub.Run()
	go s.eventHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()
}

// UpdateState applies a mutation to the session state and broadcasts
// the result to connected clients.
func (s *Server) UpdateState(update func(*SessionState)) {
	s.stateMu.Lock()
	update(&s.state)
	if s.store != nil {
		s.state.ListingCount = s.store.Count()
	}
	if s.gdocs != nil {
		s.state.GoogleLinked = s.gdocs.IsAuthenticated()
	}
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(hub.KindStatus, state)
}

// AddTranscript records a transcript line and broadcasts it
func (s *Server) AddTranscript(role, message string) {
	entry := TranscriptEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
	}

	s.transcriptMu.Lock()
	s.transcript = append(s.transcript, entry)
	if len(s.transcript) > maxTranscript {
		s.transcript = s.transcript[1:]
	}
	s.transcriptMu.Unlock()

	s.eventHub.BroadcastJSON(hub.KindTranscript, entry)
}

// AddEvent records a dashboard event and broadcasts it
func (s *Server) AddEvent(eventType, message string) {
	entry := EventEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}

	s.eventsMu.Lock()
	s.events = append(s.events, entry)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	s.eventHub.BroadcastJSON(hub.KindEvent, entry)
}

// SendCameraFrame broadcasts a JPEG frame to camera preview clients
func (s *Server) SendCameraFrame(jpegData []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastFrame(jpegData)
}

// Shutdown gracefully stops the web server and hubs
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.eventHub.Stop()
	s.cameraHub.Stop()
	return s.app.Shutdown()
}
