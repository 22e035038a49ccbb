package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/stallworks/go-stallcam/pkg/hub"
	"github.com/stallworks/go-stallcam/pkg/listing"
)

// handleStatus returns the current session state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// handleGetTranscript returns the recent transcript
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	s.transcriptMu.RLock()
	defer s.transcriptMu.RUnlock()
	return c.JSON(s.transcript)
}

// handleGetEvents returns recent dashboard events
func (s *Server) handleGetEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// TriggerToolRequest is the request body for triggering a tool
type TriggerToolRequest struct {
	Args map[string]interface{} `json:"args"`
}

// handleTriggerTool fires a session tool manually from the dashboard
func (s *Server) handleTriggerTool(c *fiber.Ctx) error {
	name := c.Params("name")

	var req TriggerToolRequest
	if err := c.BodyParser(&req); err != nil {
		req.Args = make(map[string]interface{})
	}

	if s.OnToolTrigger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no active session",
		})
	}

	result, err := s.OnToolTrigger(name, req.Args)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.AddEvent("info", "manual tool: "+name+" -> "+result)

	return c.JSON(fiber.Map{
		"tool":   name,
		"result": result,
	})
}

// handleFrame returns the most recent camera frame as a JPEG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.OnCaptureFrame == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no camera configured",
		})
	}
	data, err := s.OnCaptureFrame()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set("Content-Type", "image/jpeg")
	return c.Send(data)
}

// handleListListings returns all saved listings, newest first
func (s *Server) handleListListings(c *fiber.Ctx) error {
	items, err := s.store.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(items)
}

// handleSearchListings searches listings by free-text query
func (s *Server) handleSearchListings(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing query parameter q",
		})
	}
	items, err := s.store.Search(query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(items)
}

// handleGetListing returns a single listing by ID
func (s *Server) handleGetListing(c *fiber.Ctx) error {
	item, err := s.store.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "listing not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(item)
}

// handleDeleteListing removes a listing by ID
func (s *Server) handleDeleteListing(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id")); err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "listing not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.UpdateState(func(st *SessionState) {})
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGoogleStatus reports whether a Google account is linked
func (s *Server) handleGoogleStatus(c *fiber.Ctx) error {
	if s.gdocs == nil {
		return c.JSON(fiber.Map{"configured": false, "linked": false})
	}
	return c.JSON(fiber.Map{
		"configured": true,
		"linked":     s.gdocs.IsAuthenticated(),
	})
}

// handleGoogleAuth redirects the browser to the Google consent page
func (s *Server) handleGoogleAuth(c *fiber.Ctx) error {
	if s.gdocs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "google docs export not configured",
		})
	}
	return c.Redirect(s.gdocs.AuthURL(), fiber.StatusTemporaryRedirect)
}

// handleGoogleCallback completes the OAuth flow
func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	if s.gdocs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "google docs export not configured",
		})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing authorization code",
		})
	}
	if err := s.gdocs.HandleCallback(code); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.AddEvent("info", "Google account linked")
	s.UpdateState(func(st *SessionState) {})
	return c.Redirect("/", fiber.StatusTemporaryRedirect)
}

// handleGoogleDisconnect unlinks the Google account
func (s *Server) handleGoogleDisconnect(c *fiber.Ctx) error {
	if s.gdocs == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "google docs export not configured",
		})
	}
	if err := s.gdocs.Disconnect(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.AddEvent("info", "Google account unlinked")
	s.UpdateState(func(st *SessionState) {})
	return c.SendStatus(fiber.StatusNoContent)
}

// handleStatusWS streams session state updates
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)

	// Replay current state so the client does not wait for the next tick
	s.stateMu.RLock()
	state := s.state
	s.stateMu.RUnlock()
	if env, err := hub.Wrap(hub.KindStatus, state); err == nil {
		client.Send(env)
	}

	client.Run()
}

// handleEventsWS streams transcript lines and dashboard events
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventHub, c)

	// Replay the recent transcript to the new client
	s.transcriptMu.RLock()
	entries := make([]TranscriptEntry, len(s.transcript))
	copy(entries, s.transcript)
	s.transcriptMu.RUnlock()
	for _, entry := range entries {
		if env, err := hub.Wrap(hub.KindTranscript, entry); err == nil {
			client.Send(env)
		}
	}

	client.Run()
}

// handleCameraWS streams JPEG preview frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}
