package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
)

// WebRTCSource pulls frames from a remote camera that publishes video
// through a GStreamer webrtcsink signalling server. The H264 stream is
// depacketized from RTP and decoded to JPEG with ffmpeg.
type WebRTCSource struct {
	cfg    Config
	logger *slog.Logger

	ws      *websocket.Conn
	pc      *webrtc.PeerConnection
	wsMu    sync.Mutex
	stateMu sync.Mutex

	peerID     string
	producerID string
	sessionID  string

	frameMu    sync.RWMutex
	latest     *Frame
	frameReady chan struct{}

	closed bool
}

var _ Source = (*WebRTCSource)(nil)

// NewWebRTCSource creates a remote camera source.
func NewWebRTCSource(cfg Config) *WebRTCSource {
	return &WebRTCSource{
		cfg:        cfg,
		logger:     slog.Default().With("component", "camera"),
		frameReady: make(chan struct{}, 1),
	}
}

func (s *WebRTCSource) Start(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	ws, _, err := dialer.DialContext(ctx, s.cfg.SignallingURL, nil)
	if err != nil {
		return fmt.Errorf("camera: signalling connect: %w", err)
	}
	s.ws = ws

	if err := s.waitForWelcome(); err != nil {
		ws.Close()
		return fmt.Errorf("camera: welcome: %w", err)
	}
	if err := s.findProducer(); err != nil {
		ws.Close()
		return fmt.Errorf("camera: find producer: %w", err)
	}
	if err := s.createPeerConnection(); err != nil {
		ws.Close()
		return fmt.Errorf("camera: peer connection: %w", err)
	}
	if err := s.startSession(); err != nil {
		ws.Close()
		return fmt.Errorf("camera: start session: %w", err)
	}

	go s.handleSignalling()

	select {
	case <-s.frameReady:
		s.logger.Info("video track connected", "producer", s.producerID)
	case <-time.After(15 * time.Second):
		s.Stop()
		return fmt.Errorf("camera: timeout waiting for video track")
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
	return nil
}

func (s *WebRTCSource) waitForWelcome() error {
	s.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := s.ws.ReadMessage()
	s.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	s.peerID = welcome.PeerID
	return nil
}

func (s *WebRTCSource) findProducer() error {
	if err := s.writeJSON(map[string]string{"type": "list"}); err != nil {
		return err
	}

	s.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := s.ws.ReadMessage()
	s.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var list struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &list); err != nil {
		return err
	}

	for _, p := range list.Producers {
		if p.Meta["name"] == s.cfg.ProducerName {
			s.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", s.cfg.ProducerName, len(list.Producers))
}

func (s *WebRTCSource) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	s.pc = pc

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		s.logger.Debug("track received", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go s.readTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			s.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Debug("peer connection state", "state", state.String())
	})

	return nil
}

func (s *WebRTCSource) startSession() error {
	return s.writeJSON(map[string]string{
		"type":   "startSession",
		"peerId": s.producerID,
	})
}

func (s *WebRTCSource) handleSignalling() {
	for !s.isClosed() {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			if !s.isClosed() {
				s.logger.Warn("signalling read failed", "error", err)
			}
			return
		}

		var base struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "sessionStarted":
			s.sessionID = base.SessionID
		case "peer":
			s.handlePeerMessage(msg)
		case "endSession":
			return
		}
	}
}

func (s *WebRTCSource) handlePeerMessage(msg []byte) {
	var peer struct {
		SDP *struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"sdp"`
		ICE *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"ice"`
	}
	if err := json.Unmarshal(msg, &peer); err != nil {
		return
	}

	if peer.SDP != nil && peer.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  peer.SDP.SDP,
		}
		if err := s.pc.SetRemoteDescription(offer); err != nil {
			s.logger.Warn("set remote description failed", "error", err)
			return
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			s.logger.Warn("create answer failed", "error", err)
			return
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			s.logger.Warn("set local description failed", "error", err)
			return
		}
		s.sendSDP(answer)
	}

	if peer.ICE != nil {
		if err := s.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     peer.ICE.Candidate,
			SDPMid:        peer.ICE.SDPMid,
			SDPMLineIndex: peer.ICE.SDPMLineIndex,
		}); err != nil {
			s.logger.Debug("add ice candidate failed", "error", err)
		}
	}
}

func (s *WebRTCSource) sendSDP(sdp webrtc.SessionDescription) {
	msg := map[string]any{
		"type":      "peer",
		"sessionId": s.sessionID,
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	}
	if err := s.writeJSON(msg); err != nil {
		s.logger.Warn("send sdp failed", "error", err)
	}
}

func (s *WebRTCSource) sendICECandidate(candidate *webrtc.ICECandidate) {
	if s.sessionID == "" {
		return
	}
	init := candidate.ToJSON()
	msg := map[string]any{
		"type":      "peer",
		"sessionId": s.sessionID,
		"ice": map[string]any{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	}
	if err := s.writeJSON(msg); err != nil {
		s.logger.Warn("send ice failed", "error", err)
	}
}

// readTrack depacketizes the incoming H264 RTP stream and decodes a frame
// roughly every 100ms.
func (s *WebRTCSource) readTrack(track *webrtc.TrackRemote) {
	select {
	case s.frameReady <- struct{}{}:
	default:
	}

	depacketizer := &codecs.H264Packet{}
	var nalBuf bytes.Buffer
	lastDecode := time.Now()

	for !s.isClosed() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil {
			continue
		}
		nalBuf.Write(nal)

		if time.Since(lastDecode) > 100*time.Millisecond {
			s.decodeFrame(nalBuf.Bytes())
			nalBuf.Reset()
			lastDecode = time.Now()
		}
	}
}

// decodeFrame pipes raw H264 through ffmpeg and keeps the resulting JPEG.
func (s *WebRTCSource) decodeFrame(h264 []byte) {
	if len(h264) < 100 {
		return
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "h264", "-i", "-",
		"-vframes", "1", "-f", "image2", "-",
	)
	cmd.Stdin = bytes.NewReader(h264)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return
	}
	if out.Len() < 1000 {
		return
	}

	frame := Frame{Data: out.Bytes(), CapturedAt: time.Now()}
	s.frameMu.Lock()
	s.latest = &frame
	s.frameMu.Unlock()
}

func (s *WebRTCSource) Frame() (Frame, error) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	if s.latest == nil {
		return Frame{}, ErrNoFrame
	}
	frame := Frame{
		Data:       make([]byte, len(s.latest.Data)),
		CapturedAt: s.latest.CapturedAt,
	}
	copy(frame.Data, s.latest.Data)
	return frame, nil
}

func (s *WebRTCSource) WaitFrame(timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if frame, err := s.Frame(); err == nil {
			return frame, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return Frame{}, fmt.Errorf("camera: timeout waiting for frame")
}

func (s *WebRTCSource) Stop() error {
	s.stateMu.Lock()
	if s.closed {
		s.stateMu.Unlock()
		return nil
	}
	s.closed = true
	s.stateMu.Unlock()

	if s.pc != nil {
		s.pc.Close()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	return nil
}

func (s *WebRTCSource) isClosed() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.closed
}

func (s *WebRTCSource) writeJSON(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return s.ws.WriteJSON(v)
}

func (s *WebRTCSource) Name() string { return "webrtc" }
