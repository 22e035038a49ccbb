package live

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stallworks/go-stallcam/pkg/audioio"
	"github.com/stallworks/go-stallcam/pkg/pipeline"
)

func newTestSession(t *testing.T, peer *fakePeer) (*Session, *audioio.MockSink, *pipeline.MockPipeline) {
	t.Helper()
	sinkCfg := audioio.DefaultPlaybackConfig()
	sinkCfg.Backend = audioio.BackendMock
	sink := audioio.NewMockSink(sinkCfg)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("sink start: %v", err)
	}
	t.Cleanup(func() { sink.Stop() })

	pipe := &pipeline.MockPipeline{}
	s, err := NewSession(testConfig(peer), sink, pipe)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s, sink, pipe
}

// TestSessionBuffersAudioUntilSetupComplete covers the end-to-end startup
// path: a chunk captured while connecting is held by the pacer, then
// flushed exactly once when the peer acknowledges setup.
func TestSessionBuffersAudioUntilSetupComplete(t *testing.T) {
	peer := newFakePeer(t)
	s, _, _ := newTestSession(t, peer)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.waitMessages(t, 1) // setup frame

	// One second of 16kHz PCM while still connecting.
	chunk := make([]byte, 32000)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	s.SubmitAudio(chunk, 16000, 0.2)

	time.Sleep(50 * time.Millisecond)
	if n := len(peer.messages()); n != 1 {
		t.Fatalf("media sent before setup completed: %d frames", n)
	}

	peer.send(t, map[string]any{"setupComplete": map[string]any{}})

	msgs := peer.waitMessages(t, 2)
	media, ok := msgs[1]["realtime_input"].(map[string]any)
	if !ok {
		t.Fatalf("expected realtime_input frame, got %v", msgs[1])
	}
	chunks := media["media_chunks"].([]any)
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 media chunk, got %d", len(chunks))
	}
	payload := chunks[0].(map[string]any)
	decoded, err := base64.StdEncoding.DecodeString(payload["data"].(string))
	if err != nil {
		t.Fatalf("decode media chunk: %v", err)
	}
	if len(decoded) != len(chunk) || decoded[0] != chunk[0] || decoded[31999] != chunk[31999] {
		t.Error("flushed chunk does not match the captured one")
	}

	// No duplicate flush.
	time.Sleep(50 * time.Millisecond)
	if n := len(peer.messages()); n != 2 {
		t.Errorf("chunk flushed more than once: %d frames", n)
	}
}

func TestSessionStateReachesConnected(t *testing.T) {
	peer := newFakePeer(t)
	s, _, _ := newTestSession(t, peer)

	states := make(chan State, 8)
	s.OnState(func(st State) { states <- st })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.send(t, map[string]any{"setupComplete": map[string]any{}})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-states:
			if st == StateConnected {
				return
			}
		case <-deadline:
			t.Fatalf("never reached connected, state=%s", s.State())
		}
	}
}

func TestSessionAudioPlaybackAndMute(t *testing.T) {
	peer := newFakePeer(t)
	s, sink, _ := newTestSession(t, peer)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.send(t, map[string]any{"setupComplete": map[string]any{}})
	peer.waitMessages(t, 1)

	// 300ms of synthesized audio crosses the pre-buffer and starts
	// playback; the microphone path mutes.
	pcm := pcm24k(300 * time.Millisecond)
	peer.send(t, map[string]any{"serverContent": map[string]any{
		"modelTurn": map[string]any{"parts": []any{map[string]any{
			"inlineData": map[string]any{
				"mimeType": "audio/pcm;rate=24000",
				"data":     base64.StdEncoding.EncodeToString(pcm),
			},
		}}},
	}})

	waitFor(t, func() bool { return len(sink.Written()) > 0 })
	if !s.duplex.ModelSpeaking() {
		t.Error("model audio should mute the microphone path")
	}

	// Microphone chunks are discarded while muted.
	before := len(peer.messages())
	s.SubmitAudio(make([]byte, 640), 16000, 0.3)
	time.Sleep(50 * time.Millisecond)
	if len(peer.messages()) != before {
		t.Error("microphone audio sent while the model was speaking")
	}

	// Turn completion unmutes.
	peer.send(t, map[string]any{"serverContent": map[string]any{"turnComplete": true}})
	waitFor(t, func() bool { return !s.duplex.ModelSpeaking() })
}

func TestSessionToolCallRoundTrip(t *testing.T) {
	peer := newFakePeer(t)
	s, _, _ := newTestSession(t, peer)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.send(t, map[string]any{"setupComplete": map[string]any{}})
	peer.waitMessages(t, 1)

	s.SubmitFrame([]byte("jpeg bytes"), "image/jpeg")

	peer.send(t, map[string]any{"toolCall": map[string]any{
		"functionCalls": []any{map[string]any{
			"id":   "call-1",
			"name": OpCaptureProduct,
			"args": map[string]any{"subject_ref": "vase-1"},
		}},
	}})

	msgs := peer.waitMessages(t, 3) // setup, frame, tool_response
	var resp map[string]any
	for _, m := range msgs {
		if tr, ok := m["tool_response"].(map[string]any); ok {
			resp = tr
		}
	}
	if resp == nil {
		t.Fatal("no tool_response frame received")
	}
	if len(s.orch.Captures("vase-1")) != 1 {
		t.Error("capture was not recorded")
	}
}

func TestSessionSurfacesPeerError(t *testing.T) {
	peer := newFakePeer(t)
	s, _, _ := newTestSession(t, peer)

	errs := make(chan string, 1)
	s.OnError(func(detail string) { errs <- detail })

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.send(t, map[string]any{"setupComplete": map[string]any{}})
	peer.waitMessages(t, 1)

	peer.send(t, map[string]any{"error": map[string]any{"message": "quota exceeded"}})

	select {
	case detail := <-errs:
		if detail != "quota exceeded" {
			t.Errorf("expected peer error detail, got %q", detail)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("peer error never reached the host callback")
	}

	// A peer error is not fatal; the channel stays up.
	if s.State() != StateConnected {
		t.Errorf("expected connected after peer error, got %s", s.State())
	}
}

func TestSessionStopReleasesState(t *testing.T) {
	peer := newFakePeer(t)
	s, _, _ := newTestSession(t, peer)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn

	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed, got %s", s.State())
	}
	// Stop again is safe.
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestSessionSpuriousInterruptKeepsPlayback(t *testing.T) {
	peer := newFakePeer(t)
	s, sink, _ := newTestSession(t, peer)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-peer.gotConn
	peer.send(t, map[string]any{"setupComplete": map[string]any{}})
	peer.waitMessages(t, 1)

	// Interrupted with no model audio: nothing to clear, no state change.
	peer.send(t, map[string]any{"serverContent": map[string]any{"interrupted": true}})
	time.Sleep(50 * time.Millisecond)
	if s.duplex.ModelSpeaking() {
		t.Error("spurious interrupt changed speaking state")
	}
	if sink.Stats().ChunksCleared != 0 {
		t.Error("spurious interrupt cleared playback")
	}
}
