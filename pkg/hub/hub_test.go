package hub

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Envelope, buffer)}
	h.register <- c
	return c
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestWrapTagsPayload(t *testing.T) {
	env, err := Wrap(KindTranscript, map[string]string{"message": "hello"})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if env.binary() {
		t.Error("transcript envelope must not be binary")
	}

	var decoded struct {
		Kind Kind `json:"kind"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Kind != KindTranscript {
		t.Errorf("kind = %q, want %q", decoded.Kind, KindTranscript)
	}
	if decoded.Data.Message != "hello" {
		t.Errorf("data.message = %q, want hello", decoded.Data.Message)
	}
}

func TestFrameEnvelopeIsBinary(t *testing.T) {
	env := FrameEnvelope([]byte{0xff, 0xd8})
	if !env.binary() {
		t.Error("frame envelope must be binary")
	}
	if env.Kind != KindFrame {
		t.Errorf("kind = %q, want %q", env.Kind, KindFrame)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 4)
	waitForCount(t, h, 1)

	if err := h.BroadcastJSON(KindStatus, map[string]bool{"ok": true}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case env := <-c.send:
		if env.Kind != KindStatus {
			t.Errorf("kind = %q, want %q", env.Kind, KindStatus)
		}
	case <-time.After(time.Second):
		t.Fatal("no envelope delivered")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	// Buffer of 1 with no reader; the second broadcast overflows.
	newTestClient(h, 1)
	waitForCount(t, h, 1)

	h.BroadcastFrame([]byte{1})
	h.BroadcastFrame([]byte{2})

	waitForCount(t, h, 0)
}

func TestHubUnregister(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 1)
	waitForCount(t, h, 1)

	h.unregister <- c
	waitForCount(t, h, 0)

	// Channel is closed on unregister.
	if _, ok := <-c.send; ok {
		t.Error("send channel not closed")
	}
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := New("test")
	go h.Run()

	c := newTestClient(h, 1)
	waitForCount(t, h, 1)

	h.Stop()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if h.ClientCount() != 0 {
		t.Fatalf("clients remain after stop: %d", h.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel not closed after stop")
	}
}
