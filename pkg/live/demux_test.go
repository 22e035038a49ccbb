package live

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func newTestDemux(t *testing.T) (*Demux, *time.Time) {
	t.Helper()
	d := NewDemux(DefaultConfig())
	now := time.Now()
	d.now = func() time.Time { return now }
	return d, &now
}

func audioFrame(pcm []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(pcm)
	return []byte(fmt.Sprintf(
		`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"%s"}}]}}}`,
		encoded))
}

func TestDemuxSetupComplete(t *testing.T) {
	d, _ := newTestDemux(t)
	events := d.Parse([]byte(`{"setupComplete":{}}`))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(SetupCompleteEvent); !ok {
		t.Errorf("expected SetupCompleteEvent, got %T", events[0])
	}
}

func TestDemuxAudioDedupWindow(t *testing.T) {
	d, now := newTestDemux(t)
	frame := audioFrame([]byte("the same pcm payload repeated on both delivery paths"))

	if n := len(d.Parse(frame)); n != 1 {
		t.Fatalf("first delivery: expected 1 event, got %d", n)
	}

	*now = now.Add(50 * time.Millisecond)
	if n := len(d.Parse(frame)); n != 0 {
		t.Errorf("repeat within 100ms: expected 0 events, got %d", n)
	}

	*now = now.Add(100 * time.Millisecond)
	if n := len(d.Parse(frame)); n != 1 {
		t.Errorf("repeat after the window: expected 1 event, got %d", n)
	}
}

func TestDemuxAudioEvent(t *testing.T) {
	d, _ := newTestDemux(t)
	pcm := []byte("pcm bytes here")

	events := d.Parse(audioFrame(pcm))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	audio, ok := events[0].(AudioEvent)
	if !ok {
		t.Fatalf("expected AudioEvent, got %T", events[0])
	}
	if string(audio.Data) != string(pcm) {
		t.Error("audio payload mismatch")
	}
	if audio.SampleRate != 24000 {
		t.Errorf("expected 24000, got %d", audio.SampleRate)
	}
}

func TestDemuxToolCallIdempotent(t *testing.T) {
	d, _ := newTestDemux(t)
	frame := []byte(`{"toolCall":{"functionCalls":[{"id":"call-1","name":"capture_product","args":{}}]}}`)

	events := d.Parse(frame)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	tc := events[0].(ToolCallEvent)
	if len(tc.Calls) != 1 || tc.Calls[0].ID != "call-1" {
		t.Fatalf("unexpected calls: %+v", tc.Calls)
	}

	// Redelivery of the same invocation ID must not dispatch again.
	for i := 0; i < 3; i++ {
		if n := len(d.Parse(frame)); n != 0 {
			t.Errorf("redelivery %d: expected 0 events, got %d", i, n)
		}
	}
}

func TestDemuxTurnCompleteCooldown(t *testing.T) {
	d, now := newTestDemux(t)
	frame := []byte(`{"serverContent":{"turnComplete":true}}`)

	if n := len(d.Parse(frame)); n != 1 {
		t.Fatalf("first turn complete: expected 1 event, got %d", n)
	}

	*now = now.Add(500 * time.Millisecond)
	if n := len(d.Parse(frame)); n != 0 {
		t.Errorf("redundant turn complete within cooldown: expected 0 events, got %d", n)
	}

	*now = now.Add(time.Second)
	if n := len(d.Parse(frame)); n != 1 {
		t.Errorf("turn complete after cooldown: expected 1 event, got %d", n)
	}
}

func TestDemuxCombinedFrame(t *testing.T) {
	d, _ := newTestDemux(t)
	frame := []byte(`{
		"serverContent":{"turnComplete":true},
		"toolCall":{"functionCalls":[{"id":"call-2","name":"finalize_listing","args":{"title":"mug"}}]}
	}`)

	events := d.Parse(frame)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	var sawTurn, sawTool bool
	for _, ev := range events {
		switch ev.(type) {
		case TurnCompleteEvent:
			sawTurn = true
		case ToolCallEvent:
			sawTool = true
		}
	}
	if !sawTurn || !sawTool {
		t.Errorf("expected both turn-complete and tool-call, got turn=%v tool=%v", sawTurn, sawTool)
	}
}

func TestDemuxInterrupted(t *testing.T) {
	d, _ := newTestDemux(t)
	events := d.Parse([]byte(`{"serverContent":{"interrupted":true}}`))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(InterruptedEvent); !ok {
		t.Errorf("expected InterruptedEvent, got %T", events[0])
	}
}

func TestDemuxTranscriptions(t *testing.T) {
	d, _ := newTestDemux(t)
	events := d.Parse([]byte(`{"serverContent":{
		"inputTranscription":{"text":"how much is this","finished":true},
		"outputTranscription":{"text":"twenty dollars","finished":false}
	}}`))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	in, ok := events[0].(InputTranscriptionEvent)
	if !ok {
		t.Fatalf("expected InputTranscriptionEvent, got %T", events[0])
	}
	if in.Text != "how much is this" || !in.Finished {
		t.Errorf("unexpected input transcription: %+v", in)
	}

	out, ok := events[1].(OutputTranscriptionEvent)
	if !ok {
		t.Fatalf("expected OutputTranscriptionEvent, got %T", events[1])
	}
	if out.Text != "twenty dollars" || out.Finished {
		t.Errorf("unexpected output transcription: %+v", out)
	}
}

func TestDemuxMalformedDropped(t *testing.T) {
	d, _ := newTestDemux(t)
	if events := d.Parse([]byte(`{not json`)); events != nil {
		t.Errorf("malformed frame should yield no events, got %v", events)
	}
	if events := d.Parse([]byte(`{"unknownField":true}`)); len(events) != 0 {
		t.Errorf("unknown frame should yield no events, got %v", events)
	}
}

func TestDemuxResetClearsProcessedIDs(t *testing.T) {
	d, _ := newTestDemux(t)
	frame := []byte(`{"toolCall":{"functionCalls":[{"id":"call-9","name":"capture_product","args":{}}]}}`)

	d.Parse(frame)
	d.Reset()
	if n := len(d.Parse(frame)); n != 1 {
		t.Errorf("after reset the same ID should dispatch again, got %d events", n)
	}
}

func TestSampleRateFromMime(t *testing.T) {
	cases := map[string]int{
		"audio/pcm;rate=24000": 24000,
		"audio/pcm;rate=16000": 16000,
		"audio/pcm":            24000,
		"audio/pcm;rate=":      24000,
	}
	for mime, want := range cases {
		if got := sampleRateFromMime(mime); got != want {
			t.Errorf("%s: expected %d, got %d", mime, want, got)
		}
	}
}
