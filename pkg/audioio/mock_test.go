package audioio

import (
	"context"
	"testing"
	"time"
)

func TestMockSourceSilence(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	cfg.ChunkDuration = 5 * time.Millisecond

	src := NewMockSource(cfg)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer src.Stop()

	select {
	case chunk := <-src.Stream():
		if len(chunk.Samples) != cfg.ChunkSamples() {
			t.Errorf("expected %d samples, got %d", cfg.ChunkSamples(), len(chunk.Samples))
		}
		if chunk.Level() != 0 {
			t.Errorf("expected silence, got level %f", chunk.Level())
		}
	case <-time.After(time.Second):
		t.Fatal("no chunk received")
	}
}

func TestMockSourceSineWave(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	cfg.ChunkDuration = 5 * time.Millisecond

	src := NewMockSource(cfg, WithSineWave(440))
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer src.Stop()

	select {
	case chunk := <-src.Stream():
		if chunk.Level() == 0 {
			t.Error("expected non-silent chunk from sine source")
		}
	case <-time.After(time.Second):
		t.Fatal("no chunk received")
	}
}

func TestMockSourceDoubleStart(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	src := NewMockSource(cfg)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer src.Stop()

	if err := src.Start(context.Background()); err == nil {
		t.Error("expected error on second start")
	}
}

func TestMockSourceStopClosesStream(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock
	cfg.ChunkDuration = 5 * time.Millisecond

	src := NewMockSource(cfg)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Drain until closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-src.Stream():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after stop")
		}
	}
}

func TestMockSinkBufferedDrains(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	cfg.Backend = BackendMock

	sink := NewMockSink(cfg)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sink.Stop()

	// Queue 100ms of audio.
	chunk := Chunk{Samples: make([]int16, 2400), SampleRate: 24000, Channels: 1}
	if err := sink.Write(chunk); err != nil {
		t.Fatalf("write: %v", err)
	}

	if b := sink.Buffered(); b > 100*time.Millisecond || b < 50*time.Millisecond {
		t.Errorf("expected ~100ms buffered, got %v", b)
	}

	time.Sleep(120 * time.Millisecond)
	if b := sink.Buffered(); b != 0 {
		t.Errorf("expected drained buffer, got %v", b)
	}
}

func TestMockSinkClear(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	cfg.Backend = BackendMock

	sink := NewMockSink(cfg)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sink.Stop()

	chunk := Chunk{Samples: make([]int16, 24000), SampleRate: 24000, Channels: 1}
	if err := sink.Write(chunk); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink.Clear()
	if b := sink.Buffered(); b != 0 {
		t.Errorf("expected empty buffer after clear, got %v", b)
	}
	if w := sink.Written(); len(w) != 0 {
		t.Errorf("expected no retained chunks after clear, got %d", len(w))
	}
}

func TestMockSinkWriteBeforeStart(t *testing.T) {
	sink := NewMockSink(DefaultPlaybackConfig())
	if err := sink.Write(Chunk{}); err == nil {
		t.Error("expected error writing before start")
	}
}

func TestFactoryMockBackend(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if src.Name() != "mock" {
		t.Errorf("expected mock source, got %s", src.Name())
	}

	pcfg := DefaultPlaybackConfig()
	pcfg.Backend = BackendMock
	sink, err := NewSink(pcfg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if sink.Name() != "mock" {
		t.Errorf("expected mock sink, got %s", sink.Name())
	}
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultCaptureConfig()
	cfg.SampleRate = -1
	if _, err := NewSource(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}
