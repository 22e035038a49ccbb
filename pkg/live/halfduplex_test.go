package live

import "testing"

func TestHalfDuplexSpeakingLifecycle(t *testing.T) {
	h := NewHalfDuplex(DefaultConfig(), func() bool { return false })

	if h.ModelSpeaking() {
		t.Fatal("should start unmuted")
	}

	h.OnModelAudio()
	if !h.ModelSpeaking() {
		t.Error("model audio should mute the microphone path")
	}

	h.OnTurnComplete()
	if h.ModelSpeaking() {
		t.Error("turn completion should unmute")
	}
}

func TestHalfDuplexSpuriousInterruptedIgnored(t *testing.T) {
	h := NewHalfDuplex(DefaultConfig(), func() bool { return true })

	// Interrupted while the model is silent is spurious: no state change
	// and the caller must not clear playback.
	if h.OnInterrupted() {
		t.Error("spurious interruption must not be acted on")
	}
	if h.ModelSpeaking() {
		t.Error("spurious interruption must not change state")
	}
}

func TestHalfDuplexRealInterrupted(t *testing.T) {
	h := NewHalfDuplex(DefaultConfig(), func() bool { return false })

	h.OnModelAudio()
	if !h.OnInterrupted() {
		t.Error("interruption while speaking should be acted on")
	}
	if h.ModelSpeaking() {
		t.Error("interruption should unmute")
	}
}

func TestHalfDuplexFailSafe(t *testing.T) {
	idle := false
	h := NewHalfDuplex(DefaultConfig(), func() bool { return idle })

	h.OnModelAudio()

	// Queue still has audio: no fail-safe.
	h.check()
	h.check()
	if !h.ModelSpeaking() {
		t.Fatal("fail-safe must not fire while playback is active")
	}

	// Queue empty: one check is not enough (audio may be pre-buffering),
	// two consecutive empty checks force the unmute.
	idle = true
	h.check()
	if !h.ModelSpeaking() {
		t.Fatal("fail-safe fired after a single empty check")
	}
	h.check()
	if h.ModelSpeaking() {
		t.Error("fail-safe should have unmuted after two empty checks")
	}
}

func TestHalfDuplexFailSafeResetByAudio(t *testing.T) {
	h := NewHalfDuplex(DefaultConfig(), func() bool { return true })

	h.OnModelAudio()
	h.check()
	// New audio arrives; the empty streak restarts.
	h.OnModelAudio()
	h.check()
	if !h.ModelSpeaking() {
		t.Error("new model audio should reset the fail-safe streak")
	}
}
