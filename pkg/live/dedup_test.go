package live

import (
	"testing"
	"time"
)

func TestDedupWindowSuppressesRepeats(t *testing.T) {
	w := newDedupWindow(100*time.Millisecond, 8)
	base := time.Now()
	payload := []byte("identical audio chunk payload")

	if w.Seen(payload, base) {
		t.Fatal("first delivery should not be suppressed")
	}
	if !w.Seen(payload, base.Add(50*time.Millisecond)) {
		t.Error("repeat within the window should be suppressed")
	}
}

func TestDedupWindowExpires(t *testing.T) {
	w := newDedupWindow(100*time.Millisecond, 8)
	base := time.Now()
	payload := []byte("identical audio chunk payload")

	if w.Seen(payload, base) {
		t.Fatal("first delivery should not be suppressed")
	}
	if w.Seen(payload, base.Add(150*time.Millisecond)) {
		t.Error("repeat outside the window should be delivered")
	}
}

func TestDedupWindowDistinctPayloads(t *testing.T) {
	w := newDedupWindow(100*time.Millisecond, 8)
	now := time.Now()

	if w.Seen([]byte("chunk one"), now) {
		t.Error("chunk one should not be suppressed")
	}
	if w.Seen([]byte("chunk two"), now) {
		t.Error("chunk two should not be suppressed")
	}
}

func TestDedupWindowRingWraps(t *testing.T) {
	w := newDedupWindow(time.Hour, 2)
	now := time.Now()

	w.Seen([]byte("a"), now)
	w.Seen([]byte("b"), now)
	// "c" overwrites "a" in the two-entry ring.
	w.Seen([]byte("c"), now)

	if w.Seen([]byte("a"), now) {
		t.Error("evicted entry should no longer suppress")
	}
}

func TestPayloadKeyUsesLength(t *testing.T) {
	// Same 32-byte prefix, different total lengths.
	long := make([]byte, 64)
	short := make([]byte, 40)
	if payloadKey(long) == payloadKey(short) {
		t.Error("payloads differing only in length must hash differently")
	}
}

func TestDedupWindowReset(t *testing.T) {
	w := newDedupWindow(time.Hour, 8)
	now := time.Now()
	payload := []byte("payload")

	w.Seen(payload, now)
	w.Reset()
	if w.Seen(payload, now) {
		t.Error("reset should clear recorded entries")
	}
}
