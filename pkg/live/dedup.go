package live

import (
	"hash/fnv"
	"time"
)

// dedupWindow is a fixed-size ring of recently seen payload keys. An entry
// suppresses re-delivery of a matching payload for the window duration;
// old entries are overwritten as the ring wraps, so no sweep is needed.
type dedupWindow struct {
	window  time.Duration
	entries []dedupEntry
	next    int
}

type dedupEntry struct {
	key  uint64
	seen time.Time
}

func newDedupWindow(window time.Duration, size int) *dedupWindow {
	return &dedupWindow{
		window:  window,
		entries: make([]dedupEntry, size),
	}
}

// Seen reports whether an equal payload was recorded within the window.
// If not, the payload is recorded.
func (w *dedupWindow) Seen(payload []byte, now time.Time) bool {
	key := payloadKey(payload)
	for _, e := range w.entries {
		if e.key == key && !e.seen.IsZero() && now.Sub(e.seen) < w.window {
			return true
		}
	}
	w.entries[w.next] = dedupEntry{key: key, seen: now}
	w.next = (w.next + 1) % len(w.entries)
	return false
}

// Reset clears all recorded entries.
func (w *dedupWindow) Reset() {
	for i := range w.entries {
		w.entries[i] = dedupEntry{}
	}
	w.next = 0
}

// payloadKey hashes payload length and a short content prefix. Chunks that
// share the first 32 bytes and total length are treated as identical.
func payloadKey(payload []byte) uint64 {
	h := fnv.New64a()
	prefix := payload
	if len(prefix) > 32 {
		prefix = prefix[:32]
	}
	h.Write(prefix)
	var lenBytes [8]byte
	n := len(payload)
	for i := 0; i < 8; i++ {
		lenBytes[i] = byte(n >> (8 * i))
	}
	h.Write(lenBytes[:])
	return h.Sum64()
}
