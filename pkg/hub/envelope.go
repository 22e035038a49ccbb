// Package hub fans dashboard updates out to websocket subscribers using
// the channel-based hub pattern. Slow subscribers are dropped rather
// than allowed to stall the broadcast.
package hub

import "encoding/json"

// Kind tags a dashboard update so browser clients can route it without
// sniffing the payload.
type Kind string

const (
	// KindStatus carries the full session state snapshot.
	KindStatus Kind = "status"

	// KindTranscript carries one line of seller or assistant speech.
	KindTranscript Kind = "transcript"

	// KindEvent carries a capture, finalize or info notification.
	KindEvent Kind = "event"

	// KindFrame carries a JPEG camera preview frame.
	KindFrame Kind = "frame"
)

// Envelope is one update queued for fan-out. Frame envelopes hold raw
// JPEG bytes and travel as binary websocket messages; every other kind
// is pre-encoded once as {"kind":...,"data":...} JSON so the encoding
// cost is paid per broadcast, not per subscriber.
type Envelope struct {
	Kind Kind
	Data []byte
}

// Wrap encodes a payload under its kind tag.
func Wrap(kind Kind, payload any) (Envelope, error) {
	data, err := json.Marshal(struct {
		Kind Kind `json:"kind"`
		Data any  `json:"data"`
	}{kind, payload})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Data: data}, nil
}

// FrameEnvelope wraps a JPEG preview frame.
func FrameEnvelope(jpeg []byte) Envelope {
	return Envelope{Kind: KindFrame, Data: jpeg}
}

// binary reports whether the envelope goes out as a binary message.
func (e Envelope) binary() bool { return e.Kind == KindFrame }
