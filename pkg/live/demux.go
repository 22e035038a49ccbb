package live

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const (
	// dedupRingSize bounds the audio recency window.
	dedupRingSize = 64

	// processedIDsCap bounds the tool-call dedup set.
	processedIDsCap = 256
)

// Demux parses raw inbound frames into the closed Event set, suppressing
// duplicated audio chunks, repeated tool-call IDs and redundant
// turn-complete signals. Malformed frames are logged and dropped.
//
// Demux is not safe for concurrent use; the transport delivers messages
// one at a time.
type Demux struct {
	logger *slog.Logger
	now    func() time.Time

	audioDedup   *dedupWindow
	turnCooldown time.Duration
	lastTurn     time.Time

	processed      map[string]struct{}
	processedOrder []string
}

// NewDemux creates a demultiplexer with the configured dedup windows.
func NewDemux(cfg Config) *Demux {
	return &Demux{
		logger:       slog.Default().With("component", "demux"),
		now:          time.Now,
		audioDedup:   newDedupWindow(cfg.DedupWindow, dedupRingSize),
		turnCooldown: cfg.TurnCooldown,
		processed:    make(map[string]struct{}),
	}
}

// Parse converts one raw frame into zero or more events. A single frame
// may carry a tool call and a turn-complete signal simultaneously.
func (d *Demux) Parse(raw []byte) []Event {
	var msg serverMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Warn("malformed frame dropped", "error", err)
		return nil
	}

	var events []Event

	if msg.SetupComplete != nil {
		events = append(events, SetupCompleteEvent{})
	}

	if msg.ServerContent != nil {
		events = append(events, d.parseContent(msg.ServerContent)...)
	}

	if msg.ToolCall != nil {
		if ev, ok := d.parseToolCall(msg.ToolCall); ok {
			events = append(events, ev)
		}
	}

	if msg.ToolCallCancellation != nil {
		d.logger.Debug("tool call cancelled", "ids", msg.ToolCallCancellation.IDs)
	}

	if msg.Error != nil {
		events = append(events, ErrorEvent{Detail: msg.Error.Message})
	}

	return events
}

func (d *Demux) parseContent(content *serverContent) []Event {
	var events []Event

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.Text != "" {
				events = append(events, TextEvent{Content: part.Text})
			}
			if part.InlineData == nil {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MimeType, "audio/pcm") {
				d.logger.Debug("unsupported inline data dropped", "mime", part.InlineData.MimeType)
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				d.logger.Warn("undecodable audio dropped", "error", err)
				continue
			}
			if d.audioDedup.Seen(data, d.now()) {
				continue
			}
			events = append(events, AudioEvent{
				Data:       data,
				MimeType:   part.InlineData.MimeType,
				SampleRate: sampleRateFromMime(part.InlineData.MimeType),
			})
		}
	}

	if content.InputTranscription != nil {
		events = append(events, InputTranscriptionEvent{
			Text:     content.InputTranscription.Text,
			Finished: content.InputTranscription.Finished,
		})
	}
	if content.OutputTranscription != nil {
		events = append(events, OutputTranscriptionEvent{
			Text:     content.OutputTranscription.Text,
			Finished: content.OutputTranscription.Finished,
		})
	}

	if content.Interrupted {
		events = append(events, InterruptedEvent{})
	}

	if content.TurnComplete {
		now := d.now()
		if d.lastTurn.IsZero() || now.Sub(d.lastTurn) >= d.turnCooldown {
			d.lastTurn = now
			events = append(events, TurnCompleteEvent{})
		}
	}

	return events
}

// parseToolCall filters out already-processed invocation IDs so each call
// dispatches at most once even if the peer resends it.
func (d *Demux) parseToolCall(tc *wireToolCall) (ToolCallEvent, bool) {
	var calls []ToolCallRequest
	for _, fc := range tc.FunctionCalls {
		if fc.ID == "" || fc.Name == "" {
			d.logger.Warn("tool call missing id or name dropped")
			continue
		}
		if _, seen := d.processed[fc.ID]; seen {
			continue
		}
		d.markProcessed(fc.ID)
		calls = append(calls, ToolCallRequest{ID: fc.ID, Name: fc.Name, Args: fc.Args})
	}
	if len(calls) == 0 {
		return ToolCallEvent{}, false
	}
	return ToolCallEvent{Calls: calls}, true
}

func (d *Demux) markProcessed(id string) {
	if len(d.processedOrder) >= processedIDsCap {
		oldest := d.processedOrder[0]
		d.processedOrder = d.processedOrder[1:]
		delete(d.processed, oldest)
	}
	d.processed[id] = struct{}{}
	d.processedOrder = append(d.processedOrder, id)
}

// Reset releases all dedup state. Called on session close.
func (d *Demux) Reset() {
	d.audioDedup.Reset()
	d.lastTurn = time.Time{}
	d.processed = make(map[string]struct{})
	d.processedOrder = nil
}

// sampleRateFromMime extracts the rate suffix from mime types like
// "audio/pcm;rate=24000". Defaults to 24000.
func sampleRateFromMime(mime string) int {
	const marker = "rate="
	idx := strings.Index(mime, marker)
	if idx < 0 {
		return 24000
	}
	rate := 0
	for _, r := range mime[idx+len(marker):] {
		if r < '0' || r > '9' {
			break
		}
		rate = rate*10 + int(r-'0')
	}
	if rate == 0 {
		return 24000
	}
	return rate
}
