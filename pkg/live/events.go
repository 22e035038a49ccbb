package live

// Event is the closed set of inbound session events. Every raw message the
// transport delivers is parsed into zero or more of these; handlers switch
// over the concrete types exhaustively.
type Event interface {
	event()
}

// SetupCompleteEvent signals that the peer accepted the session setup and
// buffered outbound media may be flushed.
type SetupCompleteEvent struct{}

// TextEvent carries a text fragment of the model's response.
type TextEvent struct {
	Content string
}

// AudioEvent carries a chunk of synthesized PCM16 audio.
type AudioEvent struct {
	Data       []byte
	MimeType   string
	SampleRate int
}

// ToolCallEvent carries one or more function invocations from the peer.
type ToolCallEvent struct {
	Calls []ToolCallRequest
}

// TurnCompleteEvent marks the end of the model's current turn.
type TurnCompleteEvent struct{}

// InterruptedEvent signals the peer detected the user speaking over the
// model's response.
type InterruptedEvent struct{}

// InputTranscriptionEvent carries a transcription of the user's speech.
type InputTranscriptionEvent struct {
	Text     string
	Finished bool
}

// OutputTranscriptionEvent carries a transcription of the model's speech.
type OutputTranscriptionEvent struct {
	Text     string
	Finished bool
}

// ErrorEvent carries a protocol-level error reported by the peer.
type ErrorEvent struct {
	Detail string
}

func (SetupCompleteEvent) event()       {}
func (TextEvent) event()                {}
func (AudioEvent) event()               {}
func (ToolCallEvent) event()            {}
func (TurnCompleteEvent) event()        {}
func (InterruptedEvent) event()         {}
func (InputTranscriptionEvent) event()  {}
func (OutputTranscriptionEvent) event() {}
func (ErrorEvent) event()               {}

// ToolCallRequest is a single function invocation requested by the peer.
type ToolCallRequest struct {
	// ID is unique per remote invocation and anchors the response.
	ID string

	// Name is the registered operation to invoke.
	Name string

	// Args are the invocation arguments as decoded JSON.
	Args map[string]any
}
