package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stallworks/go-stallcam/pkg/listing"
	"github.com/stallworks/go-stallcam/pkg/pipeline"
)

// Built-in operation names the peer may invoke.
const (
	OpCaptureProduct  = "capture_product"
	OpFinalizeListing = "finalize_listing"
	OpProductChanged  = "product_changed"
)

// maxCaptures bounds each subject's capture group. The window slides;
// the oldest capture is evicted when full.
const maxCaptures = 9

// Capture is one reference view of the current item.
type Capture struct {
	Image       []byte
	Description string
	Taken       time.Time
}

// FinalizeResult is reported to the host when a background finalize
// completes, successfully or not.
type FinalizeResult struct {
	SubjectRef  string
	Draft       listing.Draft
	Success     bool
	RecordID    string
	ArtifactURL string
	Err         error
}

// Orchestrator executes tool calls from the peer. Capture calls are
// answered synchronously; finalize calls are acknowledged immediately and
// run against the pipeline in the background so the live turn never
// stalls. At most one finalize may be in flight per subject.
type Orchestrator struct {
	pipe    pipeline.Pipeline
	respond func(callID, name, result string) error
	frame   func() ([]byte, error)
	logger  *slog.Logger

	onResult func(FinalizeResult)

	mu       sync.Mutex
	extras   map[string]Tool
	groups   map[string][]Capture
	current  string
	inflight map[string]string
	closed   bool
}

// NewOrchestrator creates an orchestrator. respond returns tool results to
// the transport; frame provides the most recent camera frame.
func NewOrchestrator(pipe pipeline.Pipeline, respond func(callID, name, result string) error, frame func() ([]byte, error)) *Orchestrator {
	return &Orchestrator{
		pipe:     pipe,
		respond:  respond,
		frame:    frame,
		logger:   slog.Default().With("component", "orchestrator"),
		extras:   make(map[string]Tool),
		groups:   make(map[string][]Capture),
		inflight: make(map[string]string),
	}
}

// OnResult sets the finalize outcome callback.
func (o *Orchestrator) OnResult(fn func(FinalizeResult)) { o.onResult = fn }

// RegisterTool adds a custom tool beyond the built-in operations.
func (o *Orchestrator) RegisterTool(t Tool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extras[t.Name] = t
}

// Declarations returns the function declarations for session setup.
func (o *Orchestrator) Declarations() []map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()

	decls := []map[string]any{
		{
			"name":        OpCaptureProduct,
			"description": "Capture a reference photo of the item currently in front of the camera. Use when the seller shows the item or asks to take a picture.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subject_ref": map[string]any{"type": "string", "description": "Identifier of the item being captured, if known"},
					"description": map[string]any{"type": "string", "description": "What this view shows, e.g. 'label close-up'"},
				},
			},
		},
		{
			"name":        OpFinalizeListing,
			"description": "Create the marketplace listing for the current item using the captured photos. Use when enough is known about the item.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"subject_ref": map[string]any{"type": "string"},
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"price":       map[string]any{"type": "number"},
					"condition":   map[string]any{"type": "string", "enum": []string{"new", "like_new", "good", "fair", "poor"}},
					"brand":       map[string]any{"type": "string"},
					"category":    map[string]any{"type": "string"},
					"image_prompt": map[string]any{"type": "string", "description": "Staging instructions for the presentation image"},
				},
				"required": []string{"title"},
			},
		},
		{
			"name":        OpProductChanged,
			"description": "Report that a different item is now in front of the camera. Finalizes the previous item with whatever is known and starts tracking the new one.",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string", "description": "Best-effort title for the previous item"},
				},
			},
		},
	}

	for _, t := range o.extras {
		decls = append(decls, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		})
	}
	return decls
}

// Dispatch handles a batch of deduplicated tool calls in order. Unknown
// names get an immediate failure result; nothing is ever thrown back at
// the transport.
func (o *Orchestrator) Dispatch(calls []ToolCallRequest) {
	for _, call := range calls {
		switch call.Name {
		case OpCaptureProduct:
			o.handleCapture(call)
		case OpFinalizeListing:
			o.handleFinalize(call)
		case OpProductChanged:
			o.handleProductChanged(call)
		default:
			o.handleExtra(call)
		}
	}
}

// CurrentSubject returns the subject reference being tracked, if any.
func (o *Orchestrator) CurrentSubject() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Captures returns a copy of the capture group for a subject.
func (o *Orchestrator) Captures(subjectRef string) []Capture {
	o.mu.Lock()
	defer o.mu.Unlock()
	group := o.groups[subjectRef]
	out := make([]Capture, len(group))
	copy(out, group)
	return out
}

// Close releases all session-scoped state. In-flight pipeline calls are
// not cancelled; their results are discarded by the closed check before
// the host callback fires.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.groups = make(map[string][]Capture)
	o.inflight = make(map[string]string)
	o.current = ""
}

func (o *Orchestrator) handleCapture(call ToolCallRequest) {
	image, err := o.frame()
	if err != nil {
		o.reply(call, "No camera frame is available yet. Ask the seller to hold the item in view.")
		return
	}

	subject := argString(call.Args, "subject_ref")
	description := argString(call.Args, "description")

	o.mu.Lock()
	if subject == "" {
		if o.current == "" {
			o.current = uuid.New().String()
		}
		subject = o.current
	} else {
		o.current = subject
	}

	group := append(o.groups[subject], Capture{Image: image, Description: description, Taken: time.Now()})
	if len(group) > maxCaptures {
		group = group[len(group)-maxCaptures:]
	}
	o.groups[subject] = group
	count := len(group)
	o.mu.Unlock()

	o.reply(call, fmt.Sprintf("Captured photo %d of the item (subject %s).", count, subject))
}

func (o *Orchestrator) handleFinalize(call ToolCallRequest) {
	draft := listing.NormalizeArgs(call.Args)
	if !o.beginFinalize(&draft, call.ID) {
		o.reply(call, "That item is already being finalized.")
		return
	}

	// Acknowledge before the slow work so the peer's turn is not blocked.
	o.reply(call, fmt.Sprintf("Finalizing the listing for %q in the background.", draft.Title))
}

// beginFinalize resolves the subject, claims the in-flight slot and starts
// the background run. Returns false if a finalize for the subject is
// already outstanding.
func (o *Orchestrator) beginFinalize(draft *listing.Draft, callID string) bool {
	o.mu.Lock()
	// Subject precedence: explicit argument, then the tracked subject,
	// then a fresh reference.
	if draft.SubjectRef == "" {
		draft.SubjectRef = o.current
	}
	if draft.SubjectRef == "" {
		draft.SubjectRef = uuid.New().String()
	}

	if _, busy := o.inflight[draft.SubjectRef]; busy {
		o.mu.Unlock()
		return false
	}
	key := draft.SubjectRef + "|" + callID + "|" + draft.TitleHash()
	o.inflight[draft.SubjectRef] = key

	var images []pipeline.ReferenceImage
	for _, c := range o.groups[draft.SubjectRef] {
		images = append(images, pipeline.ReferenceImage{Data: c.Image, Description: c.Description})
	}
	o.mu.Unlock()

	go o.runFinalize(*draft, images)
	return true
}

// runFinalize invokes the pipeline and reports the outcome. Bookkeeping is
// released on every path.
func (o *Orchestrator) runFinalize(draft listing.Draft, images []pipeline.ReferenceImage) {
	result, err := o.pipe.Finalize(context.Background(), pipeline.NewRequest(draft, images))

	o.mu.Lock()
	delete(o.inflight, draft.SubjectRef)
	delete(o.groups, draft.SubjectRef)
	if o.current == draft.SubjectRef {
		o.current = ""
	}
	closed := o.closed
	o.mu.Unlock()

	if closed {
		o.logger.Debug("finalize result discarded, session closed", "subject", draft.SubjectRef)
		return
	}

	out := FinalizeResult{SubjectRef: draft.SubjectRef, Draft: draft}
	if err != nil {
		out.Err = err
		o.logger.Warn("finalize failed", "subject", draft.SubjectRef, "error", err)
	} else {
		out.Success = true
		out.RecordID = result.RecordID
		out.ArtifactURL = result.ArtifactURL
	}
	if o.onResult != nil {
		o.onResult(out)
	}
}

// handleProductChanged finalizes the previous subject with best-effort
// defaults, then starts a fresh capture group. Finalization is never
// deferred waiting for more information.
func (o *Orchestrator) handleProductChanged(call ToolCallRequest) {
	o.mu.Lock()
	previous := o.current
	o.current = uuid.New().String()
	next := o.current
	o.mu.Unlock()

	if previous != "" {
		title := argString(call.Args, "title")
		if title == "" {
			title = "Untitled item"
		}
		draft := listing.Draft{
			SubjectRef: previous,
			Title:      title,
			Condition:  listing.DefaultCondition,
		}
		if o.beginFinalize(&draft, call.ID) {
			o.reply(call, fmt.Sprintf("Finalizing the previous item as %q and tracking the new one as subject %s.", title, next))
			return
		}
	}

	o.reply(call, fmt.Sprintf("Tracking the new item as subject %s.", next))
}

func (o *Orchestrator) handleExtra(call ToolCallRequest) {
	o.mu.Lock()
	tool, ok := o.extras[call.Name]
	o.mu.Unlock()

	if !ok || tool.Handler == nil {
		o.reply(call, fmt.Sprintf("Function %s is not available.", call.Name))
		return
	}

	result, err := tool.Handler(call.Args)
	if err != nil {
		result = fmt.Sprintf("Error: %v", err)
	}
	o.reply(call, result)
}

func (o *Orchestrator) reply(call ToolCallRequest, result string) {
	if err := o.respond(call.ID, call.Name, result); err != nil {
		o.logger.Warn("tool response failed", "call", call.Name, "error", err)
	}
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
