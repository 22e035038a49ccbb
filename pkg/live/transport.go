package live

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport owns the single WebSocket channel to the peer and the session
// state machine. All writes are serialized; inbound frames are delivered
// raw to the message handler one at a time.
type Transport struct {
	cfg    Config
	logger *slog.Logger

	// ws is guarded by wsMu on every access; state by mu.
	ws   *websocket.Conn
	wsMu sync.Mutex

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc

	// stateCh carries transitions to a single dispatch goroutine so the
	// host observes them in order. Closed on the terminal transition.
	stateCh chan State

	toolDecls []map[string]any
	onState   func(State)
	onMessage func(raw []byte)
	onError   func(error)
}

// NewTransport creates a disconnected transport.
func NewTransport(cfg Config) *Transport {
	t := &Transport{
		cfg:     cfg,
		logger:  slog.Default().With("component", "transport"),
		state:   StateIdle,
		stateCh: make(chan State, 8),
	}
	go t.dispatchStates()
	return t
}

// dispatchStates delivers transitions to the host one at a time, in the
// order they happened. The channel is closed after StateClosed.
func (t *Transport) dispatchStates() {
	for next := range t.stateCh {
		if fn := t.onState; fn != nil {
			fn(next)
		}
	}
}

// SetToolDeclarations sets the function declarations announced at setup.
// Must be called before Connect.
func (t *Transport) SetToolDeclarations(decls []map[string]any) {
	t.toolDecls = decls
}

// OnState sets the state transition callback.
func (t *Transport) OnState(fn func(State)) { t.onState = fn }

// OnMessage sets the raw inbound message handler.
func (t *Transport) OnMessage(fn func(raw []byte)) { t.onMessage = fn }

// OnError sets the callback for transport faults.
func (t *Transport) OnError(fn func(error)) { t.onError = fn }

// State returns the current session state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect opens the channel and sends the setup frame. Calling it while
// already connecting or connected is a no-op. A closed transport cannot
// be reconnected; create a new one.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateConnecting || t.state == StateConnected {
		t.mu.Unlock()
		return nil
	}
	if t.state == StateClosed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.setStateLocked(StateConnecting)
	t.mu.Unlock()

	url := fmt.Sprintf("%s?key=%s", t.cfg.Endpoint, t.cfg.APIKey)
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		t.mu.Lock()
		if t.state == StateConnecting {
			t.setStateLocked(StateError)
		}
		t.mu.Unlock()
		return fmt.Errorf("live: connect: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.state != StateConnecting {
		// Closed while dialing.
		t.mu.Unlock()
		cancel()
		ws.Close()
		return ErrClosed
	}
	t.cancel = cancel
	t.mu.Unlock()

	t.wsMu.Lock()
	t.ws = ws
	t.wsMu.Unlock()

	if err := t.writeJSON(setupMessage(t.cfg, t.toolDecls)); err != nil {
		t.Close()
		return fmt.Errorf("live: setup: %w", err)
	}

	go t.readLoop()
	go t.keepAlive(runCtx)
	return nil
}

// ConfirmSetup transitions to Connected after the peer acknowledges setup.
func (t *Transport) ConfirmSetup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateConnecting {
		t.setStateLocked(StateConnected)
	}
}

// SendMedia forwards one media chunk to the peer.
func (t *Transport) SendMedia(data []byte, mimeType string) error {
	if t.State() != StateConnected {
		return ErrNotConnected
	}
	return t.writeJSON(mediaMessage(data, mimeType))
}

// SendToolResponse returns a function result to the peer.
func (t *Transport) SendToolResponse(callID, name, result string) error {
	if t.State() != StateConnected {
		return ErrNotConnected
	}
	return t.writeJSON(toolResponseMessage(callID, name, result))
}

// Close tears down the channel. Idempotent and safe to call at any point
// in the lifecycle, including mid-Connect.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		return nil
	}
	t.setStateLocked(StateClosed)
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	t.wsMu.Lock()
	ws := t.ws
	t.ws = nil
	t.wsMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		return ws.Close()
	}
	return nil
}

func (t *Transport) readLoop() {
	for {
		t.wsMu.Lock()
		ws := t.ws
		t.wsMu.Unlock()
		if ws == nil || t.State() == StateClosed {
			return
		}

		_, raw, err := ws.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.state == StateClosed
			if !closed {
				t.setStateLocked(StateError)
			}
			t.mu.Unlock()

			if !closed {
				t.logger.Warn("read failed", "error", err)
				if t.onError != nil {
					t.onError(err)
				}
			}
			return
		}

		if t.onMessage != nil {
			t.onMessage(raw)
		}
	}
}

func (t *Transport) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.wsMu.Lock()
			ws := t.ws
			if ws != nil {
				ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			t.wsMu.Unlock()
		}
	}
}

func (t *Transport) writeJSON(v any) error {
	t.wsMu.Lock()
	defer t.wsMu.Unlock()
	if t.ws == nil {
		return ErrNotConnected
	}
	return t.ws.WriteJSON(v)
}

// setStateLocked transitions the state and hands it to the dispatch
// goroutine. Caller holds t.mu; the callback itself runs without the
// lock, so re-entrant calls cannot deadlock. Queueing keeps rapid
// transitions in order. StateClosed is terminal and closes the queue.
func (t *Transport) setStateLocked(next State) {
	if t.state == next {
		return
	}
	t.state = next
	t.logger.Debug("state transition", "state", next.String())
	t.stateCh <- next
	if next == StateClosed {
		close(t.stateCh)
	}
}
