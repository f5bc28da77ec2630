package voice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// WebSocketTransport runs the control channel over a websocket instead of a
// peer connection. Useful for server-side sessions where no media path is
// needed, since all audio already travels as control events.
type WebSocketTransport struct {
	endpoint string
	model    string
	apiKey   string
	logger   *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	events  chan []byte
	closed  bool
	writeMu sync.Mutex
}

// NewWebSocketTransport creates a websocket transport for the given realtime
// endpoint, e.g. "wss://api.openai.com/v1/realtime".
func NewWebSocketTransport(endpoint, model, apiKey string, logger *logging.Logger) *WebSocketTransport {
	if endpoint == "" {
		endpoint = "wss://api.openai.com/v1/realtime"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebSocketTransport{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		logger:   logger,
		events:   make(chan []byte, 64),
	}
}

// Connect dials the websocket and starts the read pump.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	dialURL := fmt.Sprintf("%s?model=%s", t.endpoint, url.QueryEscape(t.model))
	header := http.Header{}
	header.Set("Authorization", "Bearer "+t.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, dialURL, header)
	if err != nil {
		if resp != nil {
			return classifyNegotiationStatus(resp.StatusCode)
		}
		return newSessionError(FailureNetwork, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readPump()
	t.logger.Info("websocket control channel established")
	return nil
}

// Send writes one control message.
func (t *WebSocketTransport) Send(msg []byte) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()
	if closed || conn == nil {
		return errors.New("voice: transport not connected")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// Events returns the inbound control message stream.
func (t *WebSocketTransport) Events() <-chan []byte {
	return t.events
}

// Close shuts the connection down. Safe to call more than once.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	close(t.events)
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (t *WebSocketTransport) readPump() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.logger.Info("websocket read loop ended", "error", err)
			t.Close()
			return
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		select {
		case t.events <- data:
		default:
			t.logger.Warn("dropping control message, event buffer full")
		}
		t.mu.Unlock()
	}
}
