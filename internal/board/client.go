package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	syncsvc "inkpad/internal/services/sync"

	"github.com/gorilla/websocket"
)

const (
	clientWriteTimeout = 10 * time.Second
	clientDialTimeout  = 10 * time.Second
)

// Client is the websocket sync client a board session uses to join its
// room, publish local changes, and receive changes from the user's other
// sessions.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
	log  *slog.Logger

	// OnNotebookSync is invoked for every notebook-sync frame received.
	OnNotebookSync func(syncsvc.NotebookChangePayload)
	// OnNotesSync is invoked for every notes-sync frame received.
	OnNotesSync func(syncsvc.NoteChangePayload)
}

// Dial connects to the sync endpoint, authenticating with the bearer token.
func Dial(ctx context.Context, rawURL, token string, log *slog.Logger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: clientDialTimeout}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial sync endpoint: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial sync endpoint: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &Client{conn: conn, log: log}, nil
}

// Join announces which broadcast group this session belongs to. It must be
// sent before any change is published. The payload is the bare user-id
// string, matching what the server's original clients send.
func (c *Client) Join(userID string) error {
	payload, err := json.Marshal(userID)
	if err != nil {
		return err
	}
	return c.writeFrame(syncsvc.Frame{Event: syncsvc.EventJoinRoom, Payload: payload})
}

// PublishNotebook sends a whole-notebook snapshot to the user's other
// sessions. Fire-and-forget: no acknowledgement is expected.
func (c *Client) PublishNotebook(userID, notebookID string, notebook any) error {
	snapshot, err := json.Marshal(notebook)
	if err != nil {
		return fmt.Errorf("marshal notebook snapshot: %w", err)
	}
	payload, err := json.Marshal(syncsvc.NotebookChangePayload{
		UserID:     userID,
		NotebookID: notebookID,
		Notebook:   snapshot,
	})
	if err != nil {
		return err
	}
	return c.writeFrame(syncsvc.Frame{Event: syncsvc.KindNotebookChange, Payload: payload})
}

// PublishNote sends a whole-note snapshot to the user's other sessions.
func (c *Client) PublishNote(userID string, note any) error {
	snapshot, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal note snapshot: %w", err)
	}
	payload, err := json.Marshal(syncsvc.NoteChangePayload{
		UserID: userID,
		Note:   snapshot,
	})
	if err != nil {
		return err
	}
	return c.writeFrame(syncsvc.Frame{Event: syncsvc.KindNoteChange, Payload: payload})
}

// Listen reads frames until the connection drops or ctx is canceled,
// dispatching sync events to the registered callbacks. Unknown events are
// ignored.
func (c *Client) Listen(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	for {
		var frame syncsvc.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read sync frame: %w", err)
		}
		c.dispatch(frame)
	}
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(clientWriteTimeout))
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) dispatch(frame syncsvc.Frame) {
	switch frame.Event {
	case syncsvc.EventNotebookSync:
		if c.OnNotebookSync == nil {
			return
		}
		var payload syncsvc.NotebookChangePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			if c.log != nil {
				c.log.Warn("malformed notebook-sync payload", "error", err)
			}
			return
		}
		c.OnNotebookSync(payload)
	case syncsvc.EventNotesSync:
		if c.OnNotesSync == nil {
			return
		}
		var payload syncsvc.NoteChangePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			if c.log != nil {
				c.log.Warn("malformed notes-sync payload", "error", err)
			}
			return
		}
		c.OnNotesSync(payload)
	default:
		if c.log != nil {
			c.log.Debug("ignoring unknown sync event", "event", frame.Event)
		}
	}
}

func (c *Client) writeFrame(frame syncsvc.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(frame)
}
