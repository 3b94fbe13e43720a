package sync

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"inkpad/cmd/server/ctxkeys"
	"inkpad/cmd/server/handlers/handlerutil"
	"inkpad/cmd/server/handlers/httperr"
	"inkpad/internal/logger"
	syncsvc "inkpad/internal/services/sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

const (
	// WSClosePolicyViolation represents WebSocket close code for policy violation
	WSClosePolicyViolation = 1008

	// WebSocket timeout constants
	wsWriteTimeout     = 10 * time.Second // Timeout for writing messages to WebSocket
	wsPingInterval     = 25 * time.Second // Interval for sending ping messages
	wsPingWriteTimeout = 5 * time.Second  // Timeout for writing ping messages

	msgFailedToCloseWebSocketConnection = "failed to close WebSocket connection"
)

// Hub is the session registry the stream handler relays through.
type Hub interface {
	Join(sessionID ulid.ULID, userID string) (*syncsvc.Session, func())
	Leave(sessionID ulid.ULID)
	Publish(ctx context.Context, origin ulid.ULID, msg syncsvc.Message)
}

// WebSocketHandlers contains WebSocket-related handlers
type WebSocketHandlers struct {
	hub           Hub
	jwtSecret     string
	maxSessionSec int
}

// NewWebSocketHandlers creates new WebSocket handlers
func NewWebSocketHandlers(hub Hub, jwtSecret string, maxSessionSec int) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub:           hub,
		jwtSecret:     jwtSecret,
		maxSessionSec: maxSessionSec,
	}
}

// WSUpgrade authenticates the upgrade request. The token is accepted from
// the Authorization header or the "token" query parameter; browser
// WebSocket clients cannot set headers.
func (h *WebSocketHandlers) WSUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		token := handlerutil.BearerOrQueryToken(c)
		if token == "" {
			logger.L().Warn("missing token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path())
			return httperr.Fail(httperr.E{
				Status:  401,
				Message: "Missing token",
			})
		}

		userID, userEmail, err := handlerutil.ValidateToken(token, h.jwtSecret)
		if err != nil {
			logger.L().Warn("invalid token in websocket upgrade", "handler", "WSUpgrade", "path", c.Path(), "error", err)
			return httperr.Fail(httperr.E{
				Status:  401,
				Message: "Invalid token",
			})
		}

		// Store user info and context in locals for the WebSocket handler
		c.Locals(ctxkeys.UserIDKey, userID.Hex())
		c.Locals(ctxkeys.UserEmailKey, userEmail)
		// Use Fiber's request-bound context so WSSyncStream gets a real context.Context.
		c.Locals(ctxkeys.ParentCtxKey, c.UserContext())

		return c.Next()
	}

	logger.L().Warn("websocket upgrade required", "handler", "WSUpgrade", "path", c.Path())
	return httperr.Fail(httperr.E{
		Status:  400,
		Message: "WebSocket upgrade required",
	})
}

// WSSyncStream runs one realtime session. The client first sends a
// join-room frame naming its broadcast group, then any number of
// notebook-change / note-change frames; changes from the user's other
// sessions arrive as notebook-sync / notes-sync frames. Frames sent before
// joining are dropped.
func (h *WebSocketHandlers) WSSyncStream(c *websocket.Conn) {
	conn, parentCtx, err := h.initializeConnection(c)
	if err != nil {
		h.closeConnection(c)
		return
	}

	ctx, cancelCtx := context.WithCancel(parentCtx)
	defer cancelCtx()

	// The session may or may not ever join a room; Leave is a no-op either way.
	defer h.hub.Leave(conn.sessionULID)

	logger.L().Info("WebSocket connection established", "user_id", conn.authUserID, "conn_id", conn.connID)

	sessionTimer := h.startSessionTimer(c, conn, cancelCtx)
	defer h.stopSessionTimer(sessionTimer)

	ping := h.startKeepAlive(c, conn)
	defer ping.Stop()

	h.handleIncomingFrames(ctx, c, conn)

	logger.L().Info("WebSocket connection closed", "user_id", conn.authUserID, "conn_id", conn.connID)
	cancelCtx()
}

// wsConnection holds connection-specific data
type wsConnection struct {
	authUserID  string
	sessionULID ulid.ULID
	connID      string
	sess        *syncsvc.Session
}

// initializeConnection validates and sets up the WebSocket connection
func (h *WebSocketHandlers) initializeConnection(c *websocket.Conn) (*wsConnection, context.Context, error) {
	userIDStr, ok := c.Locals(ctxkeys.UserIDKey).(string)
	if !ok {
		logger.L().Error(ctxkeys.UserIDKey + " not found in WebSocket context")
		return nil, nil, fmt.Errorf(ctxkeys.UserIDKey + " not found")
	}

	parentCtx, ok := c.Locals(ctxkeys.ParentCtxKey).(context.Context)
	if !ok {
		logger.L().Error(ctxkeys.ParentCtxKey + " not found in WebSocket context")
		return nil, nil, fmt.Errorf(ctxkeys.ParentCtxKey + " not found")
	}

	sessionULID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader)

	conn := &wsConnection{
		authUserID:  userIDStr,
		sessionULID: sessionULID,
		connID:      sessionULID.String(),
	}

	return conn, parentCtx, nil
}

// closeConnection safely closes the WebSocket connection
func (h *WebSocketHandlers) closeConnection(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		logger.L().Error(msgFailedToCloseWebSocketConnection, "error", err)
	}
}

// startSessionTimer creates and starts the session timeout timer
func (h *WebSocketHandlers) startSessionTimer(c *websocket.Conn, conn *wsConnection, cancelCtx context.CancelFunc) *time.Timer {
	return time.AfterFunc(time.Duration(h.maxSessionSec)*time.Second, func() {
		logger.L().Info("WebSocket session timeout", "user_id", conn.authUserID, "conn_id", conn.connID)
		h.sendCloseMessage(c, conn)
		h.closeConnection(c)
		cancelCtx()
	})
}

// stopSessionTimer safely stops the session timer
func (h *WebSocketHandlers) stopSessionTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

// sendCloseMessage sends a close frame to the client
func (h *WebSocketHandlers) sendCloseMessage(c *websocket.Conn, conn *wsConnection) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(WSClosePolicyViolation, "session timeout"))
	if err != nil {
		logger.L().Error("failed to send close message", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
	}
}

// startKeepAlive starts the keep-alive ping mechanism
func (h *WebSocketHandlers) startKeepAlive(c *websocket.Conn, conn *wsConnection) *time.Ticker {
	ping := time.NewTicker(wsPingInterval)
	go func() {
		for range ping.C {
			if h.sendPing(c, conn) != nil {
				return
			}
		}
	}()
	return ping
}

// sendPing sends a ping message to the client
func (h *WebSocketHandlers) sendPing(c *websocket.Conn, conn *wsConnection) error {
	if err := c.SetWriteDeadline(time.Now().Add(wsPingWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
		return err
	}
	if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
		logger.L().Warn("failed to write ping message", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
		return err
	}
	return nil
}

// handleIncomingFrames reads frames from the client until the connection
// drops. A join-room frame starts the relay for this session; change frames
// are fanned out to the rest of the room.
func (h *WebSocketHandlers) handleIncomingFrames(ctx context.Context, c *websocket.Conn, conn *wsConnection) {
	for {
		var frame syncsvc.Frame
		if err := c.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.L().Error("WebSocket error", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
			}
			return
		}

		switch frame.Event {
		case syncsvc.EventJoinRoom:
			h.handleJoin(ctx, c, conn, frame)
		default:
			h.handleChange(ctx, conn, frame)
		}
	}
}

// handleJoin registers the session in its broadcast group and starts the
// outgoing relay. Joining twice is harmless; joining a different room moves
// the session.
func (h *WebSocketHandlers) handleJoin(ctx context.Context, c *websocket.Conn, conn *wsConnection, frame syncsvc.Frame) {
	var payload syncsvc.JoinPayload
	if err := unmarshalPayload(frame, &payload); err != nil || payload.UserID == "" {
		logger.L().Warn("malformed join-room frame", "error", err, "conn_id", conn.connID)
		return
	}

	// Room membership is keyed by the asserted user id, not the
	// authenticated one. A mismatch is allowed but worth a trace.
	if payload.UserID != conn.authUserID {
		logger.L().Warn("join-room user id differs from token", "asserted", payload.UserID, "authenticated", conn.authUserID, "conn_id", conn.connID)
	}

	sess, _ := h.hub.Join(conn.sessionULID, payload.UserID)
	// Rejoining the same room returns the existing session. Moving to a
	// different room closes the old session, which stops its sender
	// goroutine, so the fresh session needs a fresh one.
	if sess != conn.sess {
		conn.sess = sess
		go h.handleOutgoingMessages(ctx, c, conn, sess)
	}
}

// handleChange relays a change frame to the rest of the session's room.
func (h *WebSocketHandlers) handleChange(ctx context.Context, conn *wsConnection, frame syncsvc.Frame) {
	msg, matched, err := syncsvc.DecodeChange(frame)
	if !matched {
		logger.L().Debug("ignoring unknown frame", "event", frame.Event, "conn_id", conn.connID)
		return
	}
	if err != nil {
		logger.L().Warn("malformed change frame", "event", frame.Event, "error", err, "conn_id", conn.connID)
		return
	}
	if conn.sess == nil {
		logger.L().Warn("change frame before join-room, dropping", "event", frame.Event, "conn_id", conn.connID)
		return
	}

	h.hub.Publish(ctx, conn.sessionULID, msg)
}

// handleOutgoingMessages forwards relayed changes to the client until the
// session ends.
func (h *WebSocketHandlers) handleOutgoingMessages(ctx context.Context, c *websocket.Conn, conn *wsConnection, sess *syncsvc.Session) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("panic in WebSocket sender", "error", r, "user_id", conn.authUserID)
		}
	}()

	for {
		select {
		case msg, ok := <-sess.Ch:
			if !ok {
				return
			}
			if h.sendMessage(c, conn, msg) != nil {
				return
			}
		case <-sess.Done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sendMessage encodes and writes one relayed change to the client.
func (h *WebSocketHandlers) sendMessage(c *websocket.Conn, conn *wsConnection, msg syncsvc.Message) error {
	frame, err := syncsvc.EncodeFrame(msg)
	if err != nil {
		logger.L().Error("failed to encode sync frame", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
		return nil // this message is lost, the session survives
	}

	if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		logger.L().Error("failed to set write deadline", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
		return err
	}
	if err := c.WriteJSON(frame); err != nil {
		logger.L().Error("failed to write WebSocket message", "error", err, "user_id", conn.authUserID, "conn_id", conn.connID)
		return err
	}
	return nil
}

func unmarshalPayload(frame syncsvc.Frame, dst any) error {
	if len(frame.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(frame.Payload, dst)
}

// LogWSConnections logs every WebSocket upgrade attempt.
// It verifies the token with jwtSecret so the logged user_id can't be spoofed.
func LogWSConnections(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			userInfo := ""
			if token := handlerutil.BearerOrQueryToken(c); token != "" {
				if userID, _, err := handlerutil.ValidateToken(token, jwtSecret); err == nil {
					userInfo = userID.Hex()
				}
			}
			logger.L().Info("WebSocket upgrade attempt", "ip", c.IP(), "user", userInfo)
		}
		return c.Next()
	}
}
