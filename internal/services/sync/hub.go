package sync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"inkpad/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Session represents a connected realtime session that can receive
// relayed change messages.
type Session struct {
	UserID string
	Ch     chan Message
	Done   chan struct{}
}

// connInfo holds per-connection metadata
type connInfo struct {
	ID          ulid.ULID
	ConnectedAt time.Time
	Session     *Session
}

// room holds the sessions joined under one asserted user id
type room struct {
	mu sync.RWMutex
	m  map[ulid.ULID]connInfo
}

// Hub is the session registry plus change relay. Group membership is keyed
// by the user id the client asserts in its join frame; it is not verified
// against the credential used for HTTP authentication. That trust gap is
// documented behavior, preserved from the original protocol.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	connIndex  map[ulid.ULID]string
	bufferSize int
	dropped    uint64
}

// NewHub creates a relay hub with the given per-session outbox buffer size.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		rooms:      make(map[string]*room),
		connIndex:  make(map[ulid.ULID]string),
		bufferSize: bufferSize,
	}
}

// Join adds the session to the broadcast group named by userID and returns
// the session plus a leave func. Calling Join again with the same session id
// and the same userID is a no-op returning the existing session; joining a
// different room first leaves the old one.
func (h *Hub) Join(sessionID ulid.ULID, userID string) (*Session, func()) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("session joining room", "session_id", sessionID.String(), "user_id", userID)
	}

	h.mu.Lock()
	if prev, ok := h.connIndex[sessionID]; ok {
		if prev == userID {
			bucket := h.rooms[userID]
			h.mu.Unlock()

			bucket.mu.RLock()
			existing := bucket.m[sessionID].Session
			bucket.mu.RUnlock()

			return existing, func() { h.Leave(sessionID) }
		}
		h.mu.Unlock()
		h.Leave(sessionID)
		h.mu.Lock()
	}

	bucket, exists := h.rooms[userID]
	if !exists {
		bucket = &room{m: make(map[ulid.ULID]connInfo)}
		h.rooms[userID] = bucket
	}
	h.connIndex[sessionID] = userID
	h.mu.Unlock()

	sess := &Session{
		UserID: userID,
		Ch:     make(chan Message, h.bufferSize),
		Done:   make(chan struct{}),
	}

	bucket.mu.Lock()
	bucket.m[sessionID] = connInfo{
		ID:          sessionID,
		ConnectedAt: time.Now(),
		Session:     sess,
	}
	bucket.mu.Unlock()

	return sess, func() { h.Leave(sessionID) }
}

// Leave removes the session from whatever room it joined. No-op for
// sessions that never joined or already left.
func (h *Hub) Leave(sessionID ulid.ULID) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("session leaving", "session_id", sessionID.String())
	}

	h.mu.RLock()
	userID, ok := h.connIndex[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.RLock()
	bucket := h.rooms[userID]
	h.mu.RUnlock()
	if bucket == nil {
		h.mu.Lock()
		delete(h.connIndex, sessionID)
		h.mu.Unlock()
		return
	}

	bucket.mu.Lock()
	info, exists := bucket.m[sessionID]
	if exists {
		delete(bucket.m, sessionID)
	}
	empty := len(bucket.m) == 0
	bucket.mu.Unlock()

	if exists {
		close(info.Session.Ch)
		close(info.Session.Done)
	}

	h.mu.Lock()
	delete(h.connIndex, sessionID)
	if empty {
		delete(h.rooms, userID)
	}
	h.mu.Unlock()
}

// Publish delivers msg to every session currently joined to the room named
// by msg.UserID, except the origin session itself. Delivery is
// fire-and-forget: a session whose outbox is full just misses the message.
func (h *Hub) Publish(_ context.Context, origin ulid.ULID, msg Message) {
	if msg.UserID == "" {
		return
	}

	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("relaying change", "user_id", msg.UserID, "kind", msg.Kind)
	}

	bucket := h.bucket(msg.UserID)
	if bucket == nil {
		return
	}

	bucket.mu.RLock()
	for id, info := range bucket.m {
		if id == origin {
			continue
		}
		sendOrDrop(info.Session.Ch, msg, func() {
			atomic.AddUint64(&h.dropped, 1)
			if log != nil {
				log.Warn("outbox full, dropping message", "session_id", info.ID.String(), "user_id", msg.UserID, "kind", msg.Kind)
			}
		})
	}
	bucket.mu.RUnlock()
}

// SessionCount returns the total number of joined sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, bucket := range h.rooms {
		bucket.mu.RLock()
		total += len(bucket.m)
		bucket.mu.RUnlock()
	}
	return total
}

// Stats returns current counters for observability / tests.
func (h *Hub) Stats() (sessions int, dropped uint64) {
	return h.SessionCount(), atomic.LoadUint64(&h.dropped)
}

// sendOrDrop is the only place that can decide to drop a message.
func sendOrDrop(ch chan Message, msg Message, onDrop func()) {
	select {
	case ch <- msg:
	default:
		onDrop()
	}
}

// helper: returns the room bucket or nil
func (h *Hub) bucket(userID string) *room {
	h.mu.RLock()
	b := h.rooms[userID]
	h.mu.RUnlock()
	return b
}
