package sync

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"inkpad/cmd/server/ctxkeys"
	"inkpad/cmd/server/testutil"
	syncsvc "inkpad/internal/services/sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// recordingHub wraps the real hub and records every join and publish so
// tests can assert on the relay without racing the channels.
type recordingHub struct {
	*syncsvc.Hub

	mu        sync.Mutex
	joins     int
	published []syncsvc.Message
}

func newRecordingHub(buffer int) *recordingHub {
	return &recordingHub{Hub: syncsvc.NewHub(buffer)}
}

func (h *recordingHub) Join(sessionID ulid.ULID, userID string) (*syncsvc.Session, func()) {
	sess, leave := h.Hub.Join(sessionID, userID)
	// counted after the registry call so a waiting test sees the session
	h.mu.Lock()
	h.joins++
	h.mu.Unlock()
	return sess, leave
}

func (h *recordingHub) Publish(ctx context.Context, origin ulid.ULID, msg syncsvc.Message) {
	h.mu.Lock()
	h.published = append(h.published, msg)
	h.mu.Unlock()
	h.Hub.Publish(ctx, origin, msg)
}

func (h *recordingHub) JoinCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joins
}

func (h *recordingHub) PublishedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.published)
}

// WebSocketTestConfig holds configuration for WebSocket tests
type WebSocketTestConfig struct {
	Secret        string
	MaxSessionSec int
}

// DefaultWebSocketTestConfig returns a default test configuration
func DefaultWebSocketTestConfig() WebSocketTestConfig {
	return WebSocketTestConfig{
		Secret:        "test-secret-key-with-32-characters",
		MaxSessionSec: 900,
	}
}

// SetupUpgradeApp creates a test app exposing only the upgrade middleware,
// terminated by a plain handler that echoes the authenticated identity.
func SetupUpgradeApp(t *testing.T, config WebSocketTestConfig) (*fiber.App, *recordingHub) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	hub := newRecordingHub(16)
	wsHandlers := NewWebSocketHandlers(hub, config.Secret, config.MaxSessionSec)

	app.Get("/ws/sync", wsHandlers.WSUpgrade, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals(ctxkeys.UserIDKey),
			"email":   c.Locals(ctxkeys.UserEmailKey),
		})
	})

	return app, hub
}

// StartSyncServer runs a full upgrade-plus-stream stack on a random local
// port and returns its base ws:// URL. The server is torn down with the test.
func StartSyncServer(t *testing.T, hub Hub, config WebSocketTestConfig) string {
	t.Helper()

	wsHandlers := NewWebSocketHandlers(hub, config.Secret, config.MaxSessionSec)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws/sync", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSSyncStream))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	port := ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("ws://127.0.0.1:%d/ws/sync", port)
}

// CreateSyncToken creates an access token for WebSocket testing.
func CreateSyncToken(t *testing.T, secret string) (string, string) {
	t.Helper()

	userID := bson.NewObjectID().Hex()
	token, err := testutil.CreateTestJWT(userID, "test@example.com", []byte(secret), time.Hour)
	require.NoError(t, err)
	return token, userID
}

// WSUpgradeTestCase represents a WebSocket upgrade test case
type WSUpgradeTestCase struct {
	Name           string
	Token          *string // nil means no token
	ExpectedStatus int
}

// GetStandardWSUpgradeTestCases returns common WebSocket upgrade test cases
func GetStandardWSUpgradeTestCases(t *testing.T, secret string) []WSUpgradeTestCase {
	t.Helper()

	userID := bson.NewObjectID().Hex()
	email := "test@example.com"

	validToken, err := testutil.CreateTestJWT(userID, email, []byte(secret), time.Hour)
	require.NoError(t, err)

	expiredToken, err := testutil.CreateTestJWT(userID, email, []byte(secret), -time.Hour)
	require.NoError(t, err)

	invalidToken := "invalid-token"

	return []WSUpgradeTestCase{
		{
			Name:           "ValidToken",
			Token:          &validToken,
			ExpectedStatus: 200,
		},
		{
			Name:           "MissingToken",
			Token:          nil,
			ExpectedStatus: 401,
		},
		{
			Name:           "InvalidToken",
			Token:          &invalidToken,
			ExpectedStatus: 401,
		},
		{
			Name:           "ExpiredToken",
			Token:          &expiredToken,
			ExpectedStatus: 401,
		},
	}
}
