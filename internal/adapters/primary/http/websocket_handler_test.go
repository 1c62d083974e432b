package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/voltlog/telemetry-backend/internal/adapters/primary/websocket"
	"github.com/voltlog/telemetry-backend/internal/auth"
	"github.com/voltlog/telemetry-backend/internal/config"
	"github.com/voltlog/telemetry-backend/internal/core/domain"
	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
	"github.com/voltlog/telemetry-backend/internal/core/mocks"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/metrics"
)

const testJWTSecret = "test-secret-key-for-websocket-tests"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gatewayConfig() *config.Config {
	return &config.Config{
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBuffer:      8,
		},
		App: config.AppConfig{Environment: "development"},
	}
}

type gatewayFixture struct {
	hub      *wsAdapter.Hub
	tm       *auth.TokenManager
	sessions *mocks.MockSessionStore
	handler  *WebSocketHandler
	server   *httptest.Server
	stop     func()
}

// newGatewayFixture spins up the gateway on a test server with a running
// hub. pingInterval drives the heartbeat sweep; use a large value unless
// the test is about reaping.
func newGatewayFixture(t *testing.T, pingInterval time.Duration) *gatewayFixture {
	t.Helper()

	m := metrics.New(prometheus.NewRegistry())
	f := &gatewayFixture{
		hub:      wsAdapter.NewHub(pingInterval, m, discardLogger()),
		tm:       auth.NewTokenManager(testJWTSecret, time.Minute),
		sessions: mocks.NewMockSessionStore(),
	}
	f.handler = NewWebSocketHandler(f.hub, f.tm, f.sessions, gatewayConfig(), discardLogger())
	f.server = httptest.NewServer(f.handler)

	hubCtx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(hubCtx)

	f.stop = func() {
		f.server.Close()
		cancel()
	}
	t.Cleanup(f.stop)
	return f
}

func (f *gatewayFixture) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

// dial opens a websocket connection carrying the token as the auth cookie.
func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Cookie", AccessTokenCookie+"="+token)

	conn, resp, err := websocket.DefaultDialer.Dial(f.wsURL(), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *gatewayFixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := f.tm.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func decodeErrorResponse(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&er))
	return er
}

func TestWebSocketHandler_MissingToken(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)

	resp, err := http.Get(f.server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_MISSING", decodeErrorResponse(t, resp.Body).Code)
}

func TestWebSocketHandler_InvalidToken(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)

	req, err := http.NewRequest(http.MethodGet, f.server.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "not-a-jwt"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", decodeErrorResponse(t, resp.Body).Code)
}

func TestWebSocketHandler_ExpiredToken(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)

	expired := auth.NewTokenManager(testJWTSecret, -time.Minute)
	token, err := expired.GenerateToken(uuid.New())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, f.server.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", decodeErrorResponse(t, resp.Body).Code)
}

func TestWebSocketHandler_BearerHeaderFallback(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)
	userID := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, userID).Return(nil)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+f.token(t, userID))

	conn, resp, err := websocket.DefaultDialer.Dial(f.wsURL(), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return f.hub.IsUserConnected(userID)
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocketHandler_UserGone(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)
	userID := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, userID).Return(apperrors.ErrUserNotFound)

	req, err := http.NewRequest(http.MethodGet, f.server.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.token(t, userID)})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "USER_NOT_FOUND", decodeErrorResponse(t, resp.Body).Code)
	assert.Equal(t, 0, f.hub.ConnectionCount())
}

func TestWebSocketHandler_StoreFailure(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)
	userID := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, userID).Return(errors.New("pool exhausted"))

	req, err := http.NewRequest(http.MethodGet, f.server.URL, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: f.token(t, userID)})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWebSocketHandler_DeliversToEveryOwnerConnection(t *testing.T) {
	f := newGatewayFixture(t, time.Hour)
	userA := uuid.New()
	userB := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, mock.Anything).Return(nil)

	tokenA := f.token(t, userA)
	connA1 := f.dial(t, tokenA)
	connA2 := f.dial(t, tokenA)
	connB := f.dial(t, f.token(t, userB))

	require.Eventually(t, func() bool {
		return f.hub.ConnectionCount() == 3
	}, time.Second, 5*time.Millisecond)

	f.hub.SendToUser(userA, &domain.Notification{
		Type:   "vehicles",
		Action: domain.OpUpdate,
		Owner:  userA,
		Entity: map[string]any{"id": "v1", "display_name": "Daily Driver"},
	})

	for _, conn := range []*websocket.Conn{connA1, connA2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "vehicles", got["type"])
		assert.Equal(t, "update", got["action"])
		assert.Equal(t, "Daily Driver", got["display_name"])
	}

	// The other user's connection stays silent.
	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := connB.ReadMessage()
	require.Error(t, err, "nothing should be delivered to another user")
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestWebSocketHandler_ReapsSilentConnections(t *testing.T) {
	f := newGatewayFixture(t, 50*time.Millisecond)
	userID := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, userID).Return(nil)

	conn := f.dial(t, f.token(t, userID))
	// Swallow pings so no pong ever goes back.
	conn.SetPingHandler(func(string) error { return nil })
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.Eventually(t, func() bool {
		return f.hub.IsUserConnected(userID)
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return !f.hub.IsUserConnected(userID)
	}, 2*time.Second, 10*time.Millisecond, "silent connection should be reaped")
}

func TestWebSocketHandler_PongKeepsConnectionAlive(t *testing.T) {
	f := newGatewayFixture(t, 50*time.Millisecond)
	userID := uuid.New()
	f.sessions.On("VerifyUser", mock.Anything, userID).Return(nil)

	conn := f.dial(t, f.token(t, userID))
	// The default ping handler answers with a pong; just keep reading.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.Eventually(t, func() bool {
		return f.hub.IsUserConnected(userID)
	}, time.Second, 5*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.True(t, f.hub.IsUserConnected(userID), "responsive connection must survive several sweeps")
}
