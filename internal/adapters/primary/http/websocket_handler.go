package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	wsAdapter "github.com/voltlog/telemetry-backend/internal/adapters/primary/websocket"
	"github.com/voltlog/telemetry-backend/internal/auth"
	"github.com/voltlog/telemetry-backend/internal/config"
	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
)

// AccessTokenCookie is the cookie carrying the websocket credential.
const AccessTokenCookie = "access_token"

// WebSocketHandler is the connection gateway: it authenticates the upgrade
// request and either admits the connection into the hub or rejects it
// before any bidirectional traffic begins.
type WebSocketHandler struct {
	hub        *wsAdapter.Hub
	tm         *auth.TokenManager
	sessions   ports.SessionStore
	sendBuffer int
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket gateway.
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	tm *auth.TokenManager,
	sessions ports.SessionStore,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:        hub,
		tm:         tm,
		sessions:   sessions,
		sendBuffer: cfg.WebSocket.SendBuffer,
		logger:     logger,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowedOrigins := cfg.WebSocket.AllowedOrigins
	development := cfg.IsDevelopment()

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if development {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:] // Remove the "*", keep ".example.com"
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
		)
		return false
	}
}

// credential extracts the access token from the cookie, falling back to a
// bearer Authorization header for non-browser clients.
func credential(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// ServeHTTP handles WebSocket connection requests.
//
// Rejections happen before the upgrade, each with its own code: missing
// credential, invalid/expired credential, and valid credential for a user
// that no longer exists. The registry is never touched on failure.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	tokenString := credential(r)
	if tokenString == "" {
		h.logger.Warn("websocket connection rejected: missing token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		WriteError(w, apperrors.NewTokenMissingError())
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.Warn("websocket connection rejected: invalid token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		WriteError(w, apperrors.NewTokenInvalidError(err))
		return
	}

	// The token may outlive its user.
	if err := h.sessions.VerifyUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			h.logger.Warn("websocket connection rejected: user gone",
				"request_id", requestID,
				"user_id", claims.UserID,
			)
			WriteError(w, apperrors.NewUserNotFoundError())
			return
		}
		h.logger.Error("session store lookup failed",
			"request_id", requestID,
			"user_id", claims.UserID,
			"error", err,
		)
		WriteError(w, apperrors.NewInternalError(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"user_id", claims.UserID,
			"error", err,
		)
		return
	}

	client := wsAdapter.NewClient(h.hub, conn, claims.UserID, h.sendBuffer, h.logger)
	client.Hub.Register <- client

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"connection_id", client.ID,
		"user_id", claims.UserID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
