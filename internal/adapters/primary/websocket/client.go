package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

const (
	// Time allowed to write a message or control frame to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. The relay is unidirectional;
	// clients have nothing big to say.
	maxMessageSize = 512
)

// Client is one live, authenticated connection. The owner is bound at
// handshake completion and never changes; only the Hub mutates the client
// after registration.
type Client struct {
	// ID is unique per process lifetime.
	ID uuid.UUID

	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound notifications.
	Send chan *domain.Notification

	// UserID is the owner this connection is registered under.
	UserID uuid.UUID

	// alive is set on creation and on every pong, cleared before each
	// probe. The sweep reaps connections it finds cleared.
	alive atomic.Bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	logger *slog.Logger
}

// NewClient creates a client for an accepted connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, sendBuffer int, logger *slog.Logger) *Client {
	c := &Client{
		ID:     uuid.New(),
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan *domain.Notification, sendBuffer),
		UserID: userID,
		logger: logger.With("user_id", userID.String()),
	}
	c.alive.Store(true)
	return c
}

// consumeAlive reports whether the client confirmed liveness since the
// last probe and clears the flag for the next cycle.
func (c *Client) consumeAlive() bool {
	return c.alive.Swap(false)
}

// ping sends a transport-level liveness probe. WriteControl is safe to
// call concurrently with the write pump.
func (c *Client) ping() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// close tears the connection down exactly once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.Send)
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

// ReadPump consumes the connection until it dies. No application messages
// are defined client to server; the pump exists to process control frames
// and to notice the close. This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		// After shutdown the run loop no longer receives; closeAll has
		// already torn this connection down.
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)

	// The read deadline is a transport backstop behind the hub's probe
	// cycle; each pong extends it.
	pongWait := 2 * c.Hub.pingInterval
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application messages from the client are ignored.
	}
}

// WritePump pumps notifications from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	defer func() {
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	}()

	for n := range c.Send {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.logger.Error("failed to set write deadline", "error", err)
			return
		}

		if err := c.writeJSON(n); err != nil {
			c.logger.Error("failed to write message", "error", err)
			return
		}
	}

	// The hub closed the channel. Send close message.
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		c.logger.Debug("failed to send close message", "error", err)
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(n *domain.Notification) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(n); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}
