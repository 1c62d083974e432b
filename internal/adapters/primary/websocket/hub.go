package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/metrics"
)

// Hub is the connection registry and fan-out router. It owns every live
// Client for the duration of its life: the gateway only hands connections
// in, and the heartbeat sweep and fan-out only ever add, look up, or
// remove whole entries.
type Hub struct {
	// clients maps owner IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// Register requests from the gateway
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// pingInterval is the heartbeat probe period. A connection that has
	// not confirmed liveness by the next probe is reaped.
	pingInterval time.Duration

	// done is closed when Run returns. Read pumps select on it so a
	// connection dying during shutdown does not block on Unregister
	// after the run loop has stopped receiving.
	done chan struct{}

	// mu protects the clients map
	mu sync.RWMutex

	metrics *metrics.RelayMetrics
	logger  *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(pingInterval time.Duration, m *metrics.RelayMetrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients:      make(map[uuid.UUID]map[*Client]bool),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		pingInterval: pingInterval,
		done:         make(chan struct{}),
		metrics:      m,
		logger:       logger.With("component", "websocket_hub"),
	}
}

// Run starts the hub's event loop, including the heartbeat sweep. This
// MUST be run as a goroutine. It returns once the context is canceled and
// every connection has been closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.sweep()
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	h.metrics.ActiveConnections.Inc()

	h.logger.Info("client registered",
		"connection_id", client.ID,
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and tears the connection
// down. Removal from the index and connection destruction happen in one
// step so fan-out never sees a stale entry.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok || !userClients[client] {
		// Already gone; the read pump and the sweep can both report the
		// same death.
		return
	}

	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	h.metrics.ActiveConnections.Dec()

	client.close()

	h.logger.Info("client unregistered",
		"connection_id", client.ID,
		"user_id", client.UserID,
	)
}

// sweep is one heartbeat cycle: connections that never confirmed since the
// previous probe are reaped, everyone else is marked unconfirmed and
// probed again. This is the only mechanism that reclaims connections whose
// transport died without a clean close.
func (h *Hub) sweep() {
	h.mu.RLock()
	snapshot := make([]*Client, 0, 16)
	for _, userClients := range h.clients {
		for client := range userClients {
			snapshot = append(snapshot, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range snapshot {
		if !client.consumeAlive() {
			h.logger.Info("client missed heartbeat, reaping",
				"connection_id", client.ID,
				"user_id", client.UserID,
			)
			h.unregisterClient(client)
			continue
		}

		if err := client.ping(); err != nil {
			h.logger.Debug("heartbeat probe failed",
				"connection_id", client.ID,
				"user_id", client.UserID,
				"error", err,
			)
			h.unregisterClient(client)
		}
	}
}

// closeAll tears down every connection on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for owner, userClients := range h.clients {
		for client := range userClients {
			client.close()
			h.metrics.ActiveConnections.Dec()
		}
		delete(h.clients, owner)
	}
}

// SendToUser delivers a notification to every live connection owned by
// owner. This method implements the ports.EventBroadcaster interface.
//
// Delivery is best-effort: with no connections for the owner the event is
// discarded (counted), and a connection whose send buffer is full is
// counted and unregistered without affecting the remaining connections.
func (h *Hub) SendToUser(owner uuid.UUID, n *domain.Notification) {
	// The sends must stay under the read lock: unregisterClient closes
	// client.Send while holding the write lock, so releasing the lock
	// first would allow a send on a closed channel. The sends are
	// non-blocking, so the lock is never held for long.
	h.mu.RLock()
	defer h.mu.RUnlock()

	userClients, ok := h.clients[owner]
	if !ok || len(userClients) == 0 {
		h.metrics.Drop(domain.DropNoConnections)
		return
	}

	for client := range userClients {
		select {
		case client.Send <- n:
			h.metrics.Delivered.Inc()
		default:
			h.metrics.Drop(domain.DropSendFailure)
			h.logger.Warn("client send buffer full, dropping event",
				"connection_id", client.ID,
				"user_id", client.UserID,
			)
			// Don't block the delivery path on the run loop; a stuck
			// connection also stops answering probes and the sweep
			// reaps it.
			select {
			case h.Unregister <- client:
			default:
			}
		}
	}
}

// ConnectionCount returns the total number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// IsUserConnected checks if a user has any active connections.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	userClients, ok := h.clients[userID]
	return ok && len(userClients) > 0
}
