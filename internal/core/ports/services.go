package ports

import (
	"github.com/google/uuid"
	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

// EventBroadcaster defines the port for fanning a notification out to
// every live connection of one owner. Delivery is best-effort: no
// connections for the owner means the event is dropped, and a failure on
// one connection never blocks the others.
type EventBroadcaster interface {
	SendToUser(owner uuid.UUID, n *domain.Notification)
}
