package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

// SessionStore defines the port for resolving a verified token to a live
// user identity. Token issuance lives outside this service; only the
// "does this user still exist" half is consumed here.
type SessionStore interface {
	VerifyUser(ctx context.Context, userID uuid.UUID) error
}

// AggregateLookup defines the port for the secondary computed summaries
// attached to session-like notifications. Implementations return
// (nil, nil) when the entity is gone; the caller degrades gracefully.
type AggregateLookup interface {
	ChargeSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error)
	DriveSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error)
}

// MutationSource defines the port for the store's change feed. The channel
// is closed when the underlying subscription shuts down for good.
type MutationSource interface {
	Mutations() <-chan domain.Mutation
}
