package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
)

// strippedFields lists document fields removed before emission, per
// collection. Map points embed the raw sample array, which would blow up
// message size for no client benefit.
var strippedFields = map[domain.Collection][]string{
	domain.CollectionMapPoints: {"points"},
}

// Enricher maps a raw mutation to a client-facing notification. Given the
// same mutation and the same lookup response it always produces the same
// notification; it keeps no state of its own.
type Enricher struct {
	aggregates ports.AggregateLookup
	logger     *slog.Logger
}

// NewEnricher creates an enricher backed by the given aggregate lookup.
func NewEnricher(aggregates ports.AggregateLookup, logger *slog.Logger) *Enricher {
	return &Enricher{
		aggregates: aggregates,
		logger:     logger.With("component", "enricher"),
	}
}

// Enrich produces the notification for a mutation, or nil plus a drop
// reason when the mutation cannot become one. Unrecognized collections and
// documents without a resolvable owner are dropped by design, never
// treated as errors.
func (e *Enricher) Enrich(ctx context.Context, mut domain.Mutation) (*domain.Notification, domain.DropReason) {
	if mut.Collection == domain.CollectionUnknown {
		return nil, domain.DropUnknownCollection
	}

	owner, ok := mut.Owner()
	if !ok {
		return nil, domain.DropNoOwner
	}

	n := &domain.Notification{
		Type:   mut.Collection.EventType(),
		Action: mut.Op,
		Owner:  owner,
		Entity: project(mut),
	}

	switch mut.Collection {
	case domain.CollectionChargeSessions:
		n.HasAggregate = true
		n.Aggregate = e.lookup(ctx, mut, owner, e.aggregates.ChargeSummary)
	case domain.CollectionDriveSessions:
		n.HasAggregate = true
		n.Aggregate = e.lookup(ctx, mut, owner, e.aggregates.DriveSummary)
	}

	return n, ""
}

// lookup runs the secondary aggregate read. The entity may have been
// deleted between the mutation and now, or the store may be unreachable;
// either way the notification still goes out with a null aggregate.
func (e *Enricher) lookup(
	ctx context.Context,
	mut domain.Mutation,
	owner uuid.UUID,
	fn func(context.Context, uuid.UUID, uuid.UUID) (*domain.SessionSummary, error),
) *domain.SessionSummary {
	entityID, ok := mut.EntityID()
	if !ok {
		return nil
	}

	summary, err := fn(ctx, entityID, owner)
	if err != nil {
		e.logger.Warn("aggregate lookup failed, emitting without summary",
			"collection", mut.Collection.String(),
			"entity_id", entityID,
			"error", err,
		)
		return nil
	}
	return summary
}

// project copies the document, dropping the collection's stripped fields.
func project(mut domain.Mutation) map[string]any {
	stripped := strippedFields[mut.Collection]

	entity := make(map[string]any, len(mut.Document))
	for k, v := range mut.Document {
		entity[k] = v
	}
	for _, field := range stripped {
		delete(entity, field)
	}
	return entity
}
