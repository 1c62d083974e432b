package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/metrics"
)

// Relay consumes the store's change feed and pushes each admitted mutation
// through enrichment and fan-out.
//
// Each mutation runs as its own unit of work: feed order fixes the order
// in which processing starts, but a slow aggregate lookup for mutation N
// does not delay N+1, so completion (and therefore delivery) order may
// invert across mutations. That property is inherited from the original
// behavior and is pinned by tests rather than "fixed".
type Relay struct {
	source      ports.MutationSource
	enricher    *Enricher
	broadcaster ports.EventBroadcaster
	metrics     *metrics.RelayMetrics
	logger      *slog.Logger

	wg sync.WaitGroup
}

// NewRelay wires the change feed consumer.
func NewRelay(
	source ports.MutationSource,
	enricher *Enricher,
	broadcaster ports.EventBroadcaster,
	m *metrics.RelayMetrics,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		source:      source,
		enricher:    enricher,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger.With("component", "relay"),
	}
}

// Run consumes mutations until the context is canceled or the feed channel
// closes, then waits for in-flight deliveries.
func (r *Relay) Run(ctx context.Context) {
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopping", "reason", ctx.Err())
			return

		case mut, ok := <-r.source.Mutations():
			if !ok {
				r.logger.Info("mutation feed closed, relay stopping")
				return
			}

			// Deletes and unknown operation kinds are observed but
			// produce no notification.
			if mut.Op != domain.OpInsert && mut.Op != domain.OpUpdate {
				continue
			}

			r.wg.Add(1)
			go func(m domain.Mutation) {
				defer r.wg.Done()
				r.process(ctx, m)
			}(mut)
		}
	}
}

func (r *Relay) process(ctx context.Context, mut domain.Mutation) {
	n, reason := r.enricher.Enrich(ctx, mut)
	if n == nil {
		r.metrics.Drop(reason)
		r.logger.Debug("mutation dropped",
			"table", mut.Table,
			"op", string(mut.Op),
			"reason", string(reason),
		)
		return
	}

	r.broadcaster.SendToUser(n.Owner, n)
}
