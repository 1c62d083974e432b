package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/metrics"
)

// ListenerConfig holds change listener configuration.
type ListenerConfig struct {
	// ConnString is the database URL. The listener holds its own
	// dedicated connection; LISTEN state is per-connection and must not
	// share a pooled one.
	ConnString string

	// Channel is the NOTIFY channel the row triggers publish to.
	Channel string

	// Buffer is the mutation channel capacity.
	Buffer int

	// ReconnectDelay / MaxReconnect bound the backoff after feed errors.
	ReconnectDelay time.Duration
	MaxReconnect   time.Duration
}

// ChangeListener is the store's change feed: one LISTEN subscription
// covering every watched table, decoded into Mutation records.
//
// NOTIFY has no replay. If the subscription is down, mutations committed
// in the gap are lost; this matches the relay's documented no-checkpoint
// behavior.
type ChangeListener struct {
	cfg     ListenerConfig
	out     chan domain.Mutation
	metrics *metrics.RelayMetrics
	logger  *slog.Logger
}

var _ ports.MutationSource = (*ChangeListener)(nil)

// NewChangeListener creates a listener; Run must be started for mutations
// to flow.
func NewChangeListener(cfg ListenerConfig, m *metrics.RelayMetrics, logger *slog.Logger) *ChangeListener {
	if cfg.Channel == "" {
		cfg.Channel = "telemetry_changes"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = 30 * time.Second
	}
	return &ChangeListener{
		cfg:     cfg,
		out:     make(chan domain.Mutation, cfg.Buffer),
		metrics: m,
		logger:  logger.With("component", "change_listener"),
	}
}

// Mutations implements ports.MutationSource.
func (l *ChangeListener) Mutations() <-chan domain.Mutation {
	return l.out
}

// Run maintains the subscription until the context is canceled. Feed
// errors are logged and the subscription re-established with capped
// backoff; they never take the process down.
func (l *ChangeListener) Run(ctx context.Context) {
	defer close(l.out)

	delay := l.cfg.ReconnectDelay
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("change listener stopping", "reason", ctx.Err())
			return
		}

		l.metrics.FeedRestarts.Inc()
		l.logger.Warn("change feed subscription lost, reconnecting",
			"error", err,
			"retry_in", delay.String(),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > l.cfg.MaxReconnect {
			delay = l.cfg.MaxReconnect
		}
	}
}

// listen holds one subscription until it fails.
func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.cfg.ConnString)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.cfg.Channel}.Sanitize()); err != nil {
		return err
	}

	l.logger.Info("change feed subscription established", "channel", l.cfg.Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		mut, err := decodePayload(notification.Payload)
		if err != nil {
			// A malformed payload is a trigger bug, not a reason to
			// drop the subscription.
			l.logger.Warn("discarding malformed feed payload", "error", err)
			continue
		}

		select {
		case l.out <- mut:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// feedPayload mirrors what the notify triggers publish.
type feedPayload struct {
	Table string         `json:"table"`
	Op    string         `json:"op"`
	Doc   map[string]any `json:"doc"`
}

func decodePayload(raw string) (domain.Mutation, error) {
	var p feedPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Mutation{}, err
	}
	if p.Table == "" {
		return domain.Mutation{}, errors.New("feed payload missing table")
	}

	return domain.Mutation{
		Collection: domain.CollectionFromTable(p.Table),
		Table:      p.Table,
		Op:         domain.ParseOperationKind(p.Op),
		Document:   p.Doc,
	}, nil
}
