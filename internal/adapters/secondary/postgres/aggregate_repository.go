package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
)

// AggregateRepository computes the per-session summaries attached to
// session-like notifications. Lookups are keyed by (session, owner) so a
// token for one user can never surface another user's numbers.
type AggregateRepository struct {
	db *pgxpool.Pool
}

var _ ports.AggregateLookup = (*AggregateRepository)(nil)

// NewAggregateRepository creates a new aggregate repository.
func NewAggregateRepository(db *pgxpool.Pool) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// ChargeSummary aggregates the charge samples for one session. Returns
// (nil, nil) when the session no longer exists, which the enricher turns
// into a null aggregateData field.
func (r *AggregateRepository) ChargeSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error) {
	if err := r.sessionExists(ctx, "charge_sessions", sessionID, ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var summary domain.SessionSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(energy_added_kwh), 0),
			COALESCE(AVG(power_kw), 0),
			COALESCE(EXTRACT(EPOCH FROM (MAX(recorded_at) - MIN(recorded_at))), 0)::bigint,
			COUNT(*)
		FROM charge_samples
		WHERE session_id = $1 AND user_id = $2`,
		sessionID, ownerID,
	).Scan(&summary.EnergyAddedKWh, &summary.AvgPowerKW, &summary.DurationSeconds, &summary.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("charge summary: %w", err)
	}

	return &summary, nil
}

// DriveSummary aggregates the drive samples for one session.
func (r *AggregateRepository) DriveSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error) {
	if err := r.sessionExists(ctx, "drive_sessions", sessionID, ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var summary domain.SessionSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(distance_km), 0),
			COALESCE(AVG(speed_kmh), 0),
			COALESCE(EXTRACT(EPOCH FROM (MAX(recorded_at) - MIN(recorded_at))), 0)::bigint,
			COUNT(*)
		FROM drive_samples
		WHERE session_id = $1 AND user_id = $2`,
		sessionID, ownerID,
	).Scan(&summary.DistanceKm, &summary.AvgSpeedKmh, &summary.DurationSeconds, &summary.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("drive summary: %w", err)
	}

	return &summary, nil
}

// sessionExists distinguishes "session deleted" from "session with no
// samples yet"; both would otherwise aggregate to zeros.
func (r *AggregateRepository) sessionExists(ctx context.Context, table string, sessionID, ownerID uuid.UUID) error {
	var exists bool
	// table is one of two compile-time constants, never user input.
	query := fmt.Sprintf(`SELECT true FROM %s WHERE id = $1 AND user_id = $2`, table)
	return r.db.QueryRow(ctx, query, sessionID, ownerID).Scan(&exists)
}
