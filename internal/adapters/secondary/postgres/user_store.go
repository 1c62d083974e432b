package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
	"github.com/voltlog/telemetry-backend/internal/core/ports"
)

// UserStore resolves verified token identities against the users table.
type UserStore struct {
	db *pgxpool.Pool
}

var _ ports.SessionStore = (*UserStore)(nil)

// NewUserStore creates a new user store.
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

// VerifyUser confirms the user behind a validated token still exists.
// A signed token can outlive its account.
func (s *UserStore) VerifyUser(ctx context.Context, userID uuid.UUID) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT true FROM users WHERE id = $1`,
		userID,
	).Scan(&exists)

	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	return nil
}
