package postgres

import (
	"context"
	"database/sql"
	"time"

	"eventhub/internal/domain"
)

type authSessionRepository struct {
	DB *sql.DB
}

// NewAuthSessionRepository returns a domain.AuthSessionRepository implemented with Postgres.
func NewAuthSessionRepository(db *sql.DB) domain.AuthSessionRepository {
	return &authSessionRepository{DB: db}
}

func (r *authSessionRepository) Create(ctx context.Context, s *domain.AuthSession) error {
	query := `
		INSERT INTO auth_sessions (id, account_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := r.DB.QueryRowContext(ctx, query, s.ID, s.AccountID, s.ExpiresAt).Scan(&s.CreatedAt)
	return writeErr("auth_sessions.insert", err)
}

// GetActive returns the session if it is neither revoked nor expired at now.
func (r *authSessionRepository) GetActive(ctx context.Context, id string, now time.Time) (*domain.AuthSession, error) {
	query := `
		SELECT id, account_id, expires_at, revoked_at, created_at
		FROM auth_sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2
	`
	s := &domain.AuthSession{}
	var revoked sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, id, now).Scan(&s.ID, &s.AccountID, &s.ExpiresAt, &revoked, &s.CreatedAt)
	if err != nil {
		return nil, readErr("auth_sessions.select_active", err)
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return s, nil
}

// Revoke marks the session revoked. Revoking twice is a no-op.
func (r *authSessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE auth_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, at, id)
	return writeErr("auth_sessions.revoke", err)
}
