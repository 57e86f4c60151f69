package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventhub/internal/domain"
)

type otpCodeRepository struct {
	DB *sql.DB
}

// NewOTPCodeRepository returns a domain.OTPCodeRepository implemented with Postgres.
func NewOTPCodeRepository(db *sql.DB) domain.OTPCodeRepository {
	return &otpCodeRepository{DB: db}
}

func (r *otpCodeRepository) Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO otp_codes (email, code_hash, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.DB.ExecContext(ctx, query, email, codeHash, expiresAt)
	return writeErr("otp_codes.insert", err)
}

// Consume deletes one matching unexpired code and reports whether one existed.
func (r *otpCodeRepository) Consume(ctx context.Context, email, codeHash string) (bool, error) {
	query := `
		DELETE FROM otp_codes
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE email = $1 AND code_hash = $2 AND expires_at > NOW()
			LIMIT 1
		)
		RETURNING id
	`
	var id string
	err := r.DB.QueryRowContext(ctx, query, email, codeHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, writeErr("otp_codes.consume", err)
	}
	return true, nil
}
