package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"eventhub/internal/domain"
)

const accountColumns = `id, email, password_hash, metadata, confirmed_at, created_at, updated_at`

type accountRepository struct {
	DB *sql.DB
}

// NewAccountRepository returns a domain.AccountRepository implemented with Postgres.
func NewAccountRepository(db *sql.DB) domain.AccountRepository {
	return &accountRepository{DB: db}
}

func scanAccount(s rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	var raw []byte
	var confirmed sql.NullTime
	if err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &raw, &confirmed, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Metadata); err != nil {
			return nil, err
		}
	}
	if confirmed.Valid {
		a.ConfirmedAt = &confirmed.Time
	}
	return a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	md, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO accounts (email, password_hash, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err = r.DB.QueryRowContext(ctx, query, a.Email, a.PasswordHash, string(md)).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		err = writeErr("accounts.insert", err)
		if errors.Is(err, domain.ErrUniqueViolation) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, readErr("accounts.select_by_email", err)
	}
	return a, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readErr("accounts.select", err)
	}
	return a, nil
}

// UpdateMetadata replaces the stored metadata document. Metadata travels as
// text because lib/pq encodes []byte as bytea.
func (r *accountRepository) UpdateMetadata(ctx context.Context, id string, md domain.AccountMetadata) (*domain.Account, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	query := `UPDATE accounts SET metadata = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + accountColumns
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, string(raw), id))
	if err != nil {
		return nil, writeErr("accounts.update_metadata", err)
	}
	return a, nil
}

// Confirm stamps confirmed_at once; later calls keep the first timestamp.
func (r *accountRepository) Confirm(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET confirmed_at = COALESCE(confirmed_at, $1), updated_at = $1 WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return writeErr("accounts.confirm", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr("accounts.confirm", err)
	}
	if n == 0 {
		return notFound("accounts.confirm")
	}
	return nil
}
