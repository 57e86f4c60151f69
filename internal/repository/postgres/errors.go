package postgres

import (
	"database/sql"
	"errors"

	"eventhub/internal/domain"

	"github.com/lib/pq"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// readErr classifies a failed read. sql.ErrNoRows becomes KindNotFound.
func readErr(op string, err error) error {
	return classify(op, domain.KindRemoteRead, err)
}

// writeErr classifies a failed write. Duplicate keys become KindUniqueViolation.
func writeErr(op string, err error) error {
	return classify(op, domain.KindRemoteWrite, err)
}

// refErr classifies a failed insert of a row that references another row.
// A dangling reference becomes KindNotFound.
func refErr(op string, err error) error {
	var perr *pq.Error
	if errors.As(err, &perr) && perr.Code == foreignKeyViolationCode {
		return &domain.RemoteError{Op: op, Kind: domain.KindNotFound, Err: err}
	}
	return writeErr(op, err)
}

func classify(op string, fallback domain.ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	kind := fallback
	var perr *pq.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = domain.KindNotFound
	case errors.As(err, &perr) && perr.Code == uniqueViolationCode:
		kind = domain.KindUniqueViolation
	}
	return &domain.RemoteError{Op: op, Kind: kind, Err: err}
}

func notFound(op string) error {
	return &domain.RemoteError{Op: op, Kind: domain.KindNotFound, Err: sql.ErrNoRows}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	i := int(ni.Int64)
	return &i
}
