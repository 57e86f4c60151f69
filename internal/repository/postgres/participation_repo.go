package postgres

import (
	"context"
	"database/sql"

	"eventhub/internal/domain"
)

// pairRepository stores (event_id, user_id) existence rows. The table and its
// timestamp column are fixed per constructor, never caller input.
type pairRepository struct {
	DB       *sql.DB
	table    string
	stampCol string
}

func (r *pairRepository) op(verb string) string {
	return r.table + "." + verb
}

// Add inserts the pair. A duplicate comes back as KindUniqueViolation and a
// missing event as KindNotFound.
func (r *pairRepository) Add(ctx context.Context, eventID, userID string) error {
	query := `INSERT INTO ` + r.table + ` (event_id, user_id) VALUES ($1, $2)`
	_, err := r.DB.ExecContext(ctx, query, eventID, userID)
	return refErr(r.op("insert"), err)
}

// Remove deletes the pair. Deleting nothing is not an error.
func (r *pairRepository) Remove(ctx context.Context, eventID, userID string) error {
	query := `DELETE FROM ` + r.table + ` WHERE event_id = $1 AND user_id = $2`
	_, err := r.DB.ExecContext(ctx, query, eventID, userID)
	return writeErr(r.op("delete"), err)
}

func (r *pairRepository) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ` + r.table + ` WHERE event_id = $1 AND user_id = $2)`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&ok); err != nil {
		return false, readErr(r.op("exists"), err)
	}
	return ok, nil
}

func (r *pairRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + r.table + ` WHERE event_id = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, readErr(r.op("count"), err)
	}
	return n, nil
}

// ListEventIDsByUser returns event ids, most recent first.
func (r *pairRepository) ListEventIDsByUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT event_id FROM ` + r.table + ` WHERE user_id = $1 ORDER BY ` + r.stampCol + ` DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, readErr(r.op("select_ids"), err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, readErr(r.op("select_ids"), err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(r.op("select_ids"), err)
	}
	return ids, nil
}

type participantRepository struct {
	*pairRepository
}

// NewParticipantRepository returns a domain.ParticipantRepository over event_participants.
func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{
		pairRepository: &pairRepository{DB: db, table: "event_participants", stampCol: "joined_at"},
	}
}

// ListEventsByUser reads the user's participation rows joined with their events.
// It backs the joined feed when the procedure is unavailable, so it returns no
// organizer fields and applies no ordering.
func (r *participantRepository) ListEventsByUser(ctx context.Context, userID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumnsE + `
		FROM event_participants ep
		JOIN events e ON e.id = ep.event_id
		WHERE ep.user_id = $1
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, readErr("event_participants.select_events", err)
	}
	list, err := collectEvents(rows)
	if err != nil {
		return nil, readErr("event_participants.select_events", err)
	}
	return list, nil
}

// NewInterestRepository returns a domain.InterestRepository over event_interests.
func NewInterestRepository(db *sql.DB) domain.InterestRepository {
	return &pairRepository{DB: db, table: "event_interests", stampCol: "created_at"}
}
