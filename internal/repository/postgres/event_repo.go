package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eventhub/internal/domain"
)

const eventColumns = `id, organization_id, title, description, starts_at, ends_at, is_online,
		category, location, website, banner_url, min_team_size, max_team_size, created_at`

// eventColumnsE is eventColumns qualified with the "e" alias.
const eventColumnsE = `e.id, e.organization_id, e.title, e.description, e.starts_at, e.ends_at, e.is_online,
		e.category, e.location, e.website, e.banner_url, e.min_team_size, e.max_team_size, e.created_at`

// feedColumns is the row shape returned by both feed functions.
const feedColumns = eventColumns + `, org_name, org_avatar_url`

type rowScanner interface {
	Scan(dest ...any) error
}

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(s rowScanner, extra ...any) (*domain.Event, error) {
	e := &domain.Event{}
	var category, location, website, banner sql.NullString
	var minTeam, maxTeam sql.NullInt64
	dest := []any{
		&e.ID, &e.OrganizationID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.IsOnline,
		&category, &location, &website, &banner, &minTeam, &maxTeam, &e.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if category.Valid {
		c := domain.EventCategory(category.String)
		e.Category = &c
	}
	e.Location = nullString(location)
	e.Website = nullString(website)
	e.BannerURL = nullString(banner)
	e.MinTeamSize = nullInt(minTeam)
	e.MaxTeamSize = nullInt(maxTeam)
	return e, nil
}

func scanEventWithOrg(s rowScanner) (*domain.EventWithOrg, error) {
	var orgName, orgAvatar sql.NullString
	e, err := scanEvent(s, &orgName, &orgAvatar)
	if err != nil {
		return nil, err
	}
	return &domain.EventWithOrg{
		Event:        *e,
		OrgName:      nullString(orgName),
		OrgAvatarURL: nullString(orgAvatar),
	}, nil
}

func collectEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	list := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func collectEventsWithOrg(rows *sql.Rows) ([]*domain.EventWithOrg, error) {
	defer rows.Close()
	list := []*domain.EventWithOrg{}
	for rows.Next() {
		e, err := scanEventWithOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (organization_id, title, description, starts_at, ends_at, is_online,
			category, location, website, banner_url, min_team_size, max_team_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.OrganizationID, e.Title, e.Description, e.StartsAt, e.EndsAt, e.IsOnline,
		e.Category, e.Location, e.Website, e.BannerURL, e.MinTeamSize, e.MaxTeamSize,
	).Scan(&e.ID, &e.CreatedAt)
	return writeErr("events.insert", err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readErr("events.select", err)
	}
	return e, nil
}

func (r *eventRepository) GetWithOrgByID(ctx context.Context, id string) (*domain.EventWithOrg, error) {
	query := `
		SELECT ` + eventColumnsE + `, p.full_name, p.avatar_url
		FROM events e
		LEFT JOIN profiles p ON p.id = e.organization_id
		WHERE e.id = $1
	`
	e, err := scanEventWithOrg(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, readErr("events.select_with_org", err)
	}
	return e, nil
}

// Update writes only the non-nil fields of changes. Switching to online
// clears the location unless one is supplied in the same patch.
func (r *eventRepository) Update(ctx context.Context, id string, changes domain.EventUpdate) (*domain.Event, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if changes.Title != nil {
		set("title", *changes.Title)
	}
	if changes.Description != nil {
		set("description", *changes.Description)
	}
	if changes.StartsAt != nil {
		set("starts_at", *changes.StartsAt)
	}
	if changes.EndsAt != nil {
		set("ends_at", *changes.EndsAt)
	}
	if changes.IsOnline != nil {
		set("is_online", *changes.IsOnline)
	}
	if changes.Category != nil {
		set("category", string(*changes.Category))
	}
	switch {
	case changes.Location != nil:
		set("location", *changes.Location)
	case changes.IsOnline != nil && *changes.IsOnline:
		sets = append(sets, "location = NULL")
	}
	if changes.Website != nil {
		set("website", *changes.Website)
	}
	if changes.BannerURL != nil {
		set("banner_url", *changes.BannerURL)
	}
	if changes.MinTeamSize != nil {
		set("min_team_size", *changes.MinTeamSize)
	}
	if changes.MaxTeamSize != nil {
		set("max_team_size", *changes.MaxTeamSize)
	}
	if len(sets) == 0 {
		return nil, domain.NewValidationError("body", "no fields to update")
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), eventColumns)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, writeErr("events.update", err)
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return writeErr("events.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr("events.delete", err)
	}
	if n == 0 {
		return notFound("events.delete")
	}
	return nil
}

func (r *eventRepository) ListByOrganizationID(ctx context.Context, orgID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organization_id = $1 ORDER BY starts_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, readErr("events.select_by_org", err)
	}
	list, err := collectEvents(rows)
	if err != nil {
		return nil, readErr("events.select_by_org", err)
	}
	return list, nil
}

func (r *eventRepository) ListEndingAfter(ctx context.Context, t time.Time) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ends_at >= $1 ORDER BY starts_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, t)
	if err != nil {
		return nil, readErr("events.select_upcoming", err)
	}
	list, err := collectEvents(rows)
	if err != nil {
		return nil, readErr("events.select_upcoming", err)
	}
	return list, nil
}

func (r *eventRepository) ListEndingAfterWithOrg(ctx context.Context, t time.Time) ([]*domain.EventWithOrg, error) {
	query := `
		SELECT ` + eventColumnsE + `, p.full_name, p.avatar_url
		FROM events e
		LEFT JOIN profiles p ON p.id = e.organization_id
		WHERE e.ends_at >= $1
		ORDER BY e.starts_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, t)
	if err != nil {
		return nil, readErr("events.select_upcoming_with_org", err)
	}
	list, err := collectEventsWithOrg(rows)
	if err != nil {
		return nil, readErr("events.select_upcoming_with_org", err)
	}
	return list, nil
}

func (r *eventRepository) Feed(ctx context.Context, search *string, category *domain.EventCategory, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	query := `SELECT ` + feedColumns + ` FROM events_feed($1, $2, $3, $4)`
	rows, err := r.DB.QueryContext(ctx, query, search, category, after, limit)
	if err != nil {
		return nil, readErr("rpc.events_feed", err)
	}
	list, err := collectEventsWithOrg(rows)
	if err != nil {
		return nil, readErr("rpc.events_feed", err)
	}
	return list, nil
}

// JoinedFeed scopes joined_events_feed to userID through the transaction-local
// app.user_id setting, which the function reads as the calling user.
func (r *eventRepository) JoinedFeed(ctx context.Context, userID string, status domain.JoinedStatus, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, readErr("rpc.joined_events_feed", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.user_id', $1, true)`, userID); err != nil {
		return nil, readErr("rpc.joined_events_feed", err)
	}
	var inStatus *string
	if status != domain.JoinedAll {
		s := string(status)
		inStatus = &s
	}
	query := `SELECT ` + feedColumns + ` FROM joined_events_feed($1, $2, $3)`
	rows, err := tx.QueryContext(ctx, query, inStatus, after, limit)
	if err != nil {
		return nil, readErr("rpc.joined_events_feed", err)
	}
	list, err := collectEventsWithOrg(rows)
	if err != nil {
		return nil, readErr("rpc.joined_events_feed", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, readErr("rpc.joined_events_feed", err)
	}
	return list, nil
}
