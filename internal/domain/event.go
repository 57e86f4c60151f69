package domain

import (
	"context"
	"strings"
	"time"
)

// EventCategory is one of the fixed event categories.
type EventCategory string

const (
	CategoryHackathon  EventCategory = "hackathon"
	CategoryTechEvent  EventCategory = "tech event"
	CategoryWorkshop   EventCategory = "workshop"
	CategoryProjects   EventCategory = "projects"
	CategoryTechMeetup EventCategory = "tech meetup"
)

// Categories lists every valid category in display order.
var Categories = []EventCategory{
	CategoryHackathon,
	CategoryTechEvent,
	CategoryWorkshop,
	CategoryProjects,
	CategoryTechMeetup,
}

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Event is an event authored by an organization account.
// swagger:model Event
type Event struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	StartsAt       time.Time      `json:"starts_at"`
	EndsAt         time.Time      `json:"ends_at"`
	IsOnline       bool           `json:"is_online"`
	Category       *EventCategory `json:"category"`
	Location       *string        `json:"location"`
	Website        *string        `json:"website"`
	BannerURL      *string        `json:"banner_url"`
	MinTeamSize    *int           `json:"min_team_size"`
	MaxTeamSize    *int           `json:"max_team_size"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IsUpcoming reports whether the event has not ended yet at now.
func (e *Event) IsUpcoming(now time.Time) bool {
	return !e.EndsAt.Before(now)
}

// EventWithOrg is the read-only feed item: an event joined with its
// organizer's display fields. Organizer fields are nil when no profile exists.
// swagger:model EventWithOrg
type EventWithOrg struct {
	Event
	OrgName      *string `json:"org_name"`
	OrgAvatarURL *string `json:"org_avatar_url"`
}

// EventDetail is the single-event read: the feed item plus participation
// counts and the caller's own flags.
// swagger:model EventDetail
type EventDetail struct {
	*EventWithOrg
	ParticipantCount int  `json:"participant_count"`
	InterestedCount  int  `json:"interested_count"`
	Joined           bool `json:"joined"`
	Interested       bool `json:"interested"`
}

// LoadEventDetail reads the event with its organizer, then the counts and
// userID's flags. The first failure is returned.
func LoadEventDetail(ctx context.Context, events EventService, participation ParticipationService, eventID, userID string) (*EventDetail, error) {
	event, err := events.GetEventWithOrgByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	d := &EventDetail{EventWithOrg: event}
	if d.ParticipantCount, err = participation.CountParticipants(ctx, eventID); err != nil {
		return nil, err
	}
	if d.InterestedCount, err = participation.CountInterested(ctx, eventID); err != nil {
		return nil, err
	}
	if d.Joined, err = participation.IsUserJoined(ctx, eventID, userID); err != nil {
		return nil, err
	}
	if d.Interested, err = participation.IsInterested(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return d, nil
}

// EventUpdate is a partial patch. Nil fields are left unchanged; the owning
// organization cannot be changed.
type EventUpdate struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	StartsAt    *time.Time     `json:"starts_at"`
	EndsAt      *time.Time     `json:"ends_at"`
	IsOnline    *bool          `json:"is_online"`
	Category    *EventCategory `json:"category"`
	Location    *string        `json:"location"`
	Website     *string        `json:"website"`
	BannerURL   *string        `json:"banner_url"`
	MinTeamSize *int           `json:"min_team_size"`
	MaxTeamSize *int           `json:"max_team_size"`
}

// Empty reports whether the patch changes nothing.
func (u EventUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.StartsAt == nil && u.EndsAt == nil &&
		u.IsOnline == nil && u.Category == nil && u.Location == nil && u.Website == nil &&
		u.BannerURL == nil && u.MinTeamSize == nil && u.MaxTeamSize == nil
}

// Apply returns a copy of e with the patch applied. Switching to online
// clears the location.
func (u EventUpdate) Apply(e Event) Event {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.StartsAt != nil {
		e.StartsAt = *u.StartsAt
	}
	if u.EndsAt != nil {
		e.EndsAt = *u.EndsAt
	}
	if u.IsOnline != nil {
		e.IsOnline = *u.IsOnline
		if e.IsOnline {
			e.Location = nil
		}
	}
	if u.Category != nil {
		e.Category = u.Category
	}
	if u.Location != nil {
		e.Location = u.Location
	}
	if u.Website != nil {
		e.Website = u.Website
	}
	if u.BannerURL != nil {
		e.BannerURL = u.BannerURL
	}
	if u.MinTeamSize != nil {
		e.MinTeamSize = u.MinTeamSize
	}
	if u.MaxTeamSize != nil {
		e.MaxTeamSize = u.MaxTeamSize
	}
	return e
}

// ValidateEventInsert checks the fields an organization must supply before an
// event is written.
func ValidateEventInsert(e *Event) error {
	ve := &ValidationError{}
	if e.OrganizationID == "" {
		ve.add("organization_id", "required")
	}
	if strings.TrimSpace(e.Title) == "" {
		ve.add("title", "required")
	}
	if strings.TrimSpace(e.Description) == "" {
		ve.add("description", "required")
	}
	switch {
	case e.StartsAt.IsZero():
		ve.add("starts_at", "required")
	case e.EndsAt.IsZero():
		ve.add("ends_at", "required")
	case !e.EndsAt.After(e.StartsAt):
		ve.add("ends_at", "end time must be after start time")
	}
	if !e.IsOnline && (e.Location == nil || strings.TrimSpace(*e.Location) == "") {
		ve.add("location", "required for in-person events")
	}
	if e.IsOnline && e.Location != nil && *e.Location != "" {
		ve.add("location", "must be empty for online events")
	}
	if e.Category != nil && !e.Category.Valid() {
		ve.add("category", "unknown category")
	}
	if e.MinTeamSize != nil && *e.MinTeamSize < 1 {
		ve.add("min_team_size", "must be at least 1")
	}
	if e.MinTeamSize != nil && e.MaxTeamSize != nil && *e.MinTeamSize > *e.MaxTeamSize {
		ve.add("max_team_size", "must be greater than or equal to min_team_size")
	}
	return ve.OrNil()
}

// ValidateEventUpdate validates the event that results from applying u to
// current. Invalid patches never reach storage.
func ValidateEventUpdate(current Event, u EventUpdate) error {
	if u.Empty() {
		return NewValidationError("body", "no fields to update")
	}
	merged := u.Apply(current)
	return ValidateEventInsert(&merged)
}

// Feed limits.
const (
	DefaultFeedLimit   = 20
	DefaultJoinedLimit = 50
	MaxFeedLimit       = 100
)

// ClampFeedLimit maps an unset limit to def and clamps the rest to
// [1, MaxFeedLimit]. Out-of-range values are never rejected.
func ClampFeedLimit(limit, def int) int {
	if limit == 0 {
		limit = def
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}

// FeedFilters parameterizes the discovery feed. After is a keyset cursor on
// starts_at.
type FeedFilters struct {
	Search   string
	Category *EventCategory
	After    *time.Time
	Limit    int
}

// JoinedStatus partitions joined events by end time. The zero value means all.
type JoinedStatus string

const (
	JoinedAll       JoinedStatus = ""
	JoinedUpcoming  JoinedStatus = "upcoming"
	JoinedCompleted JoinedStatus = "completed"
)

// Valid reports whether s is a known status.
func (s JoinedStatus) Valid() bool {
	return s == JoinedAll || s == JoinedUpcoming || s == JoinedCompleted
}

// Includes reports whether e falls in the partition at now.
func (s JoinedStatus) Includes(e *Event, now time.Time) bool {
	switch s {
	case JoinedUpcoming:
		return e.IsUpcoming(now)
	case JoinedCompleted:
		return !e.IsUpcoming(now)
	default:
		return true
	}
}

// EventRepository is the storage gateway for events and the two feed procedures.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetWithOrgByID runs the composed event+organizer query.
	GetWithOrgByID(ctx context.Context, id string) (*EventWithOrg, error)
	Update(ctx context.Context, id string, changes EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
	ListByOrganizationID(ctx context.Context, orgID string) ([]*Event, error)
	ListEndingAfter(ctx context.Context, t time.Time) ([]*Event, error)
	ListEndingAfterWithOrg(ctx context.Context, t time.Time) ([]*EventWithOrg, error)
	// Feed calls events_feed. The limit must already be clamped.
	Feed(ctx context.Context, search *string, category *EventCategory, after *time.Time, limit int) ([]*EventWithOrg, error)
	// JoinedFeed calls joined_events_feed scoped to userID.
	JoinedFeed(ctx context.Context, userID string, status JoinedStatus, after *time.Time, limit int) ([]*EventWithOrg, error)
}

// EventService is the event repository surface used by handlers and clients.
type EventService interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEventByID(ctx context.Context, id string) (*Event, error)
	// GetEventWithOrgByID falls back to separate event and profile reads when
	// the composed query fails.
	GetEventWithOrgByID(ctx context.Context, id string) (*EventWithOrg, error)
	UpdateEvent(ctx context.Context, id, callerID string, changes EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, id, callerID string) error
	// ListEventsFor is unpaginated and meant for an organization's own listing.
	ListEventsFor(ctx context.Context, role Role, orgID string) ([]*Event, error)
	ListUpcomingEventsWithOrg(ctx context.Context) ([]*EventWithOrg, error)
	FetchEventsFeed(ctx context.Context, filters FeedFilters) ([]*EventWithOrg, error)
	// ListJoinedEvents falls back to a client-side join without organizer
	// fields when the procedure is unavailable.
	ListJoinedEvents(ctx context.Context, status JoinedStatus, userID string, after *time.Time, limit int) ([]*EventWithOrg, error)
}
