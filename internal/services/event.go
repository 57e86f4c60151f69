package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type eventService struct {
	eventRepo       domain.EventRepository
	profileRepo     domain.ProfileRepository
	participantRepo domain.ParticipantRepository
	storage         domain.ObjectStorage
	logger          *slog.Logger
	contextTimeout  time.Duration
	now             func() time.Time
}

// NewEventService returns an EventService. storage may be nil, in which case
// banner objects are left in place when an event is deleted.
func NewEventService(eventRepo domain.EventRepository,
	profileRepo domain.ProfileRepository,
	participantRepo domain.ParticipantRepository,
	storage domain.ObjectStorage,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:       eventRepo,
		profileRepo:     profileRepo,
		participantRepo: participantRepo,
		storage:         storage,
		logger:          logger,
		contextTimeout:  timeout,
		now:             time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := domain.ValidateEventInsert(event); err != nil {
		return err
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *eventService) GetEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// GetEventWithOrgByID tries the composed query first. Any failure there falls
// through to an event read followed by a best-effort organizer read.
func (s *eventService) GetEventWithOrgByID(ctx context.Context, eventID string) (*domain.EventWithOrg, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	composed, err := s.eventRepo.GetWithOrgByID(ctx, eventID)
	if err == nil {
		return composed, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "composed event read failed, using separate reads", "event_id", eventID, "err", err)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	out := &domain.EventWithOrg{Event: *event}
	if event.OrganizationID == "" {
		return out, nil
	}
	org, err := s.profileRepo.GetByID(ctx, event.OrganizationID)
	switch {
	case err == nil:
		out.OrgName = org.FullName
		out.OrgAvatarURL = org.AvatarURL
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.WarnContext(ctx, "organizer profile read failed", "organization_id", event.OrganizationID, "err", err)
	}
	return out, nil
}

// ownedEvent loads eventID and checks that callerID owns it.
func (s *eventService) ownedEvent(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.OrganizationID != callerID {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID, callerID string, changes domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.ownedEvent(ctx, eventID, callerID)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEventUpdate(*event, changes); err != nil {
		return nil, err
	}
	updated, err := s.eventRepo.Update(ctx, eventID, changes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID, callerID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.ownedEvent(ctx, eventID, callerID)
	if err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.removeBanner(ctx, event)
	return nil
}

func (s *eventService) removeBanner(ctx context.Context, event *domain.Event) {
	if s.storage == nil || event.BannerURL == nil {
		return
	}
	path := domain.ExtractBucketPath(*event.BannerURL, domain.BucketEventBanners)
	if path == "" {
		return
	}
	if err := s.storage.Delete(ctx, domain.BucketEventBanners, path); err != nil {
		s.logger.WarnContext(ctx, "banner delete failed", "event_id", event.ID, "path", path, "err", err)
	}
}

// ListEventsFor returns an organization's own events, or every event that has
// not ended for anyone else. Both are ordered by starts_at.
func (s *eventService) ListEventsFor(ctx context.Context, role domain.Role, orgID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if role == domain.RoleOrganization && orgID != "" {
		events, err := s.eventRepo.ListByOrganizationID(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("list organization events: %w", err)
		}
		return events, nil
	}
	events, err := s.eventRepo.ListEndingAfter(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

func (s *eventService) ListUpcomingEventsWithOrg(ctx context.Context) ([]*domain.EventWithOrg, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListEndingAfterWithOrg(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// FetchEventsFeed clamps the limit before it reaches the feed procedure.
func (s *eventService) FetchEventsFeed(ctx context.Context, filters domain.FeedFilters) ([]*domain.EventWithOrg, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filters.Category != nil && !filters.Category.Valid() {
		return nil, domain.NewValidationError("category", "unknown category")
	}
	var search *string
	if q := strings.TrimSpace(filters.Search); q != "" {
		search = &q
	}
	limit := domain.ClampFeedLimit(filters.Limit, domain.DefaultFeedLimit)
	events, err := s.eventRepo.Feed(ctx, search, filters.Category, filters.After, limit)
	if err != nil {
		return nil, fmt.Errorf("events feed: %w", err)
	}
	return events, nil
}

// ListJoinedEvents calls the joined feed procedure. When that fails it reads
// the user's participation rows directly and filters, sorts and limits them in
// memory; organizer fields are nil on that path.
func (s *eventService) ListJoinedEvents(ctx context.Context, status domain.JoinedStatus, userID string, after *time.Time, limit int) ([]*domain.EventWithOrg, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return nil, domain.NewValidationError("status", "must be upcoming, completed or empty")
	}
	limit = domain.ClampFeedLimit(limit, domain.DefaultJoinedLimit)

	events, err := s.eventRepo.JoinedFeed(ctx, userID, status, after, limit)
	if err == nil {
		return events, nil
	}
	s.logger.WarnContext(ctx, "joined feed procedure failed, using participation rows", "user_id", userID, "err", err)

	joined, err := s.participantRepo.ListEventsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list joined events: %w", err)
	}
	now := s.now()
	out := make([]*domain.EventWithOrg, 0, len(joined))
	for _, e := range joined {
		if !status.Includes(e, now) {
			continue
		}
		if after != nil && !e.StartsAt.After(*after) {
			continue
		}
		out = append(out, &domain.EventWithOrg{Event: *e})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
