package clientstate

import (
	"context"

	"eventhub/internal/domain"
)

// InterestGateway writes and recounts interest.
type InterestGateway interface {
	ToggleInterested(ctx context.Context, eventID, userID string, desired *bool) (domain.ToggleResult, error)
	CountInterested(ctx context.Context, eventID string) (int, error)
}

// JoinGateway writes participation.
type JoinGateway interface {
	JoinEvent(ctx context.Context, eventID, userID string) error
	UnjoinEvent(ctx context.Context, eventID, userID string) error
}

// HydrationGateway lists the caller's joined and interested event ids.
type HydrationGateway interface {
	ListJoinedEventIDs(ctx context.Context, userID string) ([]string, error)
	ListInterestedEventIDs(ctx context.Context, userID string) ([]string, error)
}

// ParticipationGateway is everything a view needs from participation.
// domain.ParticipationService satisfies it.
type ParticipationGateway interface {
	InterestGateway
	JoinGateway
	HydrationGateway
}

// FeedGateway reads the discovery feed. domain.EventService satisfies it.
type FeedGateway interface {
	FetchEventsFeed(ctx context.Context, filters domain.FeedFilters) ([]*domain.EventWithOrg, error)
}

// DetailGateway reads a single event with counts and the caller's flags.
type DetailGateway interface {
	LoadEventDetail(ctx context.Context, eventID, userID string) (*domain.EventDetail, error)
}

// ServiceDetails adapts the in-process services to DetailGateway.
type ServiceDetails struct {
	Events        domain.EventService
	Participation domain.ParticipationService
}

func (s ServiceDetails) LoadEventDetail(ctx context.Context, eventID, userID string) (*domain.EventDetail, error) {
	return domain.LoadEventDetail(ctx, s.Events, s.Participation, eventID, userID)
}

var (
	_ ParticipationGateway = domain.ParticipationService(nil)
	_ FeedGateway          = domain.EventService(nil)
	_ DetailGateway        = ServiceDetails{}
)
