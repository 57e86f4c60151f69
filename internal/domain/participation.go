package domain

import "context"

// ToggleResult is the net transition performed by a toggle.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
	ToggleNoop    ToggleResult = "noop"
)

// PairRepository stores existence rows keyed by (event, user). Participation
// and interest rows share this shape.
type PairRepository interface {
	// Add inserts the pair. A duplicate returns a RemoteError of KindUniqueViolation.
	Add(ctx context.Context, eventID, userID string) error
	// Remove deletes the pair. Removing an absent pair is not an error.
	Remove(ctx context.Context, eventID, userID string) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	ListEventIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// ParticipantRepository adds the nested event read used when the joined feed
// procedure is unavailable.
type ParticipantRepository interface {
	PairRepository
	ListEventsByUser(ctx context.Context, userID string) ([]*Event, error)
}

// InterestRepository stores interest ("like") rows.
type InterestRepository interface {
	PairRepository
}

// ParticipationService exposes join and interest state for a user.
type ParticipationService interface {
	// JoinEvent is idempotent: joining twice leaves one row and returns nil.
	JoinEvent(ctx context.Context, eventID, userID string) error
	UnjoinEvent(ctx context.Context, eventID, userID string) error
	IsUserJoined(ctx context.Context, eventID, userID string) (bool, error)
	CountParticipants(ctx context.Context, eventID string) (int, error)
	// ToggleInterested sets interest to *desired, or flips it when desired is
	// nil, writing only when the state changes.
	ToggleInterested(ctx context.Context, eventID, userID string, desired *bool) (ToggleResult, error)
	CountInterested(ctx context.Context, eventID string) (int, error)
	IsInterested(ctx context.Context, eventID, userID string) (bool, error)
	ListInterestedEventIDs(ctx context.Context, userID string) ([]string, error)
	ListJoinedEventIDs(ctx context.Context, userID string) ([]string, error)
}
