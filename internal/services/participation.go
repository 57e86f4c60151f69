package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

// Publisher receives participation changes after they are stored.
type Publisher interface {
	Publish(eventbus.AppEvent)
}

type participationService struct {
	participantRepo domain.ParticipantRepository
	interestRepo    domain.InterestRepository
	publisher       Publisher
	contextTimeout  time.Duration
}

// NewParticipationService returns a ParticipationService. publisher may be nil.
func NewParticipationService(participantRepo domain.ParticipantRepository,
	interestRepo domain.InterestRepository,
	publisher Publisher,
	timeout time.Duration,
) domain.ParticipationService {
	return &participationService{
		participantRepo: participantRepo,
		interestRepo:    interestRepo,
		publisher:       publisher,
		contextTimeout:  timeout,
	}
}

func (s *participationService) publish(ev eventbus.AppEvent) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

// JoinEvent treats an existing participation row as success.
func (s *participationService) JoinEvent(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.participantRepo.Add(ctx, eventID, userID); err != nil && !errors.Is(err, domain.ErrUniqueViolation) {
		return fmt.Errorf("join event: %w", err)
	}
	s.publish(eventbus.Joined(eventID).For(userID))
	return nil
}

func (s *participationService) UnjoinEvent(ctx context.Context, eventID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.participantRepo.Remove(ctx, eventID, userID); err != nil {
		return fmt.Errorf("unjoin event: %w", err)
	}
	s.publish(eventbus.Left(eventID).For(userID))
	return nil
}

func (s *participationService) IsUserJoined(ctx context.Context, eventID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ok, err := s.participantRepo.Exists(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("is joined: %w", err)
	}
	return ok, nil
}

func (s *participationService) CountParticipants(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.participantRepo.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// ToggleInterested reads the current state and writes only when the target
// differs from it. A duplicate insert from a concurrent request still counts
// as added.
func (s *participationService) ToggleInterested(ctx context.Context, eventID, userID string, desired *bool) (domain.ToggleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	has, err := s.interestRepo.Exists(ctx, eventID, userID)
	if err != nil {
		return "", fmt.Errorf("read interest: %w", err)
	}
	want := !has
	if desired != nil {
		want = *desired
	}
	if want == has {
		return domain.ToggleNoop, nil
	}
	if want {
		if err := s.interestRepo.Add(ctx, eventID, userID); err != nil && !errors.Is(err, domain.ErrUniqueViolation) {
			return "", fmt.Errorf("add interest: %w", err)
		}
		return domain.ToggleAdded, nil
	}
	if err := s.interestRepo.Remove(ctx, eventID, userID); err != nil {
		return "", fmt.Errorf("remove interest: %w", err)
	}
	return domain.ToggleRemoved, nil
}

func (s *participationService) CountInterested(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.interestRepo.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count interested: %w", err)
	}
	return n, nil
}

func (s *participationService) IsInterested(ctx context.Context, eventID, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ok, err := s.interestRepo.Exists(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("is interested: %w", err)
	}
	return ok, nil
}

func (s *participationService) ListInterestedEventIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := s.interestRepo.ListEventIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interested ids: %w", err)
	}
	return ids, nil
}

func (s *participationService) ListJoinedEventIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := s.participantRepo.ListEventIDsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list joined ids: %w", err)
	}
	return ids, nil
}
