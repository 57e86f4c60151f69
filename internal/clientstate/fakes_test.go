package clientstate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

var errRemote = &domain.RemoteError{Op: "event_interests.insert", Kind: domain.KindRemoteWrite, Err: errors.New("connection reset")}

func newTestBus() *eventbus.Bus {
	return eventbus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeGateway implements every gateway. The *Fn hooks, when set, replace the
// default behavior and receive the 1-based call number.
type fakeGateway struct {
	mu sync.Mutex

	toggleErr     error
	toggleResult  domain.ToggleResult
	countErr      error
	count         int
	joinErr       error
	joinedIDs     []string
	interestedIDs []string
	items         []*domain.EventWithOrg

	onToggle func()
	feedFn   func(call int, f domain.FeedFilters) ([]*domain.EventWithOrg, error)
	detailFn func(call int, eventID string) (*domain.EventDetail, error)

	toggleCalls  int
	countCalls   int
	joinCalls    int
	unjoinCalls  int
	feedCalls    int
	detailCalls  int
	lastDesired  *bool
	lastUserID   string
	feedRequests []domain.FeedFilters
}

func (f *fakeGateway) ToggleInterested(ctx context.Context, eventID, userID string, desired *bool) (domain.ToggleResult, error) {
	if f.onToggle != nil {
		f.onToggle()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggleCalls++
	f.lastDesired, f.lastUserID = desired, userID
	return f.toggleResult, f.toggleErr
}

func (f *fakeGateway) CountInterested(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	return f.count, f.countErr
}

func (f *fakeGateway) JoinEvent(ctx context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls++
	f.lastUserID = userID
	return f.joinErr
}

func (f *fakeGateway) UnjoinEvent(ctx context.Context, eventID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unjoinCalls++
	f.lastUserID = userID
	return f.joinErr
}

func (f *fakeGateway) ListJoinedEventIDs(ctx context.Context, userID string) ([]string, error) {
	return f.joinedIDs, nil
}

func (f *fakeGateway) ListInterestedEventIDs(ctx context.Context, userID string) ([]string, error) {
	return f.interestedIDs, nil
}

func (f *fakeGateway) FetchEventsFeed(ctx context.Context, filters domain.FeedFilters) ([]*domain.EventWithOrg, error) {
	f.mu.Lock()
	f.feedCalls++
	call := f.feedCalls
	f.feedRequests = append(f.feedRequests, filters)
	fn := f.feedFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, filters)
	}
	return f.items, nil
}

func (f *fakeGateway) LoadEventDetail(ctx context.Context, eventID, userID string) (*domain.EventDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	call := f.detailCalls
	fn := f.detailFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, eventID)
	}
	return nil, domain.ErrNotFound
}

func item(id string, startsAt time.Time) *domain.EventWithOrg {
	return &domain.EventWithOrg{Event: domain.Event{ID: id, StartsAt: startsAt, EndsAt: startsAt.Add(time.Hour)}}
}
