package clientstate

import (
	"context"
	"sync"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

// JoinFlow joins and leaves events behind an explicit confirmation and keeps
// the caller's joined set. Successful changes are published on the bus so
// other views update their own caches without refetching.
type JoinFlow struct {
	gateway  JoinGateway
	bus      *eventbus.Bus
	userID   string
	policies Policies

	mu     sync.Mutex
	joined map[string]struct{}
}

// NewJoinFlow returns a flow for userID. A nil bus uses eventbus.Default.
func NewJoinFlow(gateway JoinGateway, bus *eventbus.Bus, userID string, policies Policies) *JoinFlow {
	if bus == nil {
		bus = eventbus.Default
	}
	return &JoinFlow{
		gateway:  gateway,
		bus:      bus,
		userID:   userID,
		policies: policies,
		joined:   make(map[string]struct{}),
	}
}

// Hydrate replaces the joined set.
func (f *JoinFlow) Hydrate(eventIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		f.joined[id] = struct{}{}
	}
}

// IsJoined reports whether eventID is in the joined set.
func (f *JoinFlow) IsJoined(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.joined[eventID]
	return ok
}

// Join requires consent; without it no request is made. On failure the
// joined set is unchanged.
func (f *JoinFlow) Join(ctx context.Context, eventID string, consent bool) Outcome {
	if !consent {
		return Outcome{Err: domain.NewValidationError("consent", "must be accepted to join"), Policy: Surface}
	}
	if err := f.gateway.JoinEvent(ctx, eventID, f.userID); err != nil {
		return Outcome{Err: err, Policy: f.policies.Join}
	}
	f.mu.Lock()
	f.joined[eventID] = struct{}{}
	f.mu.Unlock()
	f.bus.Publish(eventbus.Joined(eventID).For(f.userID))
	return Outcome{Policy: f.policies.Join}
}

// Leave requires confirmation and mirrors Join.
func (f *JoinFlow) Leave(ctx context.Context, eventID string, confirmed bool) Outcome {
	if !confirmed {
		return Outcome{Err: domain.NewValidationError("confirm", "must be confirmed to leave"), Policy: Surface}
	}
	if err := f.gateway.UnjoinEvent(ctx, eventID, f.userID); err != nil {
		return Outcome{Err: err, Policy: f.policies.Leave}
	}
	f.mu.Lock()
	delete(f.joined, eventID)
	f.mu.Unlock()
	f.bus.Publish(eventbus.Left(eventID).For(f.userID))
	return Outcome{Policy: f.policies.Leave}
}
