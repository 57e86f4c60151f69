package clientstate

import (
	"context"
	"maps"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

// FeedSnapshot is a copy of what the feed screen renders.
type FeedSnapshot struct {
	Items      []*domain.EventWithOrg
	Joined     map[string]bool
	Interested map[string]bool
	Loaded     bool
}

// FeedView holds the discovery feed together with the caller's joined and
// interested sets. Joins and leaves published on the bus update the joined
// set without a refetch.
type FeedView struct {
	screen
	feed          FeedGateway
	participation ParticipationGateway
	policies      Policies

	filters    domain.FeedFilters
	items      []*domain.EventWithOrg
	joined     map[string]bool
	interested map[string]bool
	loaded     bool
}

// NewFeedView returns an unmounted feed view for userID. A nil bus uses
// eventbus.Default.
func NewFeedView(feed FeedGateway, participation ParticipationGateway, bus *eventbus.Bus, userID string, policies Policies) *FeedView {
	if bus == nil {
		bus = eventbus.Default
	}
	return &FeedView{
		screen:        screen{bus: bus, userID: userID},
		feed:          feed,
		participation: participation,
		policies:      policies,
		joined:        map[string]bool{},
		interested:    map[string]bool{},
	}
}

// Mount subscribes to the bus and loads the first page for filters.
func (v *FeedView) Mount(ctx context.Context, filters domain.FeedFilters) Outcome {
	v.mu.Lock()
	v.attach(v.onEvent)
	v.mu.Unlock()
	return v.load(ctx, filters)
}

// SetFilters reloads with new filters. Results of earlier loads still in
// flight are discarded.
func (v *FeedView) SetFilters(ctx context.Context, filters domain.FeedFilters) Outcome {
	return v.load(ctx, filters)
}

// Unmount unsubscribes. Responses arriving afterwards are discarded.
func (v *FeedView) Unmount() { v.detach() }

func (v *FeedView) load(ctx context.Context, filters domain.FeedFilters) Outcome {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return Outcome{Policy: v.policies.Load, Discarded: true}
	}
	gen := v.begin()
	v.filters = filters
	v.mu.Unlock()

	items, err := v.feed.FetchEventsFeed(ctx, filters)
	var joined, interested []string
	if err == nil {
		joined, err = v.participation.ListJoinedEventIDs(ctx, v.userID)
	}
	if err == nil {
		interested, err = v.participation.ListInterestedEventIDs(ctx, v.userID)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(gen) {
		return Outcome{Err: err, Policy: v.policies.Load, Discarded: true}
	}
	if err != nil {
		return Outcome{Err: err, Policy: v.policies.Load}
	}
	v.items = items
	v.joined = toSet(joined)
	v.interested = toSet(interested)
	v.loaded = true
	return Outcome{Policy: v.policies.Load}
}

// LoadMore appends the page after the last loaded item using its starts_at
// as the keyset cursor. A filter change while it is in flight discards it.
func (v *FeedView) LoadMore(ctx context.Context) Outcome {
	v.mu.Lock()
	if !v.mounted || len(v.items) == 0 {
		v.mu.Unlock()
		return Outcome{Policy: v.policies.Load, Discarded: true}
	}
	gen := v.gen
	filters := v.filters
	after := v.items[len(v.items)-1].StartsAt
	filters.After = &after
	v.mu.Unlock()

	page, err := v.feed.FetchEventsFeed(ctx, filters)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(gen) {
		return Outcome{Err: err, Policy: v.policies.Load, Discarded: true}
	}
	if err != nil {
		return Outcome{Err: err, Policy: v.policies.Load}
	}
	v.items = append(v.items, page...)
	return Outcome{Policy: v.policies.Load}
}

// ToggleInterest flips the caller's interest in eventID optimistically. The
// feed shows no counter, so no recount is made. The write still completes
// after Unmount, but the view state is left alone.
func (v *FeedView) ToggleInterest(ctx context.Context, eventID string) Outcome {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return Outcome{Policy: v.policies.Interest, Discarded: true}
	}
	initial := InterestState{Interested: v.interested[eventID]}
	v.mu.Unlock()

	t := NewInterestToggle(v.participation, eventID, v.userID, initial,
		WithPolicy(v.policies.Interest),
		WithoutRecount(),
		WithOnChange(func(s InterestState) { v.setInterested(eventID, s.Interested) }),
	)
	out := t.Toggle(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		out.Discarded = true
	}
	return out
}

func (v *FeedView) setInterested(eventID string, interested bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	if interested {
		v.interested[eventID] = true
	} else {
		delete(v.interested, eventID)
	}
}

func (v *FeedView) onEvent(ev eventbus.AppEvent) {
	if !v.mine(ev) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	switch ev.Kind {
	case eventbus.KindJoined:
		v.joined[ev.EventID] = true
	case eventbus.KindLeft:
		delete(v.joined, ev.EventID)
	}
}

// Snapshot returns a copy of the rendered state.
func (v *FeedView) Snapshot() FeedSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return FeedSnapshot{
		Items:      append([]*domain.EventWithOrg(nil), v.items...),
		Joined:     maps.Clone(v.joined),
		Interested: maps.Clone(v.interested),
		Loaded:     v.loaded,
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
