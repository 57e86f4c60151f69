package clientstate

import (
	"context"
	"errors"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"
)

// ErrNotLoaded is returned by DetailView actions before an event is loaded.
var ErrNotLoaded = errors.New("event not loaded")

// DetailSnapshot is a copy of what the event detail screen renders.
type DetailSnapshot struct {
	Event            *domain.EventWithOrg
	ParticipantCount int
	Joined           bool
	Interest         InterestState
	Loaded           bool
}

// DetailView holds one event with its counters. Joins and leaves for the
// event published on the bus adjust the participant count and joined flag.
type DetailView struct {
	screen
	details  DetailGateway
	interest InterestGateway
	policies Policies

	eventID      string
	event        *domain.EventWithOrg
	participants int
	joined       bool
	toggle       *InterestToggle
}

// NewDetailView returns an unmounted detail view for userID. A nil bus uses
// eventbus.Default.
func NewDetailView(details DetailGateway, interest InterestGateway, bus *eventbus.Bus, userID string, policies Policies) *DetailView {
	if bus == nil {
		bus = eventbus.Default
	}
	return &DetailView{
		screen:   screen{bus: bus, userID: userID},
		details:  details,
		interest: interest,
		policies: policies,
	}
}

// Mount subscribes to the bus and loads eventID.
func (v *DetailView) Mount(ctx context.Context, eventID string) Outcome {
	v.mu.Lock()
	v.attach(v.onEvent)
	v.mu.Unlock()
	return v.load(ctx, eventID)
}

// SetEvent switches to another event. A load still in flight for the
// previous one is discarded.
func (v *DetailView) SetEvent(ctx context.Context, eventID string) Outcome {
	return v.load(ctx, eventID)
}

// Reload refetches the current event, e.g. from a retry affordance.
func (v *DetailView) Reload(ctx context.Context) Outcome {
	v.mu.Lock()
	id := v.eventID
	v.mu.Unlock()
	return v.load(ctx, id)
}

// Unmount unsubscribes. Responses arriving afterwards are discarded.
func (v *DetailView) Unmount() { v.detach() }

func (v *DetailView) load(ctx context.Context, eventID string) Outcome {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return Outcome{Policy: v.policies.Load, Discarded: true}
	}
	gen := v.begin()
	if eventID != v.eventID {
		v.eventID = eventID
		v.event = nil
		v.toggle = nil
	}
	v.mu.Unlock()

	d, err := v.details.LoadEventDetail(ctx, eventID, v.userID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.current(gen) {
		return Outcome{Err: err, Policy: v.policies.Load, Discarded: true}
	}
	if err != nil {
		// Not found is shown so the screen can offer a retry.
		policy := v.policies.Load
		if errors.Is(err, domain.ErrNotFound) {
			policy = Surface
		}
		return Outcome{Err: err, Policy: policy}
	}
	v.event = d.EventWithOrg
	v.participants = d.ParticipantCount
	v.joined = d.Joined
	v.toggle = NewInterestToggle(v.interest, eventID, v.userID,
		InterestState{Interested: d.Interested, Count: d.InterestedCount},
		WithPolicy(v.policies.Interest),
	)
	return Outcome{Policy: v.policies.Load}
}

// ToggleInterest flips interest in the loaded event and recounts on success.
func (v *DetailView) ToggleInterest(ctx context.Context) Outcome {
	v.mu.Lock()
	t := v.toggle
	v.mu.Unlock()
	if t == nil {
		return Outcome{Err: ErrNotLoaded, Policy: v.policies.Interest}
	}
	return t.Toggle(ctx)
}

func (v *DetailView) onEvent(ev eventbus.AppEvent) {
	if !v.mine(ev) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if ev.EventID != v.eventID || v.event == nil {
		return
	}
	switch ev.Kind {
	case eventbus.KindJoined:
		if !v.joined {
			v.joined = true
			v.participants++
		}
	case eventbus.KindLeft:
		if v.joined {
			v.joined = false
			if v.participants > 0 {
				v.participants--
			}
		}
	}
}

// Snapshot returns a copy of the rendered state.
func (v *DetailView) Snapshot() DetailSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := DetailSnapshot{
		Event:            v.event,
		ParticipantCount: v.participants,
		Joined:           v.joined,
		Loaded:           v.event != nil,
	}
	if v.toggle != nil {
		s.Interest = v.toggle.State()
	}
	return s
}
