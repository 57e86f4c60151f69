package clientstate

import (
	"context"
	"sync"
)

// InterestState is the displayed interest affordance for one event.
type InterestState struct {
	Interested bool
	Count      int
}

// flipped returns s toggled, keeping the counter at or above zero.
func (s InterestState) flipped() InterestState {
	if s.Interested {
		s.Interested = false
		if s.Count > 0 {
			s.Count--
		}
		return s
	}
	s.Interested = true
	s.Count++
	return s
}

// InterestToggle applies interest changes for one (event, user) pair
// optimistically: the state flips before the request and is reverted when it
// fails.
type InterestToggle struct {
	gateway  InterestGateway
	eventID  string
	userID   string
	policy   Policy
	recount  bool
	onChange func(InterestState)

	mu    sync.Mutex
	state InterestState
}

// ToggleOption configures an InterestToggle.
type ToggleOption func(*InterestToggle)

// WithPolicy overrides the failure policy.
func WithPolicy(p Policy) ToggleOption {
	return func(t *InterestToggle) { t.policy = p }
}

// WithoutRecount keeps the optimistic counter after a successful write
// instead of reading the authoritative count.
func WithoutRecount() ToggleOption {
	return func(t *InterestToggle) { t.recount = false }
}

// WithOnChange registers fn to run after every state change, outside the lock.
func WithOnChange(fn func(InterestState)) ToggleOption {
	return func(t *InterestToggle) { t.onChange = fn }
}

// NewInterestToggle returns a toggle starting at initial.
func NewInterestToggle(gateway InterestGateway, eventID, userID string, initial InterestState, opts ...ToggleOption) *InterestToggle {
	t := &InterestToggle{
		gateway: gateway,
		eventID: eventID,
		userID:  userID,
		policy:  DefaultPolicies.Interest,
		recount: true,
		state:   initial,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the displayed state.
func (t *InterestToggle) State() InterestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Set replaces the displayed state, e.g. after hydration.
func (t *InterestToggle) Set(s InterestState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	t.changed(s)
}

// Toggle flips the state, writes it with an explicit desired value and
// reconciles with the response. Overlapping toggles are not serialized; the
// recount bounds the resulting counter drift.
func (t *InterestToggle) Toggle(ctx context.Context) Outcome {
	t.mu.Lock()
	prev := t.state
	next := prev.flipped()
	t.state = next
	t.mu.Unlock()
	t.changed(next)

	desired := next.Interested
	result, err := t.gateway.ToggleInterested(ctx, t.eventID, t.userID, &desired)
	if err != nil {
		t.Set(prev)
		return Outcome{Err: err, Policy: t.policy}
	}
	if t.recount {
		if n, err := t.gateway.CountInterested(ctx, t.eventID); err == nil {
			t.mu.Lock()
			t.state.Count = n
			s := t.state
			t.mu.Unlock()
			t.changed(s)
		}
	}
	return Outcome{Policy: t.policy, Result: result}
}

func (t *InterestToggle) changed(s InterestState) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
