// Package clientstate holds the state a client screen renders for events:
// optimistic interest toggles, the join and leave flows, and feed and detail
// views kept in sync through the event bus.
package clientstate

import (
	"errors"

	"eventhub/internal/domain"
)

// Policy decides whether a failed operation is shown to the user.
type Policy int

const (
	// Silent failures only revert local state.
	Silent Policy = iota
	// Surface failures are reported to the user.
	Surface
)

func (p Policy) String() string {
	if p == Surface {
		return "surface"
	}
	return "silent"
}

// Policies sets the policy per operation.
type Policies struct {
	Interest Policy
	Join     Policy
	Leave    Policy
	Load     Policy
}

// DefaultPolicies keeps interest toggles and background loads quiet and
// reports join and leave failures.
var DefaultPolicies = Policies{
	Interest: Silent,
	Join:     Surface,
	Leave:    Surface,
	Load:     Silent,
}

// Outcome is the result of a client operation.
type Outcome struct {
	Err    error
	Policy Policy
	// Result is the net transition of an interest toggle.
	Result domain.ToggleResult
	// Discarded is set when the view was unmounted or its input changed
	// before the response arrived; the response was not applied.
	Discarded bool
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// ShouldSurface reports whether the caller should show o.Err. Validation
// errors are always shown since they are produced before any request.
func (o Outcome) ShouldSurface() bool {
	if o.Err == nil || o.Discarded {
		return false
	}
	return o.Policy == Surface || errors.Is(o.Err, domain.ErrInvalidInput)
}
