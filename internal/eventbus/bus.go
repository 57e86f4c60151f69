// Package eventbus fans participation changes out to in-process subscribers.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Kind names an application event.
type Kind string

const (
	KindJoined Kind = "event:joined"
	KindLeft   Kind = "event:left"
)

// AppEvent is a participation change for one event. UserID is set when the
// change is published server-side so relays can route it to that user.
type AppEvent struct {
	Kind    Kind   `json:"type"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id,omitempty"`
}

// For returns a copy of e attributed to userID.
func (e AppEvent) For(userID string) AppEvent {
	e.UserID = userID
	return e
}

// Joined returns the event published after a successful join.
func Joined(eventID string) AppEvent { return AppEvent{Kind: KindJoined, EventID: eventID} }

// Left returns the event published after a successful leave.
func Left(eventID string) AppEvent { return AppEvent{Kind: KindLeft, EventID: eventID} }

// Listener receives published events on the publisher's goroutine.
type Listener func(AppEvent)

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Bus is a synchronous publish/subscribe hub. Listeners run in subscription
// order; a panicking listener is logged and skipped. The zero value is not
// usable, use New.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	logger *slog.Logger
}

// New returns an empty bus. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Default is the process-wide bus.
var Default = New(nil)

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is a no-op.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	s := &subscription{fn: fn}
	s.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every listener subscribed when Publish was called.
// A listener removed during dispatch is not called afterwards.
func (b *Bus) Publish(ev AppEvent) {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if !s.active.Load() {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s *subscription, ev AppEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", "kind", ev.Kind, "event_id", ev.EventID, "panic", r)
		}
	}()
	s.fn(ev)
}

// Len reports the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
