package clientstate

import (
	"sync"

	"eventhub/internal/eventbus"
)

// screen carries the mount state shared by views. Every load takes a
// generation; a result is applied only if the view is still mounted and no
// newer load has started. In-flight requests are not cancelled.
type screen struct {
	bus    *eventbus.Bus
	userID string

	mu          sync.Mutex
	mounted     bool
	gen         uint64
	unsubscribe func()
}

// begin starts a load and returns its generation. Callers hold s.mu.
func (s *screen) begin() uint64 {
	s.gen++
	return s.gen
}

// current reports whether gen may still be applied. Callers hold s.mu.
func (s *screen) current(gen uint64) bool {
	return s.mounted && s.gen == gen
}

// attach marks the screen mounted and subscribes fn once. Callers hold s.mu.
func (s *screen) attach(fn eventbus.Listener) {
	s.mounted = true
	if s.unsubscribe == nil {
		s.unsubscribe = s.bus.Subscribe(fn)
	}
}

// detach unmounts and unsubscribes. Pending loads are discarded.
func (s *screen) detach() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mounted = false
	s.gen++
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// mine reports whether ev concerns this screen's user. Events without a user
// come from the local process.
func (s *screen) mine(ev eventbus.AppEvent) bool {
	return ev.UserID == "" || ev.UserID == s.userID
}
