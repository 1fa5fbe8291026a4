package session

import (
	"sync"
	"time"
)

// DefaultThrottleWindow is how long an identical error message stays suppressed.
const DefaultThrottleWindow = 1000 * time.Millisecond

// ThrottleStore keeps the single remembered message. Admit is one atomic
// compare-and-set: it returns false when message equals the remembered one
// and at most window has passed since it was admitted, otherwise it
// remembers (message, now) and returns true.
type ThrottleStore interface {
	Admit(message string, now time.Time, window time.Duration) bool
}

// MemoryThrottleStore is a process-local ThrottleStore.
type MemoryThrottleStore struct {
	mu      sync.Mutex
	message string
	at      time.Time
	set     bool
}

func NewMemoryThrottleStore() *MemoryThrottleStore {
	return &MemoryThrottleStore{}
}

func (s *MemoryThrottleStore) Admit(message string, now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set && s.message == message && now.Sub(s.at) <= window {
		return false
	}
	s.message, s.at, s.set = message, now, true
	return true
}

// ErrorThrottle suppresses an error message identical to the previous one
// when it arrives within the window.
type ErrorThrottle struct {
	store  ThrottleStore
	window time.Duration
	now    func() time.Time
}

// NewErrorThrottle creates a throttle. A nil store means process-local memory.
func NewErrorThrottle(window time.Duration, store ThrottleStore) *ErrorThrottle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	if store == nil {
		store = NewMemoryThrottleStore()
	}
	return &ErrorThrottle{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// Report returns true when message should be shown, remembering it as the
// latest one. Identical messages within the window return false.
func (t *ErrorThrottle) Report(message string) bool {
	return t.store.Admit(message, t.now(), t.window)
}
