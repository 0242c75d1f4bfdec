package notify

import "sync"

// DismissSet tracks notification ids a user has dismissed in the current
// session. It lives in process memory only — dismissals are intentionally
// not persisted, and a fresh session starts with everything visible.
type DismissSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewDismissSet returns an empty dismissal set.
func NewDismissSet() *DismissSet {
	return &DismissSet{ids: make(map[string]struct{})}
}

// Dismiss hides a single event id.
func (s *DismissSet) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// DismissAll hides every event in the given (currently visible) list.
func (s *DismissSet) DismissAll(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.ids[ev.ID] = struct{}{}
	}
}

// Filter returns the events not yet dismissed, preserving order.
func (s *DismissSet) Filter(events []Event) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Event{}
	for _, ev := range events {
		if _, dismissed := s.ids[ev.ID]; dismissed {
			continue
		}
		out = append(out, ev)
	}
	return out
}
