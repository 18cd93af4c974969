package searchstate

import "sync"

// Store holds the current State of one visitor. It is the search state
// manager the trackers observe and the refinement tracker mutates.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace installs a new state reported by the frontend.
func (s *Store) Replace(state State) {
	state = state.Clone()
	state.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Store) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Query = query
}

func (s *Store) IsRefined(attribute, value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsRefined(attribute, value)
}

// Refine toggles a facet value.
func (s *Store) Refine(attribute, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Toggle(attribute, value)
}
