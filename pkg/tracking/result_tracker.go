package tracking

import (
	"sync"

	"github.com/matst80/slask-tracking/pkg/searchstate"
)

// ResultTracker tracks a search with its real result count the first time a
// new query shows up in the search state.
type ResultTracker struct {
	events *Events

	mu   sync.Mutex
	last string
}

func NewResultTracker(events *Events) *ResultTracker {
	return &ResultTracker{events: events}
}

func (t *ResultTracker) Observe(state searchstate.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state.Query == "" || state.Query == t.last {
		return
	}
	t.events.TrackSearch(state.Query, state.ResultCount)
	t.last = state.Query
}
