package tracking

import (
	"sync"

	"github.com/matst80/slask-tracking/pkg/router"
)

// RouteEvents is a route change notifier.
type RouteEvents interface {
	On(event string, handler router.Handler) int
	Off(event string, id int)
}

var navigationEvents = []string{router.RouteChangeComplete, router.HashChangeComplete}

// NavigationTracker reports a page view for every completed route or hash
// change.
type NavigationTracker struct {
	events *Events
	routes RouteEvents

	mu  sync.Mutex
	ids map[string]int
}

func NewNavigationTracker(events *Events, routes RouteEvents) *NavigationTracker {
	return &NavigationTracker{events: events, routes: routes}
}

// Start subscribes to the notifier. Calling it again is a no-op.
func (t *NavigationTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ids != nil {
		return
	}
	t.ids = make(map[string]int, len(navigationEvents))
	for _, ev := range navigationEvents {
		t.ids[ev] = t.routes.On(ev, t.events.TrackPageview)
	}
}

// Stop unsubscribes from the notifier.
func (t *NavigationTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ev, id := range t.ids {
		t.routes.Off(ev, id)
	}
	t.ids = nil
}
