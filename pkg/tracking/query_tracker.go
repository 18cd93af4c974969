package tracking

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long the search box has to be still before the
// query is tracked.
const DefaultQuietPeriod = time.Second

type QueryTrackerOptions struct {
	Quiet     time.Duration
	Scheduler Scheduler
	// UseResultCounts makes the tracker report the latest count passed to
	// ObserveResults for the settled query instead of a zero placeholder.
	UseResultCounts bool
}

// QueryTracker debounces search box input and tracks each settled query
// once. At most one emission is pending at any time; a new query replaces
// it and Close cancels it.
type QueryTracker struct {
	events    *Events
	quiet     time.Duration
	scheduler Scheduler
	useCounts bool

	mu           sync.Mutex
	previous     string
	pending      Task
	pendingQuery string
	generation   uint64
	closed       bool
	countQuery   string
	count        int

	// reported is set once the count of the previous query has been sent.
	reported bool
}

func NewQueryTracker(events *Events, opts QueryTrackerOptions) *QueryTracker {
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuietPeriod
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler
	}
	return &QueryTracker{
		events:    events,
		quiet:     opts.Quiet,
		scheduler: opts.Scheduler,
		useCounts: opts.UseResultCounts,
	}
}

// Observe is called with the search box content whenever it may have
// changed. Any change cancels the pending emission; a non-empty query that
// was not the last one tracked schedules a new one.
func (t *QueryTracker) Observe(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.pending != nil && query == t.pendingQuery {
		return
	}
	t.cancelLocked()
	if query == "" || query == t.previous {
		return
	}

	t.generation++
	gen := t.generation
	t.pendingQuery = query
	t.pending = t.scheduler.AfterFunc(t.quiet, func() {
		t.fire(gen, query)
	})
}

// ObserveResults records the result count reported for query. With result
// counts enabled, a count arriving after its query was already tracked with
// the placeholder is tracked once on its own.
func (t *QueryTracker) ObserveResults(query string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.countQuery = query
	t.count = count
	if !t.useCounts || t.closed || t.reported || query == "" || query != t.previous {
		return
	}
	t.events.TrackSearch(query, count)
	t.reported = true
}

func (t *QueryTracker) fire(gen uint64, query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.generation {
		return
	}
	t.pending = nil
	t.pendingQuery = ""

	count := 0
	t.reported = false
	if t.useCounts && t.countQuery == query {
		count = t.count
		t.reported = true
	}
	t.events.TrackSearch(query, count)
	t.previous = query
}

func (t *QueryTracker) cancelLocked() {
	if t.pending == nil {
		return
	}
	t.pending.Stop()
	t.pending = nil
	t.pendingQuery = ""
	t.generation++
}

// Pending reports whether an emission is scheduled.
func (t *QueryTracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Close cancels any pending emission. Nothing is tracked afterwards.
func (t *QueryTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.closed = true
}
