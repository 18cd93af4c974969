// Package session mounts one set of trackers per storefront visitor and
// tears it down when the visitor leaves or goes idle.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/config"
	"github.com/matst80/slask-tracking/pkg/gtag"
	"github.com/matst80/slask-tracking/pkg/router"
	"github.com/matst80/slask-tracking/pkg/searchstate"
	"github.com/matst80/slask-tracking/pkg/tracking"
)

// Session is the tracker bundle of one visitor.
type Session struct {
	ID     string
	Sink   gtag.Sink
	Events *tracking.Events
	State  *searchstate.Store
	Routes *router.Events

	query       *tracking.QueryTracker
	results     *tracking.ResultTracker
	refinements *tracking.RefinementTracker
	aggregate   *tracking.AggregateTracker
	navigation  *tracking.NavigationTracker

	mu       sync.Mutex
	lastSeen time.Time
	closed   atomic.Bool
}

// closingSink drops every call once its session is closed, so a request
// still holding the session after teardown sends nothing.
type closingSink struct {
	gtag.Sink
	closed *atomic.Bool
}

func (c closingSink) Send(command gtag.Command, name string, params gtag.Params) {
	if c.closed.Load() {
		return
	}
	c.Sink.Send(command, name, params)
}

// Factory builds sessions sharing one sink and configuration.
type Factory struct {
	sink        gtag.Sink
	currency    string
	quiet       time.Duration
	collapsed   bool
	filterStyle tracking.FilterStyle
	scheduler   tracking.Scheduler
	log         *zap.Logger
	now         func() time.Time
}

func NewFactory(cfg *config.Config, sink gtag.Sink, scheduler tracking.Scheduler, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{
		sink:        sink,
		currency:    cfg.Currency,
		quiet:       cfg.SearchDebounce,
		collapsed:   cfg.SearchEvents == config.SearchEventsCollapsed,
		filterStyle: tracking.FilterStyle(cfg.FilterEvents),
		scheduler:   scheduler,
		log:         log,
		now:         time.Now,
	}
}

// New mounts the trackers for a visitor.
func (f *Factory) New(id string) *Session {
	s := &Session{
		ID:       id,
		State:    searchstate.NewStore(),
		Routes:   router.NewEvents(),
		lastSeen: f.now(),
	}
	s.Sink = closingSink{Sink: gtag.WithClient(f.sink, id), closed: &s.closed}
	s.Events = tracking.NewEvents(s.Sink, f.currency, f.log.With(zap.String("session", id)))
	s.query = tracking.NewQueryTracker(s.Events, tracking.QueryTrackerOptions{
		Quiet:           f.quiet,
		Scheduler:       f.scheduler,
		UseResultCounts: f.collapsed,
	})
	s.refinements = tracking.NewRefinementTracker(s.Events, s.State, f.filterStyle)
	s.aggregate = tracking.NewAggregateTracker(s.Events)
	s.navigation = tracking.NewNavigationTracker(s.Events, s.Routes)
	if !f.collapsed {
		s.results = tracking.NewResultTracker(s.Events)
	}
	s.navigation.Start()
	return s
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Bootstrap reports the initial page load.
func (s *Session) Bootstrap(location, title string) {
	gtag.Bootstrap(s.Sink, location, title, time.Now())
}

// UpdateState installs a new search state and lets every observer see it.
func (s *Session) UpdateState(state searchstate.State) searchstate.State {
	if s.Closed() {
		return s.State.Snapshot()
	}
	s.State.Replace(state)
	snapshot := s.State.Snapshot()

	if s.results == nil {
		s.query.ObserveResults(snapshot.Query, snapshot.ResultCount)
	}
	s.query.Observe(snapshot.Query)
	if s.results != nil {
		s.results.Observe(snapshot)
	}
	s.aggregate.Observe(snapshot)
	return snapshot
}

// UpdateQuery handles search box input that has no results yet.
func (s *Session) UpdateQuery(query string) {
	if s.Closed() {
		return
	}
	s.State.SetQuery(query)
	s.query.Observe(query)
}

// Toggle tracks and applies a facet toggle and returns the resulting state.
// The toggle is a state change, so the aggregate tracker sees the result.
func (s *Session) Toggle(attribute, value string) (bool, searchstate.State) {
	if s.Closed() {
		return false, s.State.Snapshot()
	}
	added := s.refinements.Toggle(attribute, value)
	snapshot := s.State.Snapshot()
	s.aggregate.Observe(snapshot)
	return added, snapshot
}

// Navigate notifies the route listeners of a completed navigation.
func (s *Session) Navigate(url string, hashOnly bool) {
	if s.Closed() {
		return
	}
	event := router.RouteChangeComplete
	if hashOnly {
		event = router.HashChangeComplete
	}
	s.Routes.Emit(event, url)
}

func (s *Session) SearchPending() bool {
	return s.query.Pending()
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close unmounts the trackers. Pending search emissions are dropped and
// nothing is sent through the session afterwards.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.query.Close()
	s.navigation.Stop()
}
