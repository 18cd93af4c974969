package tracking

import (
	"time"

	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/gtag"
)

func newTestEvents() (*Events, *gtag.DataLayer) {
	dl := gtag.NewDataLayer(0)
	sink := gtag.NewSink("G-TEST", false, zap.NewNop())
	sink.SetTagger(dl)
	return NewEvents(sink, "USD", zap.NewNop()), dl
}

type fakeTask struct {
	f       func()
	at      time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler runs tasks when the test advances its clock.
type fakeScheduler struct {
	now   time.Duration
	tasks []*fakeTask
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Task {
	t := &fakeTask{f: f, at: s.now + d}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.now += d
	for _, t := range s.tasks {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			t.f()
		}
	}
}

func (s *fakeScheduler) live() int {
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type panicSink struct{}

func (panicSink) Send(gtag.Command, string, gtag.Params) {
	panic("collector exploded")
}

func searchTerms(dl *gtag.DataLayer) []string {
	ret := make([]string, 0)
	for _, c := range dl.Events(ActionSearch) {
		ret = append(ret, c.Params["search_term"].(string))
	}
	return ret
}
