package tracking

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/matst80/slask-tracking/pkg/searchstate"
)

// AggregateTracker re-reports everything active in the search state on
// every change: each selected facet value, each category path, each price
// range and the search timing. It does not diff against earlier states, so
// unchanged filters are reported again on every call.
type AggregateTracker struct {
	events *Events
}

func NewAggregateTracker(events *Events) *AggregateTracker {
	return &AggregateTracker{events: events}
}

func (t *AggregateTracker) Observe(state searchstate.State) {
	for _, attr := range slices.Sorted(maps.Keys(state.Refinements)) {
		for _, value := range state.Refinements[attr] {
			t.events.TrackEvent(Event{
				Action:   ActionActiveFilter,
				Category: CategoryState,
				Label:    fmt.Sprintf("%s: %s", attr, value),
			})
		}
	}

	for _, attr := range slices.Sorted(maps.Keys(state.Hierarchy)) {
		path := state.Hierarchy[attr]
		if path == "" {
			continue
		}
		t.events.TrackEvent(Event{
			Action:   ActionBrowseCategory,
			Category: CategoryNavigation,
			Label:    path,
		})
	}

	for _, attr := range slices.Sorted(maps.Keys(state.Ranges)) {
		rng := state.Ranges[attr]
		if !rng.IsSet() {
			continue
		}
		t.events.TrackEvent(Event{
			Action:   ActionPriceFilter,
			Category: CategoryFilter,
			Label:    RangeLabel(attr, rng),
		})
	}

	if state.Query != "" {
		t.events.TrackEvent(Event{
			Action:   ActionSearchPerformance,
			Category: CategoryMetrics,
			Label:    state.Query,
			Value:    Value(float64(state.ProcessingTimeMS)),
		})
	}
}

// RangeLabel formats a range as "attr: min-max", with 0 and "max" standing
// in for missing bounds.
func RangeLabel(attribute string, rng searchstate.Range) string {
	lo := "0"
	if rng.Min != nil {
		lo = strconv.FormatFloat(*rng.Min, 'f', -1, 64)
	}
	hi := "max"
	if rng.Max != nil {
		hi = strconv.FormatFloat(*rng.Max, 'f', -1, 64)
	}
	return fmt.Sprintf("%s: %s-%s", attribute, lo, hi)
}
