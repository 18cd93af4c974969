package tracking

import (
	"fmt"

	"github.com/matst80/slask-tracking/pkg/gtag"
)

// FilterStyle selects how a facet toggle is classified on the wire.
type FilterStyle string

const (
	// FilterStyleGeneric sends add_filter/remove_filter as generic events.
	FilterStyleGeneric FilterStyle = "generic"
	// FilterStyleNamed sends filter_added/filter_removed with filter params.
	FilterStyleNamed FilterStyle = "named"
)

// Refiner is the search state mutator for list refinements.
type Refiner interface {
	IsRefined(attribute, value string) bool
	Refine(attribute, value string)
}

// RefinementTracker tracks facet toggles and applies them.
type RefinementTracker struct {
	events  *Events
	refiner Refiner
	style   FilterStyle
}

func NewRefinementTracker(events *Events, refiner Refiner, style FilterStyle) *RefinementTracker {
	if style == "" {
		style = FilterStyleGeneric
	}
	return &RefinementTracker{events: events, refiner: refiner, style: style}
}

// Toggle tracks the toggle of value on attribute and then applies it. The
// refinement is applied even if tracking fails. It returns whether the
// value was added.
func (t *RefinementTracker) Toggle(attribute, value string) bool {
	added := !t.refiner.IsRefined(attribute, value)
	defer t.refiner.Refine(attribute, value)

	t.events.TrackFilter(attribute, value)
	t.trackChange(attribute, value, added)
	return added
}

func (t *RefinementTracker) trackChange(attribute, value string, added bool) {
	if t.style == FilterStyleNamed {
		action := ActionFilterRemoved
		if added {
			action = ActionFilterAdded
		}
		t.events.send(gtag.CommandEvent, action, gtag.Params{
			"filter_type":  attribute,
			"filter_value": value,
		})
		return
	}

	action := ActionRemoveFilter
	if added {
		action = ActionAddFilter
	}
	t.events.TrackEvent(Event{
		Action:   action,
		Category: CategoryFilter,
		Label:    fmt.Sprintf("%s: %s", attribute, value),
	})
}
