// Package searchstate models the storefront's search UI state as reported by
// the frontend, and the mutator the refinement tracker toggles facets with.
package searchstate

import (
	"maps"
	"slices"
)

type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsSet reports whether at least one bound is present.
func (r Range) IsSet() bool {
	return r.Min != nil || r.Max != nil
}

// State is one snapshot of the search UI.
type State struct {
	Query            string              `json:"query" schema:"q"`
	Refinements      map[string][]string `json:"refinementList,omitempty" schema:"-"`
	Hierarchy        map[string]string   `json:"hierarchicalMenu,omitempty" schema:"-"`
	Ranges           map[string]Range    `json:"range,omitempty" schema:"-"`
	ResultCount      int                 `json:"nbHits" schema:"hits"`
	ProcessingTimeMS int                 `json:"processingTimeMS" schema:"ms"`
	Page             int                 `json:"page" schema:"page"`
	Sort             string              `json:"sort,omitempty" schema:"sort"`
}

func (s *State) IsRefined(attribute, value string) bool {
	_, found := slices.BinarySearch(s.Refinements[attribute], value)
	return found
}

// Toggle selects the value when it is not selected and deselects it
// otherwise. It returns whether the value is selected afterwards.
func (s *State) Toggle(attribute, value string) bool {
	if s.Refinements == nil {
		s.Refinements = make(map[string][]string)
	}
	values := s.Refinements[attribute]
	idx, found := slices.BinarySearch(values, value)
	if found {
		values = slices.Delete(values, idx, idx+1)
		if len(values) == 0 {
			delete(s.Refinements, attribute)
		} else {
			s.Refinements[attribute] = values
		}
		return false
	}
	s.Refinements[attribute] = slices.Insert(values, idx, value)
	return true
}

// Normalize sorts and deduplicates refinement values and drops empty
// attributes.
func (s *State) Normalize() {
	for attr, values := range s.Refinements {
		values = slices.DeleteFunc(slices.Clone(values), func(v string) bool { return v == "" })
		slices.Sort(values)
		values = slices.Compact(values)
		if len(values) == 0 {
			delete(s.Refinements, attr)
			continue
		}
		s.Refinements[attr] = values
	}
	if s.ResultCount < 0 {
		s.ResultCount = 0
	}
	if s.ProcessingTimeMS < 0 {
		s.ProcessingTimeMS = 0
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	ret := s
	if s.Refinements != nil {
		ret.Refinements = make(map[string][]string, len(s.Refinements))
		for k, v := range s.Refinements {
			ret.Refinements[k] = slices.Clone(v)
		}
	}
	ret.Hierarchy = maps.Clone(s.Hierarchy)
	ret.Ranges = maps.Clone(s.Ranges)
	return ret
}
