package searchstate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// FromRequest decodes a State from the query string of a GET request or the
// JSON body of any other request.
//
// Query string form:
//
//	q=tv&hits=42&ms=3&page=1&sort=price
//	str=brand:Sony||LG      selected facet values
//	cat=category:TV > OLED  hierarchical menu path
//	rng=price:100-          numeric range, either bound optional
func FromRequest(r *http.Request) (*State, error) {
	state := &State{}
	var err error
	if r.Method == http.MethodGet {
		err = FromQuery(r.URL.Query(), state)
	} else {
		err = json.NewDecoder(r.Body).Decode(state)
		if err != nil {
			err = fmt.Errorf("decode state body: %w", err)
		}
	}
	state.Normalize()
	return state, err
}

func FromQuery(query url.Values, result *State) error {
	if err := decoder.Decode(result, query); err != nil {
		return fmt.Errorf("decode state query: %w", err)
	}
	decodeFilters(query, result)
	return nil
}

func decodeFilters(query url.Values, result *State) {
	for _, v := range query["str"] {
		attr, value, ok := splitFilter(v)
		if !ok {
			continue
		}
		if result.Refinements == nil {
			result.Refinements = make(map[string][]string)
		}
		result.Refinements[attr] = append(result.Refinements[attr], strings.Split(value, "||")...)
	}

	for _, v := range query["cat"] {
		attr, value, ok := splitFilter(v)
		if !ok {
			continue
		}
		if result.Hierarchy == nil {
			result.Hierarchy = make(map[string]string)
		}
		result.Hierarchy[attr] = value
	}

	for _, v := range query["rng"] {
		attr, value, ok := splitFilter(v)
		if !ok {
			continue
		}
		rng, ok := parseRange(value)
		if !ok {
			continue
		}
		if result.Ranges == nil {
			result.Ranges = make(map[string]Range)
		}
		result.Ranges[attr] = rng
	}
}

func splitFilter(v string) (string, string, bool) {
	attr, value, found := strings.Cut(v, ":")
	attr = strings.TrimSpace(attr)
	value = strings.TrimSpace(value)
	if !found || attr == "" || value == "" {
		return "", "", false
	}
	return attr, value, true
}

// parseRange reads "min-max" with either bound optional. Bounds may be
// negative, so every dash is tried as the separator until both sides parse.
func parseRange(v string) (Range, bool) {
	for i := 0; i < len(v); i++ {
		if v[i] != '-' {
			continue
		}
		lo, okLo := parseBound(v[:i])
		hi, okHi := parseBound(v[i+1:])
		if !okLo || !okHi {
			continue
		}
		rng := Range{Min: lo, Max: hi}
		return rng, rng.IsSet()
	}
	return Range{}, false
}

func parseBound(v string) (*float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}
