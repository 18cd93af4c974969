// Package tracking turns storefront interactions into analytics events.
//
// Events is the fixed vocabulary; the trackers observe search state,
// facet toggles and route changes and call into it. Everything leaves
// through a single gtag.Sink.
package tracking

import (
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/gtag"
)

const (
	ActionSearch            = "search"
	ActionFilterApplied     = "filter_applied"
	ActionSortApplied       = "sort_applied"
	ActionViewItem          = "view_item"
	ActionAddFilter         = "add_filter"
	ActionRemoveFilter      = "remove_filter"
	ActionFilterAdded       = "filter_added"
	ActionFilterRemoved     = "filter_removed"
	ActionActiveFilter      = "active_filter"
	ActionBrowseCategory    = "browse_category"
	ActionPriceFilter       = "price_filter"
	ActionSearchPerformance = "search_performance"
)

const (
	CategoryFilter     = "ecommerce_filter"
	CategoryState      = "ecommerce_state"
	CategoryNavigation = "ecommerce_navigation"
	CategoryMetrics    = "ecommerce_metrics"
)

const unknownCategory = "Unknown"

// Event is a generic tracked event.
type Event struct {
	Action   string   `json:"action"`
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Value    *float64 `json:"value,omitempty"`
}

// Value returns a pointer for Event.Value.
func Value(v float64) *float64 {
	return &v
}

// Hit is a product as shown in the result grid.
type Hit struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Price      *float64 `json:"price"`
}

// Events maps domain actions to sink calls. None of its methods return
// anything or panic; failures are logged and the event is lost.
type Events struct {
	sink     gtag.Sink
	currency string
	log      *zap.Logger
}

func NewEvents(sink gtag.Sink, currency string, log *zap.Logger) *Events {
	if log == nil {
		log = zap.NewNop()
	}
	return &Events{sink: sink, currency: currency, log: log.Named("events")}
}

func (e *Events) send(command gtag.Command, name string, params gtag.Params) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("sink panic", zap.String("name", name), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	e.sink.Send(command, name, params)
}

// TrackPageview reports a page view for url.
func (e *Events) TrackPageview(pageURL string) {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		path = u.Path
	}
	e.send(gtag.CommandConfig, "page_view", gtag.Params{
		"page_location": pageURL,
		"page_path":     path,
	})
}

func (e *Events) TrackEvent(ev Event) {
	params := gtag.Params{
		"event_category": ev.Category,
		"event_label":    ev.Label,
	}
	if ev.Value != nil {
		params["value"] = *ev.Value
	}
	e.send(gtag.CommandEvent, ev.Action, params)
}

func (e *Events) TrackSearch(term string, resultCount int) {
	e.send(gtag.CommandEvent, ActionSearch, gtag.Params{
		"search_term":       term,
		"number_of_results": resultCount,
	})
}

func (e *Events) TrackFilter(attribute, value string) {
	e.send(gtag.CommandEvent, ActionFilterApplied, gtag.Params{
		"filter_type":  attribute,
		"filter_value": value,
	})
}

func (e *Events) TrackSort(sortLabel string) {
	e.send(gtag.CommandEvent, ActionSortApplied, gtag.Params{
		"sort_type": sortLabel,
	})
}

// TrackProductView reports a view_item with a single item. The price is
// forwarded unchanged as both item price and event value.
func (e *Events) TrackProductView(productID, productName, category string, price float64) {
	e.productView(productID, productName, category, price)
}

// TrackHit reports a click on a result. The product name stands in for a
// missing id and the first category for the item category; a missing price
// is sent as null.
func (e *Events) TrackHit(hit Hit) {
	id := hit.ID
	if id == "" {
		id = hit.Name
	}
	category := unknownCategory
	if len(hit.Categories) > 0 && hit.Categories[0] != "" {
		category = hit.Categories[0]
	}
	var price any
	if hit.Price != nil {
		price = *hit.Price
	}
	e.productView(id, hit.Name, category, price)
}

func (e *Events) productView(id, name, category string, price any) {
	e.send(gtag.CommandEvent, ActionViewItem, gtag.Params{
		"currency": e.currency,
		"value":    price,
		"items": []map[string]any{{
			"item_id":       id,
			"item_name":     name,
			"item_category": category,
			"price":         price,
		}},
	})
}
