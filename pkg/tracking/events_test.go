package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/gtag"
)

func TestTrackPageview(t *testing.T) {
	events, dl := newTestEvents()
	events.TrackPageview("https://shop.test/b?x=1#section")

	calls := dl.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, gtag.CommandConfig, calls[0].Command)
	assert.Equal(t, "G-TEST", calls[0].Target)
	assert.Equal(t, "https://shop.test/b?x=1#section", calls[0].Params["page_location"])
	assert.Equal(t, "/b", calls[0].Params["page_path"])
}

func TestTrackEvent(t *testing.T) {
	events, dl := newTestEvents()
	events.TrackEvent(Event{Action: "custom", Category: "cat", Label: "lbl"})
	events.TrackEvent(Event{Action: "custom", Category: "cat", Label: "lbl", Value: Value(3)})

	calls := dl.Events("custom")
	require.Len(t, calls, 2)
	assert.Equal(t, gtag.Params{"event_category": "cat", "event_label": "lbl"}, calls[0].Params)
	assert.Equal(t, 3.0, calls[1].Params["value"])
}

func TestVocabulary(t *testing.T) {
	events, dl := newTestEvents()
	events.TrackSearch("tv", 42)
	events.TrackFilter("brand", "Sony")
	events.TrackSort("Price ascending")

	search := dl.Events(ActionSearch)
	require.Len(t, search, 1)
	assert.Equal(t, gtag.Params{"search_term": "tv", "number_of_results": 42}, search[0].Params)

	filter := dl.Events(ActionFilterApplied)
	require.Len(t, filter, 1)
	assert.Equal(t, gtag.Params{"filter_type": "brand", "filter_value": "Sony"}, filter[0].Params)

	sort := dl.Events(ActionSortApplied)
	require.Len(t, sort, 1)
	assert.Equal(t, gtag.Params{"sort_type": "Price ascending"}, sort[0].Params)
}

func TestTrackProductView(t *testing.T) {
	events, dl := newTestEvents()
	events.TrackProductView("sku-1", "OLED TV", "TV", 1299.99)

	calls := dl.Events(ActionViewItem)
	require.Len(t, calls, 1)
	p := calls[0].Params
	assert.Equal(t, "USD", p["currency"])
	assert.Equal(t, 1299.99, p["value"])
	items := p["items"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"item_id":       "sku-1",
		"item_name":     "OLED TV",
		"item_category": "TV",
		"price":         1299.99,
	}, items[0])
}

func TestTrackHitFallbacks(t *testing.T) {
	events, dl := newTestEvents()
	events.TrackHit(Hit{Name: "Radio"})

	calls := dl.Events(ActionViewItem)
	require.Len(t, calls, 1)
	item := calls[0].Params["items"].([]map[string]any)[0]
	assert.Equal(t, "Radio", item["item_id"])
	assert.Equal(t, "Unknown", item["item_category"])
	assert.Nil(t, item["price"])
	assert.Nil(t, calls[0].Params["value"])
}

func TestTrackHitUsesFirstCategory(t *testing.T) {
	events, dl := newTestEvents()
	price := 10.0
	events.TrackHit(Hit{ID: "1", Name: "Radio", Categories: []string{"Audio", "Radios"}, Price: &price})

	item := dl.Events(ActionViewItem)[0].Params["items"].([]map[string]any)[0]
	assert.Equal(t, "1", item["item_id"])
	assert.Equal(t, "Audio", item["item_category"])
	assert.Equal(t, 10.0, item["price"])
}

func TestHelpersWithoutTaggerDoNothing(t *testing.T) {
	sink := gtag.NewSink("G-TEST", true, zap.NewNop())
	events := NewEvents(sink, "USD", nil)

	assert.NotPanics(t, func() {
		events.TrackPageview("/a")
		events.TrackEvent(Event{Action: "x"})
		events.TrackSearch("tv", 1)
		events.TrackFilter("brand", "Sony")
		events.TrackSort("price")
		events.TrackProductView("1", "TV", "TV", 1)
		events.TrackHit(Hit{})
	})
}

func TestHelpersWithoutTrackingIDDoNothing(t *testing.T) {
	dl := gtag.NewDataLayer(0)
	sink := gtag.NewSink("", false, zap.NewNop())
	sink.SetTagger(dl)
	events := NewEvents(sink, "USD", nil)

	events.TrackPageview("/a")
	events.TrackSearch("tv", 1)
	events.TrackProductView("1", "TV", "TV", 1)

	assert.Equal(t, 0, dl.Len())
}

func TestHelpersRecoverFromSinkPanics(t *testing.T) {
	events := NewEvents(panicSink{}, "USD", nil)
	assert.NotPanics(t, func() {
		events.TrackSearch("tv", 1)
		events.TrackPageview("/a")
	})
}
