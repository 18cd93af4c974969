package gtag

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSinkWithoutTaggerIsNoop(t *testing.T) {
	s := NewSink("G-TEST", false, zap.NewNop())
	before := testutil.ToFloat64(eventsSkipped.WithLabelValues(reasonNoTagger))

	assert.NotPanics(t, func() {
		s.Send(CommandEvent, "search", Params{"search_term": "tv"})
	})
	ok, reason := s.Available()
	assert.False(t, ok)
	assert.Equal(t, reasonNoTagger, reason)
	assert.Equal(t, before+1, testutil.ToFloat64(eventsSkipped.WithLabelValues(reasonNoTagger)))
}

func TestSinkWithoutTrackingIDIsNoop(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("", false, nil)
	s.SetTagger(dl)

	s.Send(CommandEvent, "search", Params{})
	ok, reason := s.Available()
	assert.False(t, ok)
	assert.Equal(t, reasonNoTrackingID, reason)
	assert.Equal(t, 0, dl.Len())
}

func TestSinkForwardsEvent(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)

	params := Params{"search_term": "tv"}
	s.Send(CommandEvent, "search", params)

	calls := dl.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, CommandEvent, calls[0].Command)
	assert.Equal(t, "search", calls[0].Target)
	assert.Equal(t, Params{"search_term": "tv"}, calls[0].Params)
	assert.Len(t, params, 1, "caller params must not be modified")
}

func TestSinkConfigTargetsTrackingID(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)

	s.Send(CommandConfig, "page_view", Params{"page_location": "/a"})

	calls := dl.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "G-TEST", calls[0].Target)
}

func TestSinkDevelopmentAddsDebugAndLogsSkips(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", true, zap.New(core))

	s.Send(CommandEvent, "search", Params{})
	skipped := logs.FilterMessage("skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, reasonNoTagger, skipped[0].ContextMap()["reason"])

	s.SetTagger(dl)
	s.Send(CommandEvent, "search", Params{})
	calls := dl.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, true, calls[0].Params[ParamDebugMode])
	assert.Len(t, logs.FilterMessage("sent").All(), 1)
	assert.Len(t, logs.FilterMessage("attempt").All(), 2)
}

func TestSinkProductionHasNoDebugParam(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)
	s.Send(CommandEvent, "search", Params{})
	_, has := dl.Calls()[0].Params[ParamDebugMode]
	assert.False(t, has)
}

func TestSinkSwallowsTaggerErrorsAndPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := NewSink("G-TEST", false, zap.New(core))

	s.SetTagger(TaggerFunc(func(Command, string, Params) error {
		return errors.New("collector down")
	}))
	assert.NotPanics(t, func() { s.Send(CommandEvent, "search", Params{}) })

	s.SetTagger(TaggerFunc(func(Command, string, Params) error {
		panic("boom")
	}))
	assert.NotPanics(t, func() { s.Send(CommandEvent, "search", Params{}) })

	assert.Equal(t, 2, logs.FilterMessage("tagger failed").Len())
}

func TestSinkSetTaggerNilDisables(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)
	s.SetTagger(nil)
	s.Send(CommandEvent, "search", Params{})
	assert.Equal(t, 0, dl.Len())
}

func TestWithClientStampsClientID(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)

	WithClient(s, "abc").Send(CommandEvent, "search", Params{"search_term": "tv"})

	assert.Equal(t, "abc", dl.Calls()[0].Params[ParamClientID])
}

func TestBootstrap(t *testing.T) {
	dl := NewDataLayer(0)
	s := NewSink("G-TEST", false, nil)
	s.SetTagger(dl)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	Bootstrap(s, "https://shop.test/", "Shop", now)

	calls := dl.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, CommandJS, calls[0].Command)
	assert.Equal(t, "2024-05-01T12:00:00Z", calls[0].Target)
	assert.Equal(t, CommandConfig, calls[1].Command)
	assert.Equal(t, "G-TEST", calls[1].Target)
	assert.Equal(t, true, calls[1].Params["send_page_view"])
	assert.Equal(t, "Shop", calls[1].Params["page_title"])
}

func TestMultiTaggerCallsAllAndJoinsErrors(t *testing.T) {
	a := NewDataLayer(0)
	b := NewDataLayer(0)
	failing := TaggerFunc(func(Command, string, Params) error { return errors.New("nope") })

	err := MultiTagger{a, failing, b}.Tag(CommandEvent, "search", Params{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestDataLayerLimitAndEvents(t *testing.T) {
	dl := NewDataLayer(2)
	_ = dl.Tag(CommandEvent, "a", nil)
	_ = dl.Tag(CommandEvent, "b", nil)
	_ = dl.Tag(CommandConfig, "G-TEST", nil)

	calls := dl.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "b", calls[0].Target)
	assert.Len(t, dl.Events("b"), 1)
	assert.Empty(t, dl.Events("a"))
	assert.Empty(t, dl.Events("G-TEST"))
}
