package gtag

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu       sync.Mutex
	payloads []measurementPayload
	queries  []string
	status   int
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var p measurementPayload
	_ = json.Unmarshal(body, &p)
	c.mu.Lock()
	c.payloads = append(c.payloads, p)
	c.queries = append(c.queries, r.URL.RawQuery)
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func newMeasurement(t *testing.T, c *collector) *MeasurementTagger {
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return NewMeasurementTagger(MeasurementOptions{
		Endpoint:      srv.URL + "/mp/collect",
		MeasurementID: "G-TEST",
		APISecret:     "secret",
		Client:        srv.Client(),
		FlushInterval: time.Hour,
	}, nil)
}

func TestMeasurementTaggerDeliversOnClose(t *testing.T) {
	c := &collector{}
	m := newMeasurement(t, c)

	require.NoError(t, m.Tag(CommandJS, "2024-05-01T12:00:00Z", Params{}))
	require.NoError(t, m.Tag(CommandConfig, "G-TEST", Params{"page_location": "/b", ParamClientID: "one"}))
	require.NoError(t, m.Tag(CommandEvent, "search", Params{"search_term": "tv", ParamClientID: "one"}))
	require.NoError(t, m.Tag(CommandEvent, "search", Params{"search_term": "radio", ParamClientID: "two"}))
	m.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.payloads, 2)
	assert.Equal(t, "one", c.payloads[0].ClientID)
	require.Len(t, c.payloads[0].Events, 2)
	assert.Equal(t, "page_view", c.payloads[0].Events[0].Name)
	assert.Equal(t, "/b", c.payloads[0].Events[0].Params["page_location"])
	assert.Equal(t, "search", c.payloads[0].Events[1].Name)
	_, leaked := c.payloads[0].Events[1].Params[ParamClientID]
	assert.False(t, leaked)
	assert.Equal(t, "two", c.payloads[1].ClientID)
	assert.Contains(t, c.queries[0], "measurement_id=G-TEST")
	assert.Contains(t, c.queries[0], "api_secret=secret")
}

func TestMeasurementTaggerUsesFallbackClient(t *testing.T) {
	c := &collector{}
	m := newMeasurement(t, c)
	require.NoError(t, m.Tag(CommandEvent, "sort_applied", Params{"sort_type": "price"}))
	m.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.payloads, 1)
	assert.Equal(t, m.fallbackClient, c.payloads[0].ClientID)
	assert.NotEmpty(t, m.fallbackClient)
}

func TestMeasurementTaggerDropsFailedBatches(t *testing.T) {
	c := &collector{status: http.StatusInternalServerError}
	m := newMeasurement(t, c)
	require.NoError(t, m.Tag(CommandEvent, "search", Params{}))
	m.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.payloads, 1)
	assert.Equal(t, 0, m.queue.Len())
}

func TestMeasurementTaggerRejectsCallsAfterClose(t *testing.T) {
	c := &collector{}
	m := newMeasurement(t, c)
	require.NoError(t, m.Tag(CommandEvent, "search", Params{ParamClientID: "one"}))
	m.Close()

	assert.ErrorIs(t, m.Tag(CommandEvent, "search", Params{ParamClientID: "one"}), ErrTaggerClosed)
	assert.NoError(t, m.Tag(CommandJS, "2024-05-01T12:00:00Z", Params{}))
	assert.Equal(t, 0, m.queue.Len())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.payloads, 1)
}

func TestMeasurementTaggerRejectsUnknownCommand(t *testing.T) {
	m := newMeasurement(t, &collector{})
	defer m.Close()
	assert.Error(t, m.Tag(Command("set"), "x", Params{}))
}

func TestGroupByClientSplitsLargeBatches(t *testing.T) {
	items := make([]measurementEvent, 0)
	for range maxEventsPerRequest + 3 {
		items = append(items, measurementEvent{clientID: "a", name: "search"})
	}
	items = append(items, measurementEvent{clientID: "b", name: "search"})

	payloads := groupByClient(items)

	require.Len(t, payloads, 3)
	assert.Len(t, payloads[0].Events, maxEventsPerRequest)
	assert.Equal(t, "a", payloads[1].ClientID)
	assert.Len(t, payloads[1].Events, 3)
	assert.Equal(t, "b", payloads[2].ClientID)
}
