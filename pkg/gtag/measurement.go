package gtag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/common"
)

// maxEventsPerRequest is the collector's limit on events in one payload.
const maxEventsPerRequest = 25

var ErrTaggerClosed = errors.New("tagger closed")

type MeasurementOptions struct {
	Endpoint      string
	MeasurementID string
	APISecret     string
	Client        *http.Client
	FlushInterval time.Duration
	Timeout       time.Duration
}

type measurementEvent struct {
	clientID string
	name     string
	params   Params
}

type measurementItem struct {
	Name   string `json:"name"`
	Params Params `json:"params,omitempty"`
}

type measurementPayload struct {
	ClientID string            `json:"client_id"`
	Events   []measurementItem `json:"events"`
}

// MeasurementTagger delivers gtag calls to a Measurement Protocol endpoint.
// Tag only enqueues; a background queue posts batches grouped per client.
// Failed batches are logged and dropped.
type MeasurementTagger struct {
	opts           MeasurementOptions
	fallbackClient string
	queue          *common.QueueHandler[measurementEvent]
	log            *zap.Logger
	closed         atomic.Bool
}

func NewMeasurementTagger(opts MeasurementOptions, log *zap.Logger) *MeasurementTagger {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &MeasurementTagger{
		opts:           opts,
		fallbackClient: uuid.NewString(),
		log:            log.Named("measurement"),
	}
	m.queue = common.NewQueueHandler(m.process, 4*maxEventsPerRequest, opts.FlushInterval)
	return m
}

func (m *MeasurementTagger) Tag(command Command, target string, params Params) error {
	var name string
	switch command {
	case CommandJS:
		return nil
	case CommandConfig:
		name = "page_view"
	case CommandEvent:
		name = target
	default:
		return fmt.Errorf("unsupported command %q", command)
	}
	if m.closed.Load() {
		return ErrTaggerClosed
	}

	out := params.Clone()
	clientID, _ := out[ParamClientID].(string)
	delete(out, ParamClientID)
	if clientID == "" {
		clientID = m.fallbackClient
	}
	m.queue.Add(measurementEvent{clientID: clientID, name: name, params: out})
	measurementQueueSize.Set(float64(m.queue.Len()))
	return nil
}

// Close delivers what is queued and stops the background queue. Later calls
// to Tag are rejected with ErrTaggerClosed.
func (m *MeasurementTagger) Close() {
	m.closed.Store(true)
	m.queue.Stop()
	measurementQueueSize.Set(0)
}

func (m *MeasurementTagger) process(items []measurementEvent) {
	defer measurementQueueSize.Set(float64(m.queue.Len()))
	for _, payload := range groupByClient(items) {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
		err := m.post(ctx, payload)
		cancel()
		if err != nil {
			m.log.Error("delivery failed",
				zap.String("client_id", payload.ClientID),
				zap.Int("events", len(payload.Events)),
				zap.Error(err))
		}
	}
}

func groupByClient(items []measurementEvent) []measurementPayload {
	ret := make([]measurementPayload, 0)
	open := make(map[string]int)
	for _, item := range items {
		idx, ok := open[item.clientID]
		if !ok || len(ret[idx].Events) >= maxEventsPerRequest {
			ret = append(ret, measurementPayload{ClientID: item.clientID, Events: make([]measurementItem, 0, 1)})
			idx = len(ret) - 1
			open[item.clientID] = idx
		}
		ret[idx].Events = append(ret[idx].Events, measurementItem{Name: item.name, Params: item.params})
	}
	return ret
}

func (m *MeasurementTagger) post(ctx context.Context, payload measurementPayload) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	u, err := url.Parse(m.opts.Endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("measurement_id", m.opts.MeasurementID)
	q.Set("api_secret", m.opts.APISecret)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := m.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}
