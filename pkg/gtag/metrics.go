package gtag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	reasonNoTagger     = "no_tagger"
	reasonNoTrackingID = "no_tracking_id"
)

var (
	eventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slasktracking_events_sent_total",
		Help: "The total number of calls handed to the tagging function",
	}, []string{"command"})
	eventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slasktracking_events_skipped_total",
		Help: "The total number of calls dropped because the sink was unavailable",
	}, []string{"reason"})
	eventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slasktracking_events_failed_total",
		Help: "The total number of calls the tagging function rejected",
	}, []string{"command"})
	measurementQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slasktracking_measurement_queue_size",
		Help: "Events waiting to be delivered to the measurement endpoint",
	})
)
