package gtag

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	ParamClientID  = "client_id"
	ParamDebugMode = "debug_mode"
)

// Sink is the single point through which analytics leave the service.
// Send never fails from the caller's point of view.
type Sink interface {
	Send(command Command, name string, params Params)
}

type taggerRef struct {
	Tagger
}

// GtagSink forwards calls to a Tagger when one is installed and a tracking
// ID is configured, and drops them otherwise.
type GtagSink struct {
	trackingID  string
	development bool
	log         *zap.Logger
	tagger      atomic.Pointer[taggerRef]
}

// NewSink creates a sink without a tagger. Calls are dropped until SetTagger
// installs one.
func NewSink(trackingID string, development bool, log *zap.Logger) *GtagSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &GtagSink{
		trackingID:  trackingID,
		development: development,
		log:         log.Named("gtag"),
	}
}

// SetTagger installs the tagging function. A nil tagger makes the sink
// unavailable again.
func (s *GtagSink) SetTagger(t Tagger) {
	if t == nil {
		s.tagger.Store(nil)
		return
	}
	s.tagger.Store(&taggerRef{Tagger: t})
}

func (s *GtagSink) TrackingID() string {
	return s.trackingID
}

// Available reports whether a call made now would reach the tagger, and if
// not, why.
func (s *GtagSink) Available() (bool, string) {
	if s.tagger.Load() == nil {
		return false, reasonNoTagger
	}
	if s.trackingID == "" {
		return false, reasonNoTrackingID
	}
	return true, ""
}

// Send forwards the call. For config commands the target is always the
// tracking ID and name is only used in diagnostics; for every other command
// name is the target.
func (s *GtagSink) Send(command Command, name string, params Params) {
	ref := s.tagger.Load()
	if s.development {
		s.log.Debug("attempt",
			zap.String("command", string(command)),
			zap.String("name", name),
			zap.Any("params", params),
			zap.Bool("has_tagger", ref != nil),
			zap.Bool("has_tracking_id", s.trackingID != ""))
	}
	if ref == nil || s.trackingID == "" {
		reason := reasonNoTagger
		if ref != nil {
			reason = reasonNoTrackingID
		}
		eventsSkipped.WithLabelValues(reason).Inc()
		if s.development {
			s.log.Debug("skipped", zap.String("name", name), zap.String("reason", reason))
		}
		return
	}

	target := name
	if command == CommandConfig {
		target = s.trackingID
	}
	out := params.Clone()
	if s.development {
		out[ParamDebugMode] = true
	}

	if err := s.call(ref.Tagger, command, target, out); err != nil {
		eventsFailed.WithLabelValues(string(command)).Inc()
		s.log.Error("tagger failed",
			zap.String("command", string(command)),
			zap.String("name", name),
			zap.Error(err))
		return
	}
	eventsSent.WithLabelValues(string(command)).Inc()
	if s.development {
		s.log.Debug("sent", zap.String("command", string(command)), zap.String("name", name))
	}
}

func (s *GtagSink) call(t Tagger, command Command, target string, params Params) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tagger panic: %v", r)
		}
	}()
	return t.Tag(command, target, params)
}

type clientSink struct {
	Sink
	clientID string
}

func (c *clientSink) Send(command Command, name string, params Params) {
	out := params.Clone()
	out[ParamClientID] = c.clientID
	c.Sink.Send(command, name, out)
}

// WithClient returns a Sink stamping client_id on every call.
func WithClient(sink Sink, clientID string) Sink {
	return &clientSink{Sink: sink, clientID: clientID}
}

// Bootstrap sends the calls the gtag snippet makes when the page loads: a js
// timestamp followed by the initial config.
func Bootstrap(sink Sink, location, title string, now time.Time) {
	sink.Send(CommandJS, now.UTC().Format(time.RFC3339), Params{})
	sink.Send(CommandConfig, "bootstrap", Params{
		"page_location":  location,
		"page_title":     title,
		"send_page_view": true,
	})
}
