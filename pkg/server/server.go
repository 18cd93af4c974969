// Package server exposes the storefront trackers over HTTP. Every request is
// routed to the trackers of the visitor identified by the sid cookie.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/common"
	"github.com/matst80/slask-tracking/pkg/gtag"
	"github.com/matst80/slask-tracking/pkg/searchstate"
	"github.com/matst80/slask-tracking/pkg/session"
	"github.com/matst80/slask-tracking/pkg/tracking"
)

var (
	ErrMissingAttribute = errors.New("attribute and value are required")
	ErrMissingURL       = errors.New("url is required")
	ErrMissingLabel     = errors.New("label is required")
	ErrMissingAction    = errors.New("action is required")
)

type TrackingServer struct {
	Sessions *session.Registry
	Sink     *gtag.GtagSink
	// DataLayer is only set when the in-memory transport is enabled.
	DataLayer *gtag.DataLayer
	Log       *zap.Logger
}

type refineRequest struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

type refineResponse struct {
	Added bool              `json:"added"`
	State searchstate.State `json:"state"`
}

type routeRequest struct {
	URL  string `json:"url"`
	Hash bool   `json:"hash"`
}

type sortRequest struct {
	Label string `json:"label"`
}

type sessionRequest struct {
	Location string `json:"location"`
	Title    string `json:"title"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type statusResponse struct {
	Session   string `json:"session"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Pending   bool   `json:"searchPending"`
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.BadRequest(fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func (ts *TrackingServer) session(id string) *session.Session {
	s, created := ts.Sessions.Get(id)
	if created {
		ts.Log.Debug("new visitor", zap.String("session", id))
	}
	return s
}

func (ts *TrackingServer) UpdateState(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	state, err := searchstate.FromRequest(r)
	if err != nil {
		return common.BadRequest(err)
	}
	return enc.Encode(ts.session(sessionId).UpdateState(*state))
}

func (ts *TrackingServer) UpdateQuery(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req := queryRequest{Query: r.URL.Query().Get("q")}
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			return err
		}
	}
	s := ts.session(sessionId)
	s.UpdateQuery(strings.TrimSpace(req.Query))
	return enc.Encode(s.State.Snapshot())
}

func (ts *TrackingServer) Refine(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req := refineRequest{}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Attribute == "" || req.Value == "" {
		return common.BadRequest(ErrMissingAttribute)
	}
	added, state := ts.session(sessionId).Toggle(req.Attribute, req.Value)
	return enc.Encode(refineResponse{Added: added, State: state})
}

func (ts *TrackingServer) Route(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req := routeRequest{}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.URL == "" {
		return common.BadRequest(ErrMissingURL)
	}
	ts.session(sessionId).Navigate(req.URL, req.Hash)
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (ts *TrackingServer) Product(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	hit := tracking.Hit{}
	if err := decodeBody(r, &hit); err != nil {
		return err
	}
	ts.session(sessionId).Events.TrackHit(hit)
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (ts *TrackingServer) Sort(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req := sortRequest{}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Label == "" {
		return common.BadRequest(ErrMissingLabel)
	}
	ts.session(sessionId).Events.TrackSort(req.Label)
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (ts *TrackingServer) Event(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	ev := tracking.Event{}
	if err := decodeBody(r, &ev); err != nil {
		return err
	}
	if ev.Action == "" {
		return common.BadRequest(ErrMissingAction)
	}
	ts.session(sessionId).Events.TrackEvent(ev)
	w.WriteHeader(http.StatusAccepted)
	return nil
}

func (ts *TrackingServer) StartSession(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	req := sessionRequest{}
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.Location == "" {
		return common.BadRequest(ErrMissingURL)
	}
	s := ts.session(sessionId)
	s.Bootstrap(req.Location, req.Title)
	return enc.Encode(ts.status(s))
}

func (ts *TrackingServer) Status(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	return enc.Encode(ts.status(ts.session(sessionId)))
}

func (ts *TrackingServer) status(s *session.Session) statusResponse {
	res := statusResponse{Session: s.ID, Pending: s.SearchPending()}
	if ts.Sink != nil {
		res.Available, res.Reason = ts.Sink.Available()
	}
	return res
}

func (ts *TrackingServer) EndSession(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	if !ts.Sessions.Remove(sessionId) {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (ts *TrackingServer) Calls(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
	if name := r.URL.Query().Get("event"); name != "" {
		return enc.Encode(ts.DataLayer.Events(name))
	}
	return enc.Encode(ts.DataLayer.Calls())
}

func (ts *TrackingServer) Handler() *http.ServeMux {
	srv := http.NewServeMux()
	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			ts.Log.Warn("error writing health check response", zap.Error(err))
		}
	})
	srv.Handle("GET /metrics", promhttp.Handler())

	handle := func(pattern string, fn func(http.ResponseWriter, *http.Request, string, *json.Encoder) error) {
		srv.HandleFunc(pattern, common.JsonHandler(ts.Log, fn))
	}
	handle("GET /api/state", ts.UpdateState)
	handle("POST /api/state", ts.UpdateState)
	handle("GET /api/query", ts.UpdateQuery)
	handle("POST /api/query", ts.UpdateQuery)
	handle("POST /api/refine", ts.Refine)
	handle("POST /api/route", ts.Route)
	handle("POST /api/product", ts.Product)
	handle("POST /api/sort", ts.Sort)
	handle("POST /api/event", ts.Event)
	handle("GET /api/session", ts.Status)
	handle("POST /api/session", ts.StartSession)
	handle("DELETE /api/session", ts.EndSession)
	handle("OPTIONS /api/", ts.Status)
	if ts.DataLayer != nil {
		handle("GET /api/calls", ts.Calls)
	}
	return srv
}
