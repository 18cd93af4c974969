package session

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "slasktracking_active_sessions",
	Help: "Visitors with mounted trackers",
})

// Registry keeps the mounted sessions by id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  *Factory
	idle     time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewRegistry(factory *Factory, idle time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		log:      log.Named("sessions"),
	}
}

// Get returns the session for id, mounting a new one if needed. The bool
// reports whether the session was created by this call.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s, false
	}
	s := r.factory.New(id)
	s.touch(now)
	r.sessions[id] = s
	activeSessions.Set(float64(len(r.sessions)))
	r.log.Debug("mounted", zap.String("session", id))
	return s, true
}

func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unmounts the session. It reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	activeSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	if ok {
		s.Close()
		r.log.Debug("unmounted", zap.String("session", id))
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep unmounts sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.idle)
	expired := make([]*Session, 0)
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.log.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts every session.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	activeSessions.Set(0)
	r.mu.Unlock()

	for _, s := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Close()
	}
	return nil
}
