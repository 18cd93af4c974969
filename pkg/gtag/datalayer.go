package gtag

import (
	"slices"
	"sync"
	"time"
)

// DataLayer is an in-process append-only buffer of gtag calls, the server
// side counterpart of window.dataLayer.
type DataLayer struct {
	mu    sync.RWMutex
	calls []Call
	limit int
	now   func() time.Time
}

// NewDataLayer keeps at most limit calls, dropping the oldest. A limit of
// zero keeps everything.
func NewDataLayer(limit int) *DataLayer {
	return &DataLayer{limit: limit, now: time.Now}
}

func (d *DataLayer) Tag(command Command, target string, params Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Command: command, Target: target, Params: params, Time: d.now()})
	if d.limit > 0 && len(d.calls) > d.limit {
		d.calls = slices.Clone(d.calls[len(d.calls)-d.limit:])
	}
	return nil
}

// Calls returns a copy of the buffered calls in the order they were made.
func (d *DataLayer) Calls() []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.calls)
}

// Events returns the buffered event calls with the given name.
func (d *DataLayer) Events(name string) []Call {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ret := make([]Call, 0)
	for _, c := range d.calls {
		if c.Command == CommandEvent && c.Target == name {
			ret = append(ret, c)
		}
	}
	return ret
}

func (d *DataLayer) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.calls)
}
