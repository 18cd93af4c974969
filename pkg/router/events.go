// Package router is the client-side route change notifier: handlers
// subscribe by event name and are called with the new URL.
package router

import (
	"slices"
	"sync"
)

const (
	RouteChangeComplete = "routeChangeComplete"
	HashChangeComplete  = "hashChangeComplete"
)

type Handler func(url string)

type subscription struct {
	id      int
	handler Handler
}

// Events dispatches route notifications synchronously in subscription order.
type Events struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
}

func NewEvents() *Events {
	return &Events{handlers: make(map[string][]subscription)}
}

// On subscribes a handler and returns the id to unsubscribe it with.
func (e *Events) On(event string, handler Handler) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers[event] = append(e.handlers[event], subscription{id: e.nextID, handler: handler})
	return e.nextID
}

func (e *Events) Off(event string, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = slices.DeleteFunc(e.handlers[event], func(s subscription) bool {
		return s.id == id
	})
	if len(e.handlers[event]) == 0 {
		delete(e.handlers, event)
	}
}

// Emit calls every handler subscribed to event.
func (e *Events) Emit(event, url string) {
	e.mu.RLock()
	subs := slices.Clone(e.handlers[event])
	e.mu.RUnlock()
	for _, s := range subs {
		s.handler(url)
	}
}

func (e *Events) Listeners(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}
