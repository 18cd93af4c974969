// Package gtag is the outbound side of the tracking service: the tagging
// function that talks to the analytics collector and the single Sink every
// tracker sends through.
package gtag

import (
	"errors"
	"fmt"
	"time"
)

// Command is the first argument of a gtag call.
type Command string

const (
	CommandConfig Command = "config"
	CommandEvent  Command = "event"
	CommandJS     Command = "js"
)

// Params is the parameter object of a gtag call.
type Params map[string]any

// Clone returns a shallow copy with room for extra keys.
func (p Params) Clone() Params {
	ret := make(Params, len(p)+2)
	for k, v := range p {
		ret[k] = v
	}
	return ret
}

// Call is one gtag invocation as it is appended to a data layer or put on
// the wire.
type Call struct {
	Command Command   `json:"command"`
	Target  string    `json:"target"`
	Params  Params    `json:"params,omitempty"`
	Time    time.Time `json:"time"`
}

// Tagger is the tagging function: gtag(command, target, params).
type Tagger interface {
	Tag(command Command, target string, params Params) error
}

// TaggerFunc adapts a function to Tagger.
type TaggerFunc func(command Command, target string, params Params) error

func (f TaggerFunc) Tag(command Command, target string, params Params) error {
	return f(command, target, params)
}

// MultiTagger fans a call out to several taggers. Every tagger is called;
// errors are joined.
type MultiTagger []Tagger

func (m MultiTagger) Tag(command Command, target string, params Params) error {
	var errs []error
	for _, t := range m {
		if err := t.Tag(command, target, params); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", t, err))
		}
	}
	return errors.Join(errs...)
}
