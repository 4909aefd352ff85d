// Package knob decodes quadrature rotary encoders polled from GPIO.
// Time enters only through the registry's timer; the decoder and knob
// state machines are pure and driven one tick at a time.
package knob

import (
	"errors"
	"fmt"
)

// DebounceTicks is how many consecutive evaluations a phase must dwell low
// before a rise back to high counts as a detent.
const DebounceTicks = 2

// Event identifies a rotation direction.
type Event int

const (
	EventLeft Event = iota
	EventRight
	numEvents
	EventNone
)

func (e Event) String() string {
	switch e {
	case EventLeft:
		return "LEFT"
	case EventRight:
		return "RIGHT"
	case EventNone:
		return "NONE"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// valid reports whether e names a callback slot.
func (e Event) valid() bool {
	return e >= EventLeft && e < numEvents
}

// Errors returned by Registry and Knob. Callers test with errors.Is.
var (
	ErrInvalidArgument = errors.New("knob: invalid argument")
	ErrAcquire         = errors.New("knob: pin acquisition failed")
	ErrInvalidState    = errors.New("knob: invalid state")
	ErrNotFound        = errors.New("knob: not found")
)

// Config describes one encoder.
type Config struct {
	Name string
	PinA int // phase A, rising edge counts RIGHT
	PinB int // phase B, rising edge counts LEFT
}

// Sink receives confirmed rotation events.
// Notify runs on the polling goroutine and must not block.
type Sink interface {
	Notify(ev Event, k *Knob)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event, k *Knob)

// Notify calls f(ev, k).
func (f SinkFunc) Notify(ev Event, k *Knob) { f(ev, k) }

// Status is a point-in-time view of one knob.
type Status struct {
	Handle Handle
	Name   string
	PinA   int
	PinB   int
	Count  int
	Event  Event
	Lefts  int
	Rights int
}
