package main

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/mqtt"
)

// defaultQueueSize bounds events waiting for the run loop.
const defaultQueueSize = 64

// eventQueue is the knob.Sink for every knob. It runs on the polling
// goroutine, so it hands events to the run loop without ever blocking.
type eventQueue struct {
	ch      chan mqtt.KnobEvent
	dropped atomic.Int64
	now     func() time.Time
}

func newEventQueue(size int, now func() time.Time) *eventQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &eventQueue{ch: make(chan mqtt.KnobEvent, size), now: now}
}

// Notify queues ev, or counts it as dropped when the loop is behind.
func (q *eventQueue) Notify(ev knob.Event, k *knob.Knob) {
	e := mqtt.KnobEvent{
		Timestamp: q.now(),
		Name:      k.Name(),
		Event:     ev,
		Count:     k.Count(),
	}
	select {
	case q.ch <- e:
	default:
		q.dropped.Add(1)
	}
}

// Dropped returns how many events were lost to a full queue.
func (q *eventQueue) Dropped() int {
	return int(q.dropped.Load())
}

// drain hands every event already queued to fn.
func (q *eventQueue) drain(fn func(mqtt.KnobEvent)) {
	for {
		select {
		case e := <-q.ch:
			fn(e)
		default:
			return
		}
	}
}
