package mqtt

import (
	"fmt"
	"log"
)

// pendingMsg is a serialized message waiting for the broker to come back.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// eventMessage builds the message for a knob event.
// QoS 0 (at-most-once), never retained.
func eventMessage(t Topics, event KnobEvent) (pendingMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return pendingMsg{}, fmt.Errorf("format payload: %w", err)
	}
	return pendingMsg{topic: t.Events, payload: payload}, nil
}

// systemMessage builds the message for a lifecycle event.
// QoS 1 (at-least-once), retained when the event asks for it.
func systemMessage(t Topics, event SystemEvent) (pendingMsg, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return pendingMsg{}, fmt.Errorf("format system payload: %w", err)
	}
	return pendingMsg{topic: t.System, payload: payload, qos: 1, retained: event.Retained}, nil
}

// outbox is a fixed-capacity FIFO of messages queued while disconnected.
// When full it drops the oldest message. A zero capacity drops everything.
// Not safe for concurrent use; RealPublisher holds its lock around it.
type outbox struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // total dropped since creation
	warned  bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 0 {
		capacity = 0
	}
	return &outbox{buf: make([]pendingMsg, capacity)}
}

// push queues msg and reports whether an older message was dropped for it.
func (o *outbox) push(msg pendingMsg) bool {
	if len(o.buf) == 0 {
		o.dropped++
		return true
	}
	if o.count == len(o.buf) {
		if !o.warned {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", len(o.buf))
			o.warned = true
		}
		// head already points at the oldest entry
		o.buf[o.head] = msg
		o.head = (o.head + 1) % len(o.buf)
		o.dropped++
		return true
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % len(o.buf)
	o.count++
	return false
}

// drain returns queued messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if o.count == 0 {
		return nil
	}
	out := make([]pendingMsg, o.count)
	start := (o.head - o.count + len(o.buf)) % len(o.buf)
	for i := range out {
		out[i] = o.buf[(start+i)%len(o.buf)]
	}
	o.count = 0
	o.head = 0
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return o.count
}
