package mqtt

import "sync"

// Message is one publish as the broker would see it.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// FakePublisher records published events for test assertions.
// It routes messages with the same topics and flags as RealPublisher.
type FakePublisher struct {
	mu     sync.Mutex
	topics Topics

	// Events and SystemEvents hold what was published, in order.
	Events       []KnobEvent
	SystemEvents []SystemEvent

	// Payloads and SystemPayloads hold the matching JSON.
	Payloads       [][]byte
	SystemPayloads [][]byte

	// Messages holds every publish across both topics, in order.
	Messages []Message

	// PublishError and PublishSystemError, if set, fail the matching call
	// before anything is recorded.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool // returned by IsConnected
}

// NewFakePublisher creates a FakePublisher using the default topics.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{topics: TopicsFor("")}
}

// Publish records the knob event.
func (f *FakePublisher) Publish(event KnobEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	m, err := eventMessage(f.topics, event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, m.payload)
	f.record(m)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	m, err := systemMessage(f.topics, event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, m.payload)
	f.record(m)
	return nil
}

func (f *FakePublisher) record(m pendingMsg) {
	f.Messages = append(f.Messages, Message{Topic: m.topic, Payload: m.payload, QoS: m.qos, Retained: m.retained})
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected returns the Connected field.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// EventCount returns how many knob events were recorded.
func (f *FakePublisher) EventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Events)
}

// EventsFor returns the recorded events of the named knob.
func (f *FakePublisher) EventsFor(name string) []KnobEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []KnobEvent
	for _, e := range f.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears everything recorded and every injected error.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events, f.SystemEvents = nil, nil
	f.Payloads, f.SystemPayloads = nil, nil
	f.Messages = nil
	f.PublishError, f.PublishSystemError = nil, nil
	f.Closed, f.Connected = false, false
}
