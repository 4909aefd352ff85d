package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/knob-sensor/internal/knob"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	open         bool
	sent         []sent
	publishErr   error
	disconnected bool
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return doneToken{err: c.publishErr}
	}
	c.sent = append(c.sent, sent{topic, qos, retained, payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newRealPublisher(c, TopicsFor("knob/test"), 10)

	if err := p.Publish(KnobEvent{Name: "main", Event: knob.EventRight, Count: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("sent: got %d, want 2", len(c.sent))
	}
	if c.sent[0].topic != "knob/test/events" || c.sent[0].qos != 0 || c.sent[0].retained {
		t.Errorf("event message: got %+v", c.sent[0])
	}
	if c.sent[1].topic != "knob/test/system" || c.sent[1].qos != 1 || !c.sent[1].retained {
		t.Errorf("system message: got %+v", c.sent[1])
	}
}

func TestRealPublisherQueuesWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newRealPublisher(c, TopicsFor("knob/test"), 10)

	for i := 1; i <= 3; i++ {
		if err := p.Publish(KnobEvent{Name: "main", Event: knob.EventRight, Count: i}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(c.sent) != 0 {
		t.Fatalf("sent while disconnected: %d", len(c.sent))
	}
	if p.Queued() != 3 {
		t.Errorf("Queued: got %d, want 3", p.Queued())
	}

	// First connection replays without announcing a reconnect.
	c.setOpen(true)
	p.onConnect(c)
	if len(c.sent) != 3 {
		t.Fatalf("replayed: got %d, want 3", len(c.sent))
	}
	for i, m := range c.sent {
		var parsed Payload
		if err := json.Unmarshal(m.payload, &parsed); err != nil {
			t.Fatalf("message %d: invalid JSON: %v", i, err)
		}
		if parsed.Knob.Count != i+1 {
			t.Errorf("message %d: count %d, want %d (order lost)", i, parsed.Knob.Count, i+1)
		}
	}
	if p.Queued() != 0 {
		t.Errorf("Queued after replay: got %d, want 0", p.Queued())
	}
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	c := &fakeClient{open: true}
	p := newRealPublisher(c, TopicsFor("knob/test"), 10)

	p.onConnect(c)
	if len(c.sent) != 0 {
		t.Fatalf("first connect sent %d messages, want 0", len(c.sent))
	}

	p.onConnect(c)
	if len(c.sent) != 1 {
		t.Fatalf("reconnect sent %d messages, want 1", len(c.sent))
	}
	var parsed SystemPayload
	if err := json.Unmarshal(c.sent[0].payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "RECONNECTED" {
		t.Errorf("event: got %s, want RECONNECTED", parsed.System.Event)
	}
}

func TestRealPublisherPublishError(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("broker said no")}
	p := newRealPublisher(c, TopicsFor("knob/test"), 10)

	if err := p.Publish(KnobEvent{Event: knob.EventLeft}); err == nil {
		t.Error("expected error")
	}
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{open: true}
	p := newRealPublisher(c, TopicsFor(""), 0)
	if !p.IsConnected() {
		t.Error("expected connected")
	}
	p.Close()
	if !c.disconnected {
		t.Error("Close should disconnect")
	}
}
