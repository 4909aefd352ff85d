package mqtt

import (
	"testing"
)

func push(o *outbox, from, to int) {
	for i := from; i < to; i++ {
		o.push(pendingMsg{topic: "t", payload: []byte{byte(i)}})
	}
}

func TestOutboxEmptyDrain(t *testing.T) {
	o := newOutbox(10)
	if got := o.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOutboxPushAndDrain(t *testing.T) {
	o := newOutbox(10)
	push(o, 0, 5)

	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}
	if got2 := o.drain(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestOutboxOverflowKeepsNewest(t *testing.T) {
	o := newOutbox(5)
	push(o, 0, 8)

	if o.dropped != 3 {
		t.Errorf("dropped: got %d, want 3", o.dropped)
	}
	got := o.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(5)
	push(o, 0, 3)
	if got := o.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	push(o, 10, 14)
	got := o.drain()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestOutboxZeroCapacity(t *testing.T) {
	o := newOutbox(0)
	if !o.push(pendingMsg{topic: "t"}) {
		t.Error("push into zero-capacity outbox should report a drop")
	}
	if o.len() != 0 {
		t.Errorf("len: got %d, want 0", o.len())
	}
	if o.drain() != nil {
		t.Error("drain should be empty")
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(10)
	o.push(pendingMsg{
		topic:    "knob/test/system",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := o.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "knob/test/system" {
		t.Errorf("topic: got %s, want knob/test/system", got[0].topic)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained: got %d/%v, want 1/true", got[0].qos, got[0].retained)
	}
}
