package knob

import (
	"errors"
	"testing"
)

func TestKnobInitialState(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	k := mustCreate(t, r, "main", 5, 6)

	if k.Event() != EventNone {
		t.Errorf("Event: got %v, want NONE", k.Event())
	}
	if k.Count() != 0 {
		t.Errorf("Count: got %d, want 0", k.Count())
	}
	if a, b := k.Pins(); a != 5 || b != 6 {
		t.Errorf("Pins: got (%d, %d), want (5, 6)", a, b)
	}
	if k.Name() != "main" {
		t.Errorf("Name: got %q, want %q", k.Name(), "main")
	}
}

func TestKnobBaselineLowDoesNotFire(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	src.Set(5, 0)
	src.Set(6, 0)
	k := mustCreate(t, r, "main", 5, 6)

	ff.Last().FireN(5)
	if k.Count() != 0 || k.Event() != EventNone {
		t.Errorf("got count=%d event=%v, want 0/NONE", k.Count(), k.Event())
	}
}

func TestKnobPhaseARight(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	k := mustCreate(t, r, "main", 5, 6)
	rec := &recorder{}
	if err := k.Register(EventRight, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ff.Last().FireN(2)
	if k.Count() != 0 {
		t.Fatalf("count before rise: got %d, want 0", k.Count())
	}
	ff.Last().Fire()

	if k.Count() != 1 {
		t.Errorf("Count: got %d, want 1", k.Count())
	}
	if k.Event() != EventRight {
		t.Errorf("Event: got %v, want RIGHT", k.Event())
	}
	if len(rec.events) != 1 || rec.events[0] != EventRight || rec.knobs[0] != k {
		t.Errorf("sink calls: got %v, want [RIGHT] for this knob", rec.events)
	}

	// Pin stays high: no more edges.
	ff.Last().FireN(10)
	if k.Count() != 1 {
		t.Errorf("Count after idle: got %d, want 1", k.Count())
	}
}

func TestKnobPhaseBLeft(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 6)
	k := mustCreate(t, r, "main", 5, 6)
	rec := &recorder{}
	k.Register(EventLeft, rec)

	ff.Last().FireN(3)

	if k.Count() != -1 {
		t.Errorf("Count: got %d, want -1", k.Count())
	}
	if k.Event() != EventLeft {
		t.Errorf("Event: got %v, want LEFT", k.Event())
	}
	if len(rec.events) != 1 || rec.events[0] != EventLeft {
		t.Errorf("sink calls: got %v, want [LEFT]", rec.events)
	}
}

func TestKnobBothPhasesSameTick(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	detent(src, 6)
	k := mustCreate(t, r, "main", 5, 6)
	rec := &recorder{}
	k.Register(EventRight, rec)
	k.Register(EventLeft, rec)

	ff.Last().FireN(3)

	if k.Count() != 0 {
		t.Errorf("Count: got %d, want 0", k.Count())
	}
	// B is evaluated after A, so it sets the last event.
	if k.Event() != EventLeft {
		t.Errorf("Event: got %v, want LEFT", k.Event())
	}
	if len(rec.events) != 2 || rec.events[0] != EventRight || rec.events[1] != EventLeft {
		t.Errorf("sink order: got %v, want [RIGHT LEFT]", rec.events)
	}
	st := k.Snapshot()
	if st.Lefts != 1 || st.Rights != 1 {
		t.Errorf("Snapshot: got lefts=%d rights=%d, want 1/1", st.Lefts, st.Rights)
	}
}

func TestKnobRegisterOverwrites(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	k := mustCreate(t, r, "main", 5, 6)

	first, second := &recorder{}, &recorder{}
	k.Register(EventRight, first)
	k.Register(EventRight, second)
	ff.Last().FireN(3)

	if len(first.events) != 0 {
		t.Errorf("replaced sink was called %d times", len(first.events))
	}
	if len(second.events) != 1 {
		t.Errorf("current sink: got %d calls, want 1", len(second.events))
	}
}

func TestKnobUnregister(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	k := mustCreate(t, r, "main", 5, 6)

	rec := &recorder{}
	k.Register(EventRight, rec)
	if err := k.Unregister(EventRight); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := k.Unregister(EventRight); err != nil {
		t.Errorf("unregister empty slot: %v", err)
	}
	ff.Last().FireN(3)

	if len(rec.events) != 0 {
		t.Errorf("unregistered sink called %d times", len(rec.events))
	}
	if k.Count() != 1 {
		t.Errorf("count still tracks without sink: got %d, want 1", k.Count())
	}
}

func TestKnobInvalidEvent(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	k := mustCreate(t, r, "main", 5, 6)

	for _, ev := range []Event{EventNone, numEvents, Event(-1), Event(42)} {
		if err := k.Register(ev, &recorder{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Register(%v): got %v, want ErrInvalidArgument", ev, err)
		}
		if err := k.Unregister(ev); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Unregister(%v): got %v, want ErrInvalidArgument", ev, err)
		}
	}
	if err := k.Register(EventLeft, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Register(nil): got %v, want ErrInvalidArgument", err)
	}
}

func TestKnobClearCountIsRepeatable(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	k := mustCreate(t, r, "main", 5, 6)
	tm := ff.Last()

	run := func() int {
		before := k.Count()
		src.Script(5, 0, 0, 1, 0, 0, 1)
		src.Script(6, 0, 0, 1)
		tm.FireN(8)
		return k.Count() - before
	}

	src.Set(5, 1)
	src.Set(6, 1)
	first := run()
	if first != 1 {
		t.Fatalf("delta: got %d, want 1", first)
	}

	k.ClearCount()
	if k.Count() != 0 {
		t.Errorf("after clear: got %d, want 0", k.Count())
	}
	k.ClearCount()
	if k.Count() != 0 {
		t.Errorf("after second clear: got %d, want 0", k.Count())
	}

	if second := run(); second != first {
		t.Errorf("repeat delta: got %d, want %d", second, first)
	}
	if k.Count() != first {
		t.Errorf("count after repeat: got %d, want %d", k.Count(), first)
	}
}

func TestKnobSinkMayReadState(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	k := mustCreate(t, r, "main", 5, 6)

	var seen int
	var seenEvent Event
	k.Register(EventRight, SinkFunc(func(ev Event, k *Knob) {
		seen = k.Count()
		seenEvent = k.Event()
	}))
	ff.Last().FireN(3)

	if seen != 1 || seenEvent != EventRight {
		t.Errorf("sink saw count=%d event=%v, want 1/RIGHT", seen, seenEvent)
	}
}

func TestKnobSinkSeesOwnEdgeWhenBothFire(t *testing.T) {
	r, src, ff := newTestRegistry(t)
	detent(src, 5)
	detent(src, 6)
	k := mustCreate(t, r, "main", 5, 6)

	type seen struct {
		ev    Event
		count int
		last  Event
	}
	var got []seen
	sink := SinkFunc(func(ev Event, k *Knob) {
		got = append(got, seen{ev, k.Count(), k.Event()})
	})
	k.Register(EventRight, sink)
	k.Register(EventLeft, sink)
	ff.Last().FireN(3)

	want := []seen{
		{EventRight, 1, EventRight},
		{EventLeft, 0, EventLeft},
	}
	if len(got) != len(want) {
		t.Fatalf("sink calls: got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEventString(t *testing.T) {
	tests := map[Event]string{
		EventLeft:  "LEFT",
		EventRight: "RIGHT",
		EventNone:  "NONE",
		Event(9):   "Event(9)",
	}
	for ev, want := range tests {
		if got := ev.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(ev), got, want)
		}
	}
}
