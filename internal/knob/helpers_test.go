package knob

import (
	"testing"

	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/timer"
)

type recorder struct {
	events []Event
	knobs  []*Knob
}

func (r *recorder) Notify(ev Event, k *Knob) {
	r.events = append(r.events, ev)
	r.knobs = append(r.knobs, k)
}

func newTestRegistry(t *testing.T) (*Registry, *gpio.FakeSource, *timer.FakeFactory) {
	t.Helper()
	src := gpio.NewFakeSource()
	ff := &timer.FakeFactory{}
	r := NewRegistry(src, Options{NewTimer: ff.New})
	return r, src, ff
}

func mustCreate(t *testing.T, r *Registry, name string, a, b int) *Knob {
	t.Helper()
	k, err := r.Create(&Config{Name: name, PinA: a, PinB: b})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return k
}

// detent scripts one confirmed edge on pin: the baseline read at creation,
// two lows, then the rise. The pin stays high afterwards.
func detent(src *gpio.FakeSource, pin int) {
	src.Script(pin, 1, 0, 0, 1)
}
