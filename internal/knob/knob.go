package knob

import (
	"fmt"
	"sync"

	"github.com/sweeney/knob-sensor/internal/gpio"
)

// Knob is one registered encoder. It is created by Registry.Create and
// stays valid until Registry.Delete.
type Knob struct {
	handle Handle
	name   string
	pinA   int
	pinB   int
	reg    *Registry

	mu     sync.Mutex
	a, b   channel
	count  int
	event  Event
	lefts  int
	rights int
	sinks  [numEvents]Sink
}

func newKnob(cfg Config, src gpio.Source) *Knob {
	k := &Knob{
		name:  cfg.Name,
		pinA:  cfg.PinA,
		pinB:  cfg.PinB,
		event: EventNone,
	}
	// Baseline from the live levels so startup never fires.
	k.a.level = src.Level(cfg.PinA)
	k.b.level = src.Level(cfg.PinB)
	return k
}

// Handle returns the knob's registry handle.
func (k *Knob) Handle() Handle { return k.handle }

// Name returns the configured name.
func (k *Knob) Name() string { return k.name }

// Pins returns the phase A and B pins.
func (k *Knob) Pins() (a, b int) { return k.pinA, k.pinB }

// Register sets the sink for ev, replacing any previous one.
func (k *Knob) Register(ev Event, s Sink) error {
	if !ev.valid() {
		return fmt.Errorf("register %v: %w", ev, ErrInvalidArgument)
	}
	if s == nil {
		return fmt.Errorf("register %v: nil sink: %w", ev, ErrInvalidArgument)
	}
	k.mu.Lock()
	k.sinks[ev] = s
	k.mu.Unlock()
	return nil
}

// Unregister clears the sink for ev. Clearing an empty slot is not an error.
func (k *Knob) Unregister(ev Event) error {
	if !ev.valid() {
		return fmt.Errorf("unregister %v: %w", ev, ErrInvalidArgument)
	}
	k.mu.Lock()
	k.sinks[ev] = nil
	k.mu.Unlock()
	return nil
}

// Event returns the most recent confirmed event, or EventNone.
func (k *Knob) Event() Event {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.event
}

// Count returns the accumulated detent count (RIGHT minus LEFT).
func (k *Knob) Count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.count
}

// ClearCount resets the count to zero.
func (k *Knob) ClearCount() {
	k.mu.Lock()
	k.count = 0
	k.mu.Unlock()
}

// Snapshot returns the knob's current state.
func (k *Knob) Snapshot() Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Status{
		Handle: k.handle,
		Name:   k.name,
		PinA:   k.pinA,
		PinB:   k.pinB,
		Count:  k.count,
		Event:  k.event,
		Lefts:  k.lefts,
		Rights: k.rights,
	}
}

// tick evaluates phase A, dispatches its event, then reads and evaluates
// phase B. Both phases may fire in one tick. Each sink runs unlocked and
// sees the knob as of its own edge.
func (k *Knob) tick(src gpio.Source) {
	k.phase(&k.a, src.Level(k.pinA), EventRight)
	k.phase(&k.b, src.Level(k.pinB), EventLeft)
}

func (k *Knob) phase(c *channel, raw uint8, ev Event) {
	k.mu.Lock()
	if !c.evaluate(raw) {
		k.mu.Unlock()
		return
	}
	if ev == EventRight {
		k.count++
		k.rights++
	} else {
		k.count--
		k.lefts++
	}
	k.event = ev
	s := k.sinks[ev]
	k.mu.Unlock()

	if s != nil {
		s.Notify(ev, k)
	}
}
