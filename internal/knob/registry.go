package knob

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/timer"
)

// DefaultInterval is the polling period used when Options.Interval is zero.
const DefaultInterval = 3 * time.Millisecond

// Handle is a stable identifier for a registered knob.
// A handle is never reused, even after its slot is.
type Handle uint64

func makeHandle(slot int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(uint32(slot)))
}

func (h Handle) slot() int   { return int(uint32(h)) }
func (h Handle) gen() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.slot(), h.gen())
}

// Options configures a Registry.
type Options struct {
	// Interval is the polling period. Zero means DefaultInterval.
	Interval time.Duration
	// NewTimer creates the shared polling timer. Nil means timer.NewTicker.
	NewTimer timer.Factory
}

type slot struct {
	knob *Knob
	gen  uint32
}

// Registry owns the live knobs and the one timer that polls them.
// The timer exists only while at least one knob is registered.
//
// All methods are safe for concurrent use, but must not be called from
// inside a Sink.
type Registry struct {
	src      gpio.Source
	interval time.Duration
	newTimer timer.Factory

	mu      sync.Mutex
	slots   []slot
	free    []int
	n       int
	timer   timer.Timer
	running bool

	// live is rebuilt on every insert and remove so the poll never locks.
	live atomic.Pointer[[]*Knob]
}

// NewRegistry creates an empty Registry reading levels from src.
func NewRegistry(src gpio.Source, opts Options) *Registry {
	r := &Registry{
		src:      src,
		interval: opts.Interval,
		newTimer: opts.NewTimer,
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.newTimer == nil {
		r.newTimer = timer.NewTicker
	}
	r.live.Store(&[]*Knob{})
	return r
}

// Create acquires both phase pins, registers the knob and makes sure
// polling is running. On failure nothing stays acquired or registered.
func (r *Registry) Create(cfg *Config) (*Knob, error) {
	if cfg == nil {
		return nil, fmt.Errorf("create: nil config: %w", ErrInvalidArgument)
	}
	if cfg.PinA == cfg.PinB {
		return nil, fmt.Errorf("create: encoder A can't be the same as encoder B (pin %d): %w", cfg.PinA, ErrInvalidArgument)
	}
	if cfg.PinA < 0 || cfg.PinB < 0 {
		return nil, fmt.Errorf("create: negative pin (A=%d B=%d): %w", cfg.PinA, cfg.PinB, ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.src.Acquire(cfg.PinA); err != nil {
		return nil, fmt.Errorf("create: encoder A pin %d: %w: %w", cfg.PinA, ErrAcquire, err)
	}
	if err := r.src.Acquire(cfg.PinB); err != nil {
		r.release(cfg.PinA)
		return nil, fmt.Errorf("create: encoder B pin %d: %w: %w", cfg.PinB, ErrAcquire, err)
	}

	k := newKnob(*cfg, r.src)
	k.reg = r
	r.insert(k)

	if err := r.ensureRunning(); err != nil {
		r.remove(k)
		r.release(cfg.PinB)
		r.release(cfg.PinA)
		if r.n == 0 {
			r.teardown()
		}
		return nil, fmt.Errorf("create: %w", err)
	}

	log.Printf("knob: created %s (A=%d B=%d handle=%s)", displayName(k), k.pinA, k.pinB, k.handle)
	return k, nil
}

// Delete unregisters k and releases its pins. Deleting the last knob stops
// and deletes the polling timer. The knob is not polled after the current
// poll, if any, completes.
func (r *Registry) Delete(k *Knob) error {
	if k == nil {
		return fmt.Errorf("delete: nil knob: %w", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.member(k) {
		return fmt.Errorf("delete: knob %s: %w", k.handle, ErrNotFound)
	}
	r.remove(k)

	var errs []error
	if err := r.src.Release(k.pinA); err != nil {
		errs = append(errs, fmt.Errorf("encoder A pin %d: %w", k.pinA, err))
	}
	if err := r.src.Release(k.pinB); err != nil {
		errs = append(errs, fmt.Errorf("encoder B pin %d: %w", k.pinB, err))
	}

	log.Printf("knob: deleted %s, remaining=%d", displayName(k), r.n)
	if r.n == 0 {
		r.teardown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("delete: %w: %w", ErrAcquire, errors.Join(errs...))
	}
	return nil
}

// Resume restarts polling after Stop.
func (r *Registry) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer == nil {
		return fmt.Errorf("resume: knob timer handle is invalid: %w", ErrInvalidState)
	}
	if r.running {
		return fmt.Errorf("resume: knob timer is already running: %w", ErrInvalidState)
	}
	if err := r.timer.StartPeriodic(r.interval); err != nil {
		return fmt.Errorf("resume: knob timer start failed: %w", err)
	}
	r.running = true
	return nil
}

// Stop pauses polling. Registered knobs keep their state.
func (r *Registry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer == nil {
		return fmt.Errorf("stop: knob timer handle is invalid: %w", ErrInvalidState)
	}
	if !r.running {
		return fmt.Errorf("stop: knob timer is not running: %w", ErrInvalidState)
	}
	if err := r.timer.Stop(); err != nil {
		return fmt.Errorf("stop: knob timer stop failed: %w", err)
	}
	r.running = false
	return nil
}

// Running reports whether the polling timer is active.
func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// HasTimer reports whether the polling timer exists.
func (r *Registry) HasTimer() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Len returns the number of registered knobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Lookup returns the knob for h if it is still registered.
func (r *Registry) Lookup(h Handle) (*Knob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := h.slot()
	if i < 0 || i >= len(r.slots) {
		return nil, false
	}
	s := r.slots[i]
	if s.knob == nil || s.gen != h.gen() {
		return nil, false
	}
	return s.knob, true
}

// Knobs returns the registered knobs in poll order.
func (r *Registry) Knobs() []*Knob {
	live := *r.live.Load()
	out := make([]*Knob, len(live))
	copy(out, live)
	return out
}

// Close deletes every registered knob.
func (r *Registry) Close() error {
	var errs []error
	for _, k := range r.Knobs() {
		if err := r.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// poll is the timer callback.
func (r *Registry) poll() {
	for _, k := range *r.live.Load() {
		k.tick(r.src)
	}
}

func (r *Registry) ensureRunning() error {
	if r.timer == nil {
		t, err := r.newTimer(r.poll)
		if err != nil {
			return fmt.Errorf("create knob timer: %w", err)
		}
		r.timer = t
	}
	if !r.running {
		if err := r.timer.StartPeriodic(r.interval); err != nil {
			return fmt.Errorf("start knob timer: %w", err)
		}
		r.running = true
	}
	return nil
}

func (r *Registry) teardown() {
	if r.timer == nil {
		return
	}
	if err := r.timer.Delete(); err != nil {
		log.Printf("knob: delete timer: %v", err)
	}
	r.timer = nil
	r.running = false
}

func (r *Registry) release(pin int) {
	if err := r.src.Release(pin); err != nil {
		log.Printf("knob: release pin %d: %v", pin, err)
	}
}

func (r *Registry) member(k *Knob) bool {
	if k.reg != r {
		return false
	}
	i := k.handle.slot()
	return i < len(r.slots) && r.slots[i].knob == k
}

func (r *Registry) insert(k *Knob) {
	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		i = len(r.slots)
		r.slots = append(r.slots, slot{})
	}
	r.slots[i].gen++
	r.slots[i].knob = k
	k.handle = makeHandle(i, r.slots[i].gen)
	r.n++
	r.publish()
}

func (r *Registry) remove(k *Knob) {
	i := k.handle.slot()
	r.slots[i].knob = nil
	r.free = append(r.free, i)
	r.n--
	r.publish()
}

func (r *Registry) publish() {
	live := make([]*Knob, 0, r.n)
	for _, s := range r.slots {
		if s.knob != nil {
			live = append(live, s.knob)
		}
	}
	r.live.Store(&live)
}

func displayName(k *Knob) string {
	if k.name != "" {
		return k.name
	}
	return "knob " + k.handle.String()
}
