package gpio

import (
	"fmt"
	"sync"
)

// FakeSource is a test double that returns scripted levels per pin.
type FakeSource struct {
	mu sync.Mutex

	// scripts holds the remaining levels for each pin.
	// Each call to Level consumes the next one; the last one repeats.
	scripts map[int][]uint8

	// AcquireErrors, if set for a pin, is returned by Acquire for that pin.
	AcquireErrors map[int]error

	// ReleaseErrors, if set for a pin, is returned by Release for that pin.
	ReleaseErrors map[int]error

	// Acquired tracks pins currently held.
	Acquired map[int]bool

	// Released lists pins in the order they were released.
	Released []int

	// Reads counts Level calls per pin.
	Reads map[int]int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource where every pin reads idle high.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		scripts:       make(map[int][]uint8),
		AcquireErrors: make(map[int]error),
		ReleaseErrors: make(map[int]error),
		Acquired:      make(map[int]bool),
		Reads:         make(map[int]int),
	}
}

// Script appends levels to the pin's script.
func (f *FakeSource) Script(pin int, levels ...uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[pin] = append(f.scripts[pin], levels...)
}

// Set replaces the pin's script with a single steady level.
func (f *FakeSource) Set(pin int, level uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[pin] = []uint8{level}
}

// Acquire marks pin as held.
func (f *FakeSource) Acquire(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.AcquireErrors[pin]; err != nil {
		return err
	}
	if f.Acquired[pin] {
		return fmt.Errorf("pin %d already acquired", pin)
	}
	f.Acquired[pin] = true
	return nil
}

// Release marks pin as free and records it.
func (f *FakeSource) Release(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ReleaseErrors[pin]; err != nil {
		return err
	}
	if !f.Acquired[pin] {
		return fmt.Errorf("pin %d not acquired", pin)
	}
	delete(f.Acquired, pin)
	f.Released = append(f.Released, pin)
	return nil
}

// Level returns the next scripted level for pin.
// Pins with no script read idle high.
func (f *FakeSource) Level(pin int) uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads[pin]++
	s := f.scripts[pin]
	if len(s) == 0 {
		return idleLevel
	}
	lvl := s[0]
	if len(s) > 1 {
		f.scripts[pin] = s[1:]
	}
	return lvl
}

// Held reports whether pin is currently acquired.
func (f *FakeSource) Held(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Acquired[pin]
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
