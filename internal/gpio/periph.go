package gpio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphSource reads pins through the periph.io pin registry.
type PeriphSource struct {
	mu     sync.Mutex
	pins   map[int]gpio.PinIO
	byName func(string) gpio.PinIO
}

// NewPeriphSource initializes periph.io host drivers.
func NewPeriphSource() (*PeriphSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return newPeriphSource(gpioreg.ByName), nil
}

func newPeriphSource(byName func(string) gpio.PinIO) *PeriphSource {
	return &PeriphSource{
		pins:   make(map[int]gpio.PinIO),
		byName: byName,
	}
}

// Acquire looks up GPIO<pin> and sets it to input with pull-up.
func (s *PeriphSource) Acquire(pin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pins[pin]; ok {
		return fmt.Errorf("pin %d already requested", pin)
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := s.byName(name)
	if p == nil {
		return fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("set pin %d to input: %w", pin, err)
	}
	s.pins[pin] = p
	return nil
}

// Release halts the pin and forgets it.
func (s *PeriphSource) Release(pin int) error {
	s.mu.Lock()
	p, ok := s.pins[pin]
	delete(s.pins, pin)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("pin %d not requested", pin)
	}
	if err := p.Halt(); err != nil {
		return fmt.Errorf("halt pin %d: %w", pin, err)
	}
	return nil
}

// Level reads the pin. Unknown pins read as idle.
func (s *PeriphSource) Level(pin int) uint8 {
	s.mu.Lock()
	p, ok := s.pins[pin]
	s.mu.Unlock()

	if !ok {
		return idleLevel
	}
	if p.Read() == gpio.High {
		return 1
	}
	return 0
}

// Close halts every pin still held.
func (s *PeriphSource) Close() error {
	s.mu.Lock()
	pins := s.pins
	s.pins = make(map[int]gpio.PinIO)
	s.mu.Unlock()

	var errs []error
	for n, p := range pins {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt pin %d: %w", n, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
