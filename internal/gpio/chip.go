//go:build linux

package gpio

import (
	"fmt"
	"log"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// ChipSource reads pins from a Linux GPIO character device.
type ChipSource struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	lines  map[int]*gpiocdev.Line
	last   map[int]uint8
	failed map[int]bool
}

// NewChipSource opens the named GPIO chip (e.g. "gpiochip0").
func NewChipSource(name string) (*ChipSource, error) {
	if name == "" {
		name = DefaultChip
	}
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &ChipSource{
		chip:   chip,
		lines:  make(map[int]*gpiocdev.Line),
		last:   make(map[int]uint8),
		failed: make(map[int]bool),
	}, nil
}

// Acquire requests pin as an input with pull-up.
func (s *ChipSource) Acquire(pin int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[pin]; ok {
		return fmt.Errorf("pin %d already requested", pin)
	}
	line, err := s.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	s.lines[pin] = line
	s.last[pin] = idleLevel
	return nil
}

// Release reconfigures pin as a plain input and closes the line.
func (s *ChipSource) Release(pin int) error {
	s.mu.Lock()
	line, ok := s.lines[pin]
	delete(s.lines, pin)
	delete(s.last, pin)
	delete(s.failed, pin)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("pin %d not requested", pin)
	}
	return closeLine(pin, line)
}

func closeLine(pin int, line *gpiocdev.Line) error {
	var errs []error
	if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithBiasDisabled); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
	}
	if err := line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("release errors: %v", errs)
	}
	return nil
}

// Level returns the current raw value of pin.
func (s *ChipSource) Level(pin int) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[pin]
	if !ok {
		return idleLevel
	}
	v, err := line.Value()
	if err != nil {
		if !s.failed[pin] {
			log.Printf("gpio: read pin %d: %v", pin, err)
			s.failed[pin] = true
		}
		return s.last[pin]
	}
	s.failed[pin] = false
	lvl := uint8(0)
	if v != 0 {
		lvl = 1
	}
	s.last[pin] = lvl
	return lvl
}

// Close releases every requested line and the chip.
func (s *ChipSource) Close() error {
	s.mu.Lock()
	lines := s.lines
	s.lines = make(map[int]*gpiocdev.Line)
	s.mu.Unlock()

	var errs []error
	for pin, line := range lines {
		if err := closeLine(pin, line); err != nil {
			errs = append(errs, err)
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
