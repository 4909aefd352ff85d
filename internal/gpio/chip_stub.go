//go:build !linux

package gpio

import "errors"

// ChipSource is not available on non-Linux platforms.
type ChipSource struct{}

// NewChipSource returns an error on non-Linux platforms.
func NewChipSource(name string) (*ChipSource, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

func (s *ChipSource) Acquire(pin int) error {
	return errors.New("gpio: not supported")
}

func (s *ChipSource) Release(pin int) error { return nil }
func (s *ChipSource) Level(pin int) uint8   { return idleLevel }
func (s *ChipSource) Close() error          { return nil }
