// Package gpio provides digital input levels for knob phase pins.
// The real implementations use the Linux GPIO character device or periph.io.
// The fake implementation allows testing without hardware.
package gpio

// Source acquires pins and reads their levels.
type Source interface {
	// Acquire configures pin as an input with pull-up.
	Acquire(pin int) error

	// Release resets a previously acquired pin.
	Release(pin int) error

	// Level returns the raw level of pin, 0 or 1.
	// A failed read returns the last good level for that pin, so a transient
	// fault looks like a steady input.
	Level(pin int) uint8

	// Close releases every pin still held and the underlying device.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
)

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"

// idleLevel is what a pulled-up input reads before any sample exists.
const idleLevel uint8 = 1
