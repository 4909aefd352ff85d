// Package timer provides the periodic timer that drives knob polling.
package timer

import (
	"errors"
	"time"
)

var (
	ErrRunning = errors.New("timer: already running")
	ErrStopped = errors.New("timer: not running")
	ErrDeleted = errors.New("timer: deleted")
)

// Timer invokes its callback periodically once started.
// Implementations never run the callback concurrently with itself.
type Timer interface {
	// StartPeriodic begins invoking the callback every d.
	StartPeriodic(d time.Duration) error

	// Stop halts invocation. It returns after any in-flight callback finishes.
	Stop() error

	// Delete stops the timer if needed and releases it. The timer cannot be reused.
	Delete() error
}

// Factory creates a Timer bound to cb.
type Factory func(cb func()) (Timer, error)
