package timer

import (
	"errors"
	"sync"
	"time"
)

// Fake is a Timer that only fires when told to.
type Fake struct {
	mu sync.Mutex
	cb func()

	// Running reports whether the timer is started.
	Running bool
	// Deleted tracks if Delete was called.
	Deleted bool
	// Interval is the period passed to the last StartPeriodic.
	Interval time.Duration
	// Starts and Stops count successful calls.
	Starts int
	Stops  int
	// Fires counts callback invocations.
	Fires int

	// StartError, if set, will be returned by StartPeriodic.
	StartError error
}

// Fire invokes the callback once if the timer is running.
// It reports whether the callback ran.
func (f *Fake) Fire() bool {
	f.mu.Lock()
	if !f.Running || f.Deleted {
		f.mu.Unlock()
		return false
	}
	f.Fires++
	cb := f.cb
	f.mu.Unlock()

	cb()
	return true
}

// FireN calls Fire n times.
func (f *Fake) FireN(n int) {
	for i := 0; i < n; i++ {
		f.Fire()
	}
}

// StartPeriodic marks the timer running.
func (f *Fake) StartPeriodic(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.StartError != nil {
		return f.StartError
	}
	if f.Deleted {
		return ErrDeleted
	}
	if f.Running {
		return ErrRunning
	}
	f.Running = true
	f.Interval = d
	f.Starts++
	return nil
}

// Stop marks the timer stopped.
func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Deleted {
		return ErrDeleted
	}
	if !f.Running {
		return ErrStopped
	}
	f.Running = false
	f.Stops++
	return nil
}

// Delete marks the timer deleted.
func (f *Fake) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Deleted {
		return ErrDeleted
	}
	if f.Running {
		f.Running = false
		f.Stops++
	}
	f.Deleted = true
	return nil
}

// FakeFactory hands out Fake timers and remembers them.
type FakeFactory struct {
	mu sync.Mutex

	// Timers lists every timer created, oldest first.
	Timers []*Fake

	// CreateError, if set, will be returned by New.
	CreateError error
}

// New satisfies Factory.
func (ff *FakeFactory) New(cb func()) (Timer, error) {
	if cb == nil {
		return nil, errors.New("timer: nil callback")
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.CreateError != nil {
		return nil, ff.CreateError
	}
	f := &Fake{cb: cb}
	ff.Timers = append(ff.Timers, f)
	return f, nil
}

// Last returns the most recently created timer, or nil.
func (ff *FakeFactory) Last() *Fake {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if len(ff.Timers) == 0 {
		return nil
	}
	return ff.Timers[len(ff.Timers)-1]
}

// Count returns how many timers were created.
func (ff *FakeFactory) Count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.Timers)
}
