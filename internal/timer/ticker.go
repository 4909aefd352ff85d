package timer

import (
	"errors"
	"sync"
	"time"
)

// Ticker is a Timer backed by time.Ticker and one goroutine per start.
type Ticker struct {
	cb func()

	mu      sync.Mutex
	quit    chan struct{}
	done    chan struct{}
	deleted bool
}

// NewTicker returns a stopped Ticker. It satisfies Factory.
func NewTicker(cb func()) (Timer, error) {
	if cb == nil {
		return nil, errors.New("timer: nil callback")
	}
	return &Ticker{cb: cb}, nil
}

// StartPeriodic starts the polling goroutine.
func (t *Ticker) StartPeriodic(d time.Duration) error {
	if d <= 0 {
		return errors.New("timer: interval must be positive")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleted {
		return ErrDeleted
	}
	if t.quit != nil {
		return ErrRunning
	}

	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(time.NewTicker(d), t.quit, t.done)
	return nil
}

func (t *Ticker) loop(tk *time.Ticker, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer tk.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tk.C:
			// A stop may race with a pending tick; quit wins.
			select {
			case <-quit:
				return
			default:
			}
			t.cb()
		}
	}
}

// Stop halts the goroutine and waits for it to exit.
func (t *Ticker) Stop() error {
	t.mu.Lock()
	if t.deleted {
		t.mu.Unlock()
		return ErrDeleted
	}
	if t.quit == nil {
		t.mu.Unlock()
		return ErrStopped
	}
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()

	close(quit)
	<-done
	return nil
}

// Delete stops the ticker if running and marks it unusable.
func (t *Ticker) Delete() error {
	err := t.Stop()
	if errors.Is(err, ErrDeleted) {
		return err
	}

	t.mu.Lock()
	t.deleted = true
	t.mu.Unlock()
	return nil
}
