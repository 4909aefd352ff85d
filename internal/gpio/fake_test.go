package gpio

import (
	"errors"
	"testing"
)

func TestFakeSourceScript(t *testing.T) {
	f := NewFakeSource()
	f.Script(5, 0, 1, 0)

	want := []uint8{0, 1, 0, 0, 0}
	for i, w := range want {
		if got := f.Level(5); got != w {
			t.Errorf("read %d: got %d, want %d", i, got, w)
		}
	}
	if f.Reads[5] != len(want) {
		t.Errorf("reads: got %d, want %d", f.Reads[5], len(want))
	}
}

func TestFakeSourceIdleHigh(t *testing.T) {
	f := NewFakeSource()
	if got := f.Level(9); got != 1 {
		t.Errorf("unscripted pin: got %d, want 1", got)
	}
}

func TestFakeSourceSetReplacesScript(t *testing.T) {
	f := NewFakeSource()
	f.Script(5, 0, 0, 0)
	f.Set(5, 1)
	if got := f.Level(5); got != 1 {
		t.Errorf("after Set: got %d, want 1", got)
	}
}

func TestFakeSourceAcquireRelease(t *testing.T) {
	f := NewFakeSource()

	if err := f.Acquire(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Held(5) {
		t.Error("pin 5 should be held")
	}
	if err := f.Acquire(5); err == nil {
		t.Error("expected error acquiring held pin")
	}

	if err := f.Release(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Held(5) {
		t.Error("pin 5 should be free")
	}
	if err := f.Release(5); err == nil {
		t.Error("expected error releasing free pin")
	}
	if len(f.Released) != 1 || f.Released[0] != 5 {
		t.Errorf("Released: got %v, want [5]", f.Released)
	}
}

func TestFakeSourceAcquireError(t *testing.T) {
	f := NewFakeSource()
	f.AcquireErrors[6] = errors.New("simulated error")

	err := f.Acquire(6)
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
	if f.Held(6) {
		t.Error("failed acquire should not hold the pin")
	}
}

func TestFakeSourceClose(t *testing.T) {
	f := NewFakeSource()
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
