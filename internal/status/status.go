// Package status provides a thread-safe status tracker for the knob-sensor daemon.
// It is read by the HTTP handlers and the MQTT lifecycle payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// NetworkInfo is the host network state written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Backend     string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Knobs         []knob.Status
	Polling       bool
	Events        int // events seen since startup
	Dropped       int // events lost because the queue was full
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Knob returns the row for the named knob.
func (s Snapshot) Knob(name string) (knob.Status, bool) {
	for _, k := range s.Knobs {
		if k.Name == name {
			return k, true
		}
	}
	return knob.Status{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the per-knob rows and polling flag.
func (t *Tracker) Update(knobs []knob.Status, polling bool) {
	rows := make([]knob.Status, len(knobs))
	copy(rows, knobs)

	t.mu.Lock()
	t.snap.Knobs = rows
	t.snap.Polling = polling
	t.mu.Unlock()
}

// RecordEvent counts one delivered knob event.
func (t *Tracker) RecordEvent() {
	t.mu.Lock()
	t.snap.Events++
	t.mu.Unlock()
}

// SetDropped sets the number of events lost to a full queue.
func (t *Tracker) SetDropped(n int) {
	t.mu.Lock()
	t.snap.Dropped = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Knobs = make([]knob.Status, len(t.snap.Knobs))
	copy(s.Knobs, t.snap.Knobs)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
