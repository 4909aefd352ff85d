// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "knob/sensor"

// Topics holds the MQTT topics for one daemon.
type Topics struct {
	Events string // rotation events
	System string // lifecycle events
}

// TopicsFor derives the topics from a prefix such as "knob/sensor".
func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a knob rotation event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event KnobEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// KnobEvent is one confirmed detent on a named knob.
type KnobEvent struct {
	Timestamp time.Time
	Name      string
	Event     knob.Event
	Count     int // knob count after the detent
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Knob KnobPayload `json:"knob"`
}

// KnobPayload contains the rotation event details.
type KnobPayload struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Event     string `json:"event"`
	Count     int    `json:"count"`
}

// FormatPayload creates the JSON payload for a knob event.
func FormatPayload(event KnobEvent) ([]byte, error) {
	payload := Payload{
		Knob: KnobPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Name:      event.Name,
			Event:     event.Event.String(),
			Count:     event.Count,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the retained last-will message the broker publishes if the
// daemon drops off without a SHUTDOWN. It has no timestamp because it is
// registered at connect time.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return data
}
