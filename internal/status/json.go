package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Polling       bool         `json:"polling"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Events        int          `json:"events"`
	Dropped       int          `json:"dropped"`
	Knobs         []KnobJSON   `json:"knobs"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// KnobJSON is the JSON representation of one knob.
type KnobJSON struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
	PinA   int    `json:"pin_a"`
	PinB   int    `json:"pin_b"`
	Count  int    `json:"count"`
	Last   string `json:"last_event"`
	Lefts  int    `json:"lefts"`
	Rights int    `json:"rights"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Backend     string `json:"gpio_backend"`
}

func knobJSON(k knob.Status) KnobJSON {
	return KnobJSON{
		Name:   k.Name,
		Handle: k.Handle.String(),
		PinA:   k.PinA,
		PinB:   k.PinB,
		Count:  k.Count,
		Last:   k.Event.String(),
		Lefts:  k.Lefts,
		Rights: k.Rights,
	}
}

func buildInner(snap Snapshot) StatusInner {
	knobs := make([]KnobJSON, 0, len(snap.Knobs))
	for _, k := range snap.Knobs {
		knobs = append(knobs, knobJSON(k))
	}

	inner := StatusInner{
		Polling:       snap.Polling,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Events:        snap.Events,
		Dropped:       snap.Dropped,
		Knobs:         knobs,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Backend:     snap.Config.Backend,
		},
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatKnob returns the JSON for a single knob.
func FormatKnob(k knob.Status) []byte {
	data, _ := json.MarshalIndent(knobJSON(k), "", "  ")
	return data
}
