package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Connectivity  string     `json:"connectivity"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	LastPulseMs   int64      `json:"last_pulse_ms"`
	LastTrigger   string     `json:"last_trigger,omitempty"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"trigger_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of trigger outcome counts.
type CountsJSON struct {
	Triggered    int `json:"triggered"`
	Unauthorized int `json:"unauthorized"`
	Unavailable  int `json:"unavailable"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	HTTPAddr       string `json:"http_addr"`
	Broker         string `json:"broker,omitempty"`
	GPIOChip       string `json:"gpio_chip"`
	GPIOLine       int    `json:"gpio_line"`
	DefaultPulseMs int64  `json:"default_pulse_ms"`
	AuthEnabled    bool   `json:"auth_enabled"`
	ProbeTarget    string `json:"probe_target"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	conn := string(snap.Connectivity)
	if conn == "" {
		conn = "UNKNOWN"
	}

	inner := StatusInner{
		Connectivity:  conn,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		LastPulseMs:   snap.LastPulseMs,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Triggered:    snap.Counts.Triggered,
			Unauthorized: snap.Counts.Unauthorized,
			Unavailable:  snap.Counts.Unavailable,
		},
		Config: ConfigJSON{
			HTTPAddr:       snap.Config.HTTPAddr,
			Broker:         snap.Config.Broker,
			GPIOChip:       snap.Config.GPIOChip,
			GPIOLine:       snap.Config.GPIOLine,
			DefaultPulseMs: snap.Config.DefaultPulseMs,
			AuthEnabled:    snap.Config.AuthEnabled,
			ProbeTarget:    snap.Config.ProbeTarget,
			HeartbeatMs:    snap.Config.HeartbeatMs,
		},
	}

	if !snap.LastTrigger.IsZero() {
		inner.LastTrigger = snap.LastTrigger.UTC().Format(time.RFC3339)
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
