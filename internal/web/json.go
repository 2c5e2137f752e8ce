package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sound-trigger/internal/status"
)

// TriggerJSON is the JSON response for a successful trigger.
type TriggerJSON struct {
	Status  string `json:"status"`
	PulseMs int64  `json:"pulse_ms"`
}

// IndexJSON describes the service and embeds the current status.
type IndexJSON struct {
	Service   string          `json:"service"`
	Endpoints []string        `json:"endpoints"`
	Status    json.RawMessage `json:"status"`
}

func formatTrigger(d time.Duration) []byte {
	data, _ := json.Marshal(TriggerJSON{
		Status:  "triggered",
		PulseMs: d.Milliseconds(),
	})
	return data
}

func formatIndex(snap status.Snapshot) []byte {
	// Reuse the status formatter so / and MQTT heartbeats agree.
	var envelope struct {
		Status json.RawMessage `json:"status"`
	}
	json.Unmarshal(status.FormatJSON(snap), &envelope)

	data, _ := json.MarshalIndent(IndexJSON{
		Service:   "sound-trigger",
		Endpoints: []string{"/", "/healthz", "/trigger"},
		Status:    envelope.Status,
	}, "", "  ")
	return data
}
