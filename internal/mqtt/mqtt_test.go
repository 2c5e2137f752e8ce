package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFormatPayload(t *testing.T) {
	event := TriggerEvent{
		Timestamp: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		PulseMs:   500,
		Remote:    "192.168.1.50:51234",
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if p.Trigger.Event != "TRIGGERED" {
		t.Errorf("event: got %q, want TRIGGERED", p.Trigger.Event)
	}
	if p.Trigger.PulseMs != 500 {
		t.Errorf("pulse_ms: got %d, want 500", p.Trigger.PulseMs)
	}
	if p.Trigger.Timestamp != "2026-03-01T12:30:00Z" {
		t.Errorf("timestamp: got %q", p.Trigger.Timestamp)
	}
	if p.Trigger.Remote != "192.168.1.50:51234" {
		t.Errorf("remote: got %q", p.Trigger.Remote)
	}
}

func TestFormatPayloadOmitsEmptyRemote(t *testing.T) {
	data, err := FormatPayload(TriggerEvent{Timestamp: time.Now(), PulseMs: 150})
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["trigger"]["remote"]; ok {
		t.Error("remote should be omitted when empty")
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("format: %v", err)
	}

	var p SystemPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.System.Event != "SHUTDOWN" {
		t.Errorf("event: got %q", p.System.Event)
	}
	if p.System.Reason != "SIGTERM" {
		t.Errorf("reason: got %q", p.System.Reason)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	data, err := FormatSystemPayload(SystemEvent{RawPayload: raw})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload not passed through: got %s", data)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()

	event := TriggerEvent{Timestamp: time.Now(), PulseMs: 150}
	if err := f.Publish(event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("events: got %d, want 1", len(f.Events))
	}
	if f.Events[0].PulseMs != 150 {
		t.Errorf("pulse_ms: got %d, want 150", f.Events[0].PulseMs)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("payloads: got %d, want 1", len(f.Payloads))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.Publish(TriggerEvent{}); err == nil {
		t.Error("expected publish error")
	}
	if len(f.Events) != 0 {
		t.Errorf("events after error: got %d, want 0", len(f.Events))
	}
}
