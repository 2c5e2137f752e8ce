// Package status provides a thread-safe status tracker for the
// sound-trigger daemon. It is read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sound-trigger/internal/netmon"
	"github.com/sweeney/sound-trigger/internal/trigger"
)

// Config contains daemon configuration for display.
type Config struct {
	HTTPAddr       string
	Broker         string
	GPIOChip       string
	GPIOLine       int
	DefaultPulseMs int64
	AuthEnabled    bool
	ProbeTarget    string
	HeartbeatMs    int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Connectivity  netmon.State
	Counts        trigger.Counts
	LastPulseMs   int64
	LastTrigger   time.Time
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
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
			Connectivity: netmon.StateDisconnected,
			StartTime:    startTime,
			Config:       cfg,
		},
	}
}

// SetConnectivity records the connectivity state.
// Called from the run loop on every tick.
func (t *Tracker) SetConnectivity(s netmon.State) {
	t.mu.Lock()
	t.snap.Connectivity = s
	t.mu.Unlock()
}

// RecordPulse records a fired pulse and the latest outcome counters.
func (t *Tracker) RecordPulse(d time.Duration, at time.Time, counts trigger.Counts) {
	t.mu.Lock()
	t.snap.LastPulseMs = d.Milliseconds()
	t.snap.LastTrigger = at
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetCounts records the trigger outcome counters.
func (t *Tracker) SetCounts(counts trigger.Counts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
