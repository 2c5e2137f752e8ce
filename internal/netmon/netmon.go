// Package netmon tracks network availability with a polled state machine.
// Reconnect attempts are scheduled with bounded exponential backoff and the
// machine retries forever — a headless device has no other recourse.
package netmon

import (
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// State is the connectivity state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

// Backoff bounds for reconnect scheduling.
const (
	MinBackoff = 1000 * time.Millisecond
	MaxBackoff = 15000 * time.Millisecond
)

// ProbeFunc reports whether the network is reachable. It must return
// within the given timeout.
type ProbeFunc func(timeout time.Duration) bool

// Config contains monitor settings.
type Config struct {
	// Target is dialed by the default probe ("host" or "host:port";
	// a bare host gets port 53 appended).
	Target string

	// Timeout bounds a single probe.
	Timeout time.Duration

	// CheckInterval is how often an established connection is re-verified.
	CheckInterval time.Duration
}

// Monitor owns the connectivity state. Tick must be called from a single
// goroutine (the run loop); it performs at most one state change per call
// and never blocks beyond the probe timeout. IsConnected and State are
// safe to call from other goroutines.
type Monitor struct {
	cfg   Config
	probe ProbeFunc

	// Scheduling state, owned by the Tick goroutine.
	backoff     time.Duration
	nextAttempt time.Time
	nextCheck   time.Time

	mu    sync.RWMutex
	state State
}

// New creates a Monitor in the Disconnected state. A nil probe selects
// DialProbe against cfg.Target.
func New(cfg Config, probe ProbeFunc) *Monitor {
	if cfg.Target == "" {
		cfg.Target = "1.1.1.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if probe == nil {
		probe = DialProbe(cfg.Target)
	}
	return &Monitor{
		cfg:     cfg,
		probe:   probe,
		backoff: MinBackoff,
		state:   StateDisconnected,
	}
}

// State returns the current connectivity state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the network is available. This is the sole
// query the rest of the system uses.
func (m *Monitor) IsConnected() bool {
	return m.State() == StateConnected
}

// Tick advances the state machine. At most one state change per call:
//
//	Disconnected -> Connecting   once the scheduled attempt time arrives
//	Connecting   -> Connected    on probe success (backoff resets)
//	Connecting   -> Disconnected on probe failure (backoff doubles, capped)
//	Connected    -> Disconnected on a failed periodic re-probe
//
// Returns the state after the call.
func (m *Monitor) Tick(now time.Time) State {
	switch m.State() {
	case StateDisconnected:
		if now.Before(m.nextAttempt) {
			return StateDisconnected
		}
		m.setState(StateConnecting)

	case StateConnecting:
		if m.probe(m.cfg.Timeout) {
			m.backoff = MinBackoff
			m.nextCheck = now.Add(m.cfg.CheckInterval)
			m.setState(StateConnected)
			return StateConnected
		}
		m.backoff *= 2
		if m.backoff > MaxBackoff {
			m.backoff = MaxBackoff
		}
		m.nextAttempt = now.Add(m.backoff)
		log.Printf("netmon: connect failed, retrying in %v", m.backoff)
		m.setState(StateDisconnected)

	case StateConnected:
		if now.Before(m.nextCheck) {
			return StateConnected
		}
		if m.probe(m.cfg.Timeout) {
			m.nextCheck = now.Add(m.cfg.CheckInterval)
			return StateConnected
		}
		// Link lost. The first reconnect attempt comes after the
		// minimum backoff (it was reset when we connected).
		m.nextAttempt = now.Add(m.backoff)
		log.Printf("netmon: link lost, reconnecting in %v", m.backoff)
		m.setState(StateDisconnected)
	}
	return m.State()
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	m.mu.Unlock()

	if old != s {
		log.Printf("netmon: %s -> %s", old, s)
	}
}

// DialProbe returns a ProbeFunc that TCP-dials the target within the
// timeout. A bare host gets port 53 appended (DNS, reachable on most
// networks).
func DialProbe(target string) ProbeFunc {
	return func(timeout time.Duration) bool {
		addr := strings.TrimSpace(target)
		if !strings.Contains(addr, ":") {
			addr = net.JoinHostPort(addr, "53")
		}
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}
