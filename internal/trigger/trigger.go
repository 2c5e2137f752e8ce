// Package trigger contains the pulse controller. It owns the trigger pin,
// gates requests on authorization and network availability, and executes
// bounded low pulses. The pin is returned to idle on every exit path.
package trigger

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/sound-trigger/internal/gpio"
)

// Pulse duration bounds. Out-of-range requests are clamped, not rejected:
// the device should always produce some safe pulse rather than error on a
// minor out-of-range request.
const (
	MinPulse     = 20 * time.Millisecond
	MaxPulse     = 2000 * time.Millisecond
	DefaultPulse = 150 * time.Millisecond
)

var (
	// ErrUnauthorized is returned when a required token is missing or wrong.
	ErrUnauthorized = errors.New("trigger: unauthorized")

	// ErrUnavailable is returned when the network is not ready. The web
	// layer only runs while connected, so this check is defensive.
	ErrUnavailable = errors.New("trigger: network unavailable")
)

// Request carries the parameters of a single trigger call.
// Requests are ephemeral — one per HTTP call, consumed immediately.
type Request struct {
	// DurationMs is the requested pulse length; <= 0 means "use default".
	DurationMs int

	// Token is the shared secret presented by the caller.
	Token string
}

// Policy is the authorization rule, fixed for the process lifetime.
// An empty RequiredToken disables authorization entirely.
type Policy struct {
	RequiredToken string
}

// Counts tracks trigger outcomes since startup.
type Counts struct {
	Triggered    int
	Unauthorized int
	Unavailable  int
}

// Controller owns the trigger pin. All pulses are serialized through a
// mutex: the pin is a singleton resource and two pulses must never overlap.
type Controller struct {
	pin          gpio.Pin
	policy       Policy
	defaultPulse time.Duration

	// sleep performs the pulse hold. Injectable so tests avoid real delays.
	sleep func(time.Duration)

	mu     sync.Mutex // serializes Fire, guards counts
	counts Counts
}

// New creates a Controller driving the given pin.
// defaultPulse <= 0 selects DefaultPulse.
func New(pin gpio.Pin, policy Policy, defaultPulse time.Duration) *Controller {
	if defaultPulse <= 0 {
		defaultPulse = DefaultPulse
	}
	return &Controller{
		pin:          pin,
		policy:       policy,
		defaultPulse: defaultPulse,
		sleep:        time.Sleep,
	}
}

// SetSleep replaces the pulse hold function.
func (c *Controller) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

// Resolve maps a requested duration in milliseconds to the pulse length
// that will actually be driven: <= 0 selects the default, anything else
// is clamped into [MinPulse, MaxPulse].
func (c *Controller) Resolve(ms int) time.Duration {
	if ms <= 0 {
		return c.defaultPulse
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinPulse {
		return MinPulse
	}
	if d > MaxPulse {
		return MaxPulse
	}
	return d
}

// Fire validates the request and, if authorized, drives one pulse:
// Idle -> Active, hold for the resolved duration, then back to Idle.
// Returns the resolved duration on success.
//
// Preconditions are checked in order: availability, then authorization,
// then duration resolution. Every authorized request produces exactly one
// pulse — there is no deduplication or debouncing.
func (c *Controller) Fire(req Request, connected bool) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !connected {
		c.counts.Unavailable++
		return 0, ErrUnavailable
	}

	if c.policy.RequiredToken != "" && req.Token != c.policy.RequiredToken {
		c.counts.Unauthorized++
		return 0, ErrUnauthorized
	}

	d := c.Resolve(req.DurationMs)
	if err := c.pulse(d); err != nil {
		return 0, err
	}

	c.counts.Triggered++
	log.Printf("trigger: pulse fired (%v)", d)
	return d, nil
}

// pulse drives the pin low for d. The deferred Deactivate runs on every
// exit path — including a panic during the hold or a failed Activate that
// leaves the line in an unknown state — so the sound board's trigger input
// is never left grounded.
func (c *Controller) pulse(d time.Duration) error {
	defer func() {
		if err := c.pin.Deactivate(); err != nil {
			log.Printf("trigger: failed to restore pin to idle: %v", err)
		}
	}()

	if err := c.pin.Activate(); err != nil {
		return fmt.Errorf("activate trigger pin: %w", err)
	}

	// Blocking hold. The pulse is a real-time actuation: it runs to
	// completion once started and cannot be cancelled (a partial pulse
	// may fail to trigger the sound board reliably). Only this request's
	// goroutine stalls; health checks stay responsive.
	c.sleep(d)
	return nil
}

// Counts returns a copy of the outcome counters.
func (c *Controller) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}
