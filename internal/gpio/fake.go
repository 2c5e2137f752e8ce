package gpio

import (
	"sync"
	"time"
)

// State is the logical state of the trigger line.
type State string

const (
	StateIdle   State = "IDLE"
	StateActive State = "ACTIVE"
)

// Transition records a single pin state change.
type Transition struct {
	To State
	At time.Time
}

// FakePin is a test double that records pin transitions in memory.
// Safe for concurrent use so serialization tests can fire from multiple
// goroutines.
type FakePin struct {
	mu sync.Mutex

	// transitions contains every state change, in order.
	transitions []Transition

	// ActivateError, if set, will be returned by Activate().
	ActivateError error

	// DeactivateError, if set, will be returned by Deactivate().
	DeactivateError error

	// Closed tracks if Close was called.
	Closed bool

	active bool
	now    func() time.Time
}

// NewFakePin creates a FakePin that timestamps transitions with time.Now.
func NewFakePin() *FakePin {
	return &FakePin{now: time.Now}
}

// SetClock replaces the clock used to timestamp transitions.
func (f *FakePin) SetClock(now func() time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Activate records an Idle -> Active transition.
func (f *FakePin) Activate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ActivateError != nil {
		return f.ActivateError
	}
	if !f.active {
		f.active = true
		f.transitions = append(f.transitions, Transition{To: StateActive, At: f.now()})
	}
	return nil
}

// Deactivate records an Active -> Idle transition.
// Deactivating an already-idle pin is a no-op, matching the real line
// where reconfiguring to input is idempotent.
func (f *FakePin) Deactivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeactivateError != nil {
		return f.DeactivateError
	}
	if f.active {
		f.active = false
		f.transitions = append(f.transitions, Transition{To: StateIdle, At: f.now()})
	}
	return nil
}

// Active reports whether the fake line is currently driven.
func (f *FakePin) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Close marks the pin as closed, forcing it back to idle first.
func (f *FakePin) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active {
		f.active = false
		f.transitions = append(f.transitions, Transition{To: StateIdle, At: f.now()})
	}
	f.Closed = true
	return nil
}

// Transitions returns a copy of the recorded state changes.
func (f *FakePin) Transitions() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Transition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

// PulseCount returns the number of completed Idle -> Active transitions.
func (f *FakePin) PulseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, tr := range f.transitions {
		if tr.To == StateActive {
			n++
		}
	}
	return n
}

// Reset clears recorded transitions and errors.
func (f *FakePin) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transitions = nil
	f.active = false
	f.Closed = false
	f.ActivateError = nil
	f.DeactivateError = nil
}
