package trigger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/sound-trigger/internal/gpio"
)

// newTestController returns a controller with an instant sleep and the
// fake pin it drives.
func newTestController(policy Policy) (*Controller, *gpio.FakePin) {
	pin := gpio.NewFakePin()
	c := New(pin, policy, 0)
	c.SetSleep(func(time.Duration) {})
	return c, pin
}

func TestResolve(t *testing.T) {
	c, _ := newTestController(Policy{})

	tests := []struct {
		name string
		ms   int
		want time.Duration
	}{
		{"absent uses default", 0, DefaultPulse},
		{"negative uses default", -5, DefaultPulse},
		{"below minimum clamps up", 1, MinPulse},
		{"at minimum", 20, 20 * time.Millisecond},
		{"in range", 500, 500 * time.Millisecond},
		{"at maximum", 2000, 2000 * time.Millisecond},
		{"above maximum clamps down", 99999, MaxPulse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Resolve(tt.ms); got != tt.want {
				t.Errorf("Resolve(%d): got %v, want %v", tt.ms, got, tt.want)
			}
		})
	}
}

func TestResolveCustomDefault(t *testing.T) {
	pin := gpio.NewFakePin()
	c := New(pin, Policy{}, 300*time.Millisecond)

	if got := c.Resolve(0); got != 300*time.Millisecond {
		t.Errorf("Resolve(0) with custom default: got %v, want 300ms", got)
	}
}

func TestFireSuccess(t *testing.T) {
	c, pin := newTestController(Policy{})

	var held time.Duration
	c.SetSleep(func(d time.Duration) { held = d })

	d, err := c.Fire(Request{DurationMs: 500}, true)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("resolved duration: got %v, want 500ms", d)
	}
	if held != 500*time.Millisecond {
		t.Errorf("hold: got %v, want 500ms", held)
	}

	trs := pin.Transitions()
	if len(trs) != 2 {
		t.Fatalf("transitions: got %d, want 2", len(trs))
	}
	if trs[0].To != gpio.StateActive || trs[1].To != gpio.StateIdle {
		t.Errorf("expected active then idle, got %+v", trs)
	}
	if pin.Active() {
		t.Error("pin should be idle after pulse")
	}
}

func TestFireClampsOversizedDuration(t *testing.T) {
	c, _ := newTestController(Policy{})

	var held time.Duration
	c.SetSleep(func(d time.Duration) { held = d })

	d, err := c.Fire(Request{DurationMs: 99999}, true)
	if err != nil {
		t.Fatalf("fire: %v", err)
	}
	if d != MaxPulse {
		t.Errorf("resolved duration: got %v, want %v", d, MaxPulse)
	}
	if held != MaxPulse {
		t.Errorf("hold: got %v, want %v", held, MaxPulse)
	}
}

func TestFireUnavailable(t *testing.T) {
	c, pin := newTestController(Policy{})

	_, err := c.Fire(Request{DurationMs: 100}, false)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if n := len(pin.Transitions()); n != 0 {
		t.Errorf("pin transitions on unavailable: got %d, want 0", n)
	}
	if got := c.Counts().Unavailable; got != 1 {
		t.Errorf("unavailable count: got %d, want 1", got)
	}
}

func TestAuthGate(t *testing.T) {
	tests := []struct {
		name     string
		required string
		given    string
		wantErr  error
	}{
		{"no policy, no token", "", "", nil},
		{"no policy, stray token", "", "whatever", nil},
		{"policy, exact match", "abc", "abc", nil},
		{"policy, missing token", "abc", "", ErrUnauthorized},
		{"policy, wrong token", "abc", "abd", ErrUnauthorized},
		{"policy, prefix only", "abc", "ab", ErrUnauthorized},
		{"policy, superset", "abc", "abcd", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, pin := newTestController(Policy{RequiredToken: tt.required})

			_, err := c.Fire(Request{Token: tt.given}, true)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("fire: got %v, want %v", err, tt.wantErr)
			}

			wantPulses := 1
			if tt.wantErr != nil {
				wantPulses = 0
			}
			if got := pin.PulseCount(); got != wantPulses {
				t.Errorf("pulses: got %d, want %d", got, wantPulses)
			}
			if pin.Active() {
				t.Error("pin must be idle after Fire returns")
			}
		})
	}
}

func TestFireActivateErrorRestoresIdle(t *testing.T) {
	c, pin := newTestController(Policy{})
	pin.ActivateError = errors.New("chip gone")

	_, err := c.Fire(Request{DurationMs: 100}, true)
	if err == nil {
		t.Fatal("expected error from failed activate")
	}
	if pin.Active() {
		t.Error("pin must be idle after failed activate")
	}
	if got := c.Counts().Triggered; got != 0 {
		t.Errorf("triggered count after failure: got %d, want 0", got)
	}
}

func TestFirePanicDuringHoldRestoresIdle(t *testing.T) {
	c, pin := newTestController(Policy{})
	c.SetSleep(func(time.Duration) { panic("hold interrupted") })

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		c.Fire(Request{DurationMs: 100}, true)
	}()

	if pin.Active() {
		t.Error("pin must be idle even when the hold panics")
	}
}

func TestFireSerialization(t *testing.T) {
	pin := gpio.NewFakePin()
	c := New(pin, Policy{}, 0)
	// Real (short) sleeps so overlapping pulses would interleave
	// transitions if serialization were broken.
	c.SetSleep(time.Sleep)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fire(Request{DurationMs: 20}, true); err != nil {
				t.Errorf("fire: %v", err)
			}
		}()
	}
	wg.Wait()

	trs := pin.Transitions()
	if len(trs) != 8 {
		t.Fatalf("transitions: got %d, want 8", len(trs))
	}
	for i, tr := range trs {
		want := gpio.StateActive
		if i%2 == 1 {
			want = gpio.StateIdle
		}
		if tr.To != want {
			t.Fatalf("transition %d: got %q, want %q (pulses overlapped)", i, tr.To, want)
		}
	}
	if got := c.Counts().Triggered; got != 4 {
		t.Errorf("triggered count: got %d, want 4", got)
	}
}

func TestFireIndependentPulses(t *testing.T) {
	c, pin := newTestController(Policy{})

	for i := 0; i < 2; i++ {
		if _, err := c.Fire(Request{DurationMs: 150}, true); err != nil {
			t.Fatalf("fire %d: %v", i, err)
		}
	}

	// No deduplication: same parameters, two pulses.
	if got := pin.PulseCount(); got != 2 {
		t.Errorf("pulses: got %d, want 2", got)
	}
}
