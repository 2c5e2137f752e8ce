// Package gpio provides the trigger pin with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pin drives the trigger line between two logical states:
// Idle (input / high-impedance) and Active (output, driven low).
// The downstream sound board fires on a grounding edge, so the line
// must rest high-impedance and only ever be driven low, briefly.
type Pin interface {
	// Activate switches the line to driven-output mode, asserting low.
	Activate() error

	// Deactivate returns the line to input mode (high impedance).
	Deactivate() error

	// Active reports whether the line is currently driven.
	Active() bool

	// Close releases GPIO resources, restoring the line to input mode.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 17 // trigger line to the sound board
)
