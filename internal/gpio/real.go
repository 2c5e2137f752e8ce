//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPin drives the trigger line on actual hardware using the Linux GPIO
// character device. Only the trigger controller may call Activate/Deactivate,
// so no internal locking is needed.
type RealPin struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	active bool
}

// NewRealPin requests the trigger line from the given chip.
// The line is requested as input so it rests high-impedance until a pulse
// drives it — the sound board's trigger input is active-low.
func NewRealPin(chipName string, offset int) (*RealPin, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger line %d: %w", offset, err)
	}

	return &RealPin{
		chip: chip,
		line: line,
	}, nil
}

// Activate switches the line to output mode, driving it low.
func (p *RealPin) Activate() error {
	if err := p.line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
		return fmt.Errorf("drive trigger line low: %w", err)
	}
	p.active = true
	return nil
}

// Deactivate returns the line to input mode (high impedance).
func (p *RealPin) Deactivate() error {
	if err := p.line.Reconfigure(gpiocdev.AsInput); err != nil {
		return fmt.Errorf("release trigger line: %w", err)
	}
	p.active = false
	return nil
}

// Active reports whether the line is currently driven.
func (p *RealPin) Active() bool {
	return p.active
}

// Close releases GPIO resources.
// Reconfigures the line back to input before closing so the sound board's
// trigger input is never left grounded across daemon restarts.
func (p *RealPin) Close() error {
	var errs []error

	if p.line != nil {
		if err := p.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger line: %w", err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger line: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	p.active = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
