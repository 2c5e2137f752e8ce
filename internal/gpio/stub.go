//go:build !linux

package gpio

import "errors"

// RealPin is not available on non-Linux platforms.
type RealPin struct{}

// NewRealPin returns an error on non-Linux platforms.
func NewRealPin(chipName string, offset int) (*RealPin, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Activate is not implemented on non-Linux platforms.
func (p *RealPin) Activate() error {
	return errors.New("gpio: not supported")
}

// Deactivate is not implemented on non-Linux platforms.
func (p *RealPin) Deactivate() error {
	return errors.New("gpio: not supported")
}

// Active is not implemented on non-Linux platforms.
func (p *RealPin) Active() bool {
	return false
}

// Close is not implemented on non-Linux platforms.
func (p *RealPin) Close() error {
	return nil
}
