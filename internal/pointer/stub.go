//go:build !cgo

package pointer

import "fmt"

// RealDevice is not available without cgo.
type RealDevice struct{}

// NewRealDevice returns an error when built without cgo.
func NewRealDevice() (*RealDevice, error) {
	return nil, fmt.Errorf("pointer: requires cgo: %w", ErrUnavailable)
}

// Position is not implemented without cgo.
func (d *RealDevice) Position() (Point, error) {
	return Point{}, ErrUnavailable
}

// Bounds is not implemented without cgo.
func (d *RealDevice) Bounds() (Size, error) {
	return Size{}, ErrUnavailable
}

// MoveTo is not implemented without cgo.
func (d *RealDevice) MoveTo(p Point) error {
	return ErrUnavailable
}

// Click is not implemented without cgo.
func (d *RealDevice) Click() error {
	return ErrUnavailable
}

// SetFailsafe is a no-op without cgo.
func (d *RealDevice) SetFailsafe(enabled bool) error {
	return nil
}
