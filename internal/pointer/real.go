//go:build cgo

package pointer

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
)

// RealDevice drives the system pointer through robotgo.
type RealDevice struct {
	mu       sync.Mutex
	failsafe bool
}

// NewRealDevice creates a device for the current display.
// The failsafe starts enabled.
func NewRealDevice() (*RealDevice, error) {
	if _, _, err := screenSize(); err != nil {
		return nil, err
	}
	return &RealDevice{failsafe: true}, nil
}

func screenSize() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("screen size %dx%d: %w", w, h, ErrUnavailable)
	}
	return w, h, nil
}

// Bounds returns the size of the main display.
func (d *RealDevice) Bounds() (Size, error) {
	w, h, err := screenSize()
	if err != nil {
		return Size{}, err
	}
	return Size{W: w, H: h}, nil
}

// Position returns the current pointer position.
func (d *RealDevice) Position() (Point, error) {
	if _, _, err := screenSize(); err != nil {
		return Point{}, err
	}
	x, y := robotgo.Location()
	return Point{X: x, Y: y}, nil
}

// MoveTo places the pointer at p. With the failsafe enabled, a pointer parked
// in any screen corner aborts the move.
func (d *RealDevice) MoveTo(p Point) error {
	w, h, err := screenSize()
	if err != nil {
		return err
	}

	d.mu.Lock()
	failsafe := d.failsafe
	d.mu.Unlock()

	if failsafe {
		x, y := robotgo.Location()
		if inCorner(Point{X: x, Y: y}, w, h) {
			return fmt.Errorf("pointer at (%d,%d): %w", x, y, ErrFailsafe)
		}
	}

	p = Size{W: w, H: h}.Clamp(p)
	robotgo.Move(p.X, p.Y)
	return nil
}

// Click issues a left click.
func (d *RealDevice) Click() error {
	if _, _, err := screenSize(); err != nil {
		return err
	}
	robotgo.Click("left")
	return nil
}

// SetFailsafe enables or disables the corner check.
func (d *RealDevice) SetFailsafe(enabled bool) error {
	d.mu.Lock()
	d.failsafe = enabled
	d.mu.Unlock()
	return nil
}
