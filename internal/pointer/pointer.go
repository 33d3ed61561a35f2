// Package pointer provides pointer (mouse) actuation with hardware abstraction.
// The real implementation uses robotgo and needs cgo and a display.
// The fake implementation allows testing without a display.
package pointer

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks faults where the underlying pointer system is gone
// (no display, device removed). They are fatal to the control loop.
var ErrUnavailable = errors.New("pointer: device unavailable")

// ErrFailsafe is returned by a move while the failsafe is enabled and the
// pointer sits in a screen corner.
var ErrFailsafe = errors.New("pointer: failsafe triggered")

// Point is a screen position in pixels.
type Point struct {
	X int
	Y int
}

// Add returns p displaced by (dx, dy).
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Size is a screen size in pixels. The zero Size is unbounded.
type Size struct {
	W int
	H int
}

// Clamp returns p limited to the screen.
func (s Size) Clamp(p Point) Point {
	if s.W <= 0 || s.H <= 0 {
		return p
	}
	return Point{X: clamp(p.X, 0, s.W-1), Y: clamp(p.Y, 0, s.H-1)}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Device is the pointer actuation capability.
// All calls are synchronous. Errors wrapping ErrUnavailable are fatal to the
// caller's loop; any other error only affects the current call.
type Device interface {
	// Position returns the current pointer position.
	Position() (Point, error)

	// Bounds returns the screen size. MoveTo lands on Bounds().Clamp(p).
	Bounds() (Size, error)

	// MoveTo places the pointer at an absolute position, clamped to Bounds.
	MoveTo(p Point) error

	// Click issues a left click at the current position.
	Click() error

	// SetFailsafe enables or disables the corner abort check.
	SetFailsafe(enabled bool) error
}

// IsUnavailable reports whether err is a device-unavailable fault.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// inCorner reports whether p touches a corner of a w x h screen.
func inCorner(p Point, w, h int) bool {
	left := p.X <= 0
	right := p.X >= w-1
	top := p.Y <= 0
	bottom := p.Y >= h-1
	return (left || right) && (top || bottom)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
