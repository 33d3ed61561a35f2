package pointer

import "sync"

// FakeDevice is a test double that records actuation calls.
// Safe for concurrent use.
type FakeDevice struct {
	mu sync.Mutex

	pos      Point
	bounds   Size
	failsafe bool

	moves           []Point
	clicks          int
	failsafeHistory []bool

	// Errors returned by the corresponding call when set.
	positionErr error
	moveErr     error
	clickErr    error

	// OnMove, if set, is called after every successful move, outside the lock.
	OnMove func(p Point)
}

// NewFakeDevice creates a FakeDevice at the given position with failsafe enabled.
func NewFakeDevice(start Point) *FakeDevice {
	return &FakeDevice{pos: start, failsafe: true}
}

// Position returns the current position.
func (f *FakeDevice) Position() (Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.positionErr != nil {
		return Point{}, f.positionErr
	}
	return f.pos, nil
}

// Bounds returns the size set by SetBounds, unbounded by default.
func (f *FakeDevice) Bounds() (Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds, nil
}

// SetBounds sets the screen size moves are clamped to.
func (f *FakeDevice) SetBounds(s Size) {
	f.mu.Lock()
	f.bounds = s
	f.mu.Unlock()
}

// MoveTo clamps p to the bounds, records the move and updates the position.
func (f *FakeDevice) MoveTo(p Point) error {
	f.mu.Lock()
	if f.moveErr != nil {
		err := f.moveErr
		f.mu.Unlock()
		return err
	}
	p = f.bounds.Clamp(p)
	f.pos = p
	f.moves = append(f.moves, p)
	cb := f.OnMove
	f.mu.Unlock()

	if cb != nil {
		cb(p)
	}
	return nil
}

// Click records a click.
func (f *FakeDevice) Click() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks++
	return nil
}

// SetFailsafe records the failsafe state.
func (f *FakeDevice) SetFailsafe(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failsafe = enabled
	f.failsafeHistory = append(f.failsafeHistory, enabled)
	return nil
}

// SetPosition moves the pointer without recording a move, as a human would.
func (f *FakeDevice) SetPosition(p Point) {
	f.mu.Lock()
	f.pos = p
	f.mu.Unlock()
}

// SetErrors configures the errors returned by Position, MoveTo and Click.
// Nil clears an error.
func (f *FakeDevice) SetErrors(position, move, click error) {
	f.mu.Lock()
	f.positionErr = position
	f.moveErr = move
	f.clickErr = click
	f.mu.Unlock()
}

// Moves returns a copy of the recorded moves.
func (f *FakeDevice) Moves() []Point {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Point(nil), f.moves...)
}

// Clicks returns the number of recorded clicks.
func (f *FakeDevice) Clicks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clicks
}

// Failsafe returns the current failsafe state.
func (f *FakeDevice) Failsafe() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failsafe
}

// FailsafeHistory returns every value passed to SetFailsafe, in order.
func (f *FakeDevice) FailsafeHistory() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.failsafeHistory...)
}

// Reset clears recorded calls and errors.
func (f *FakeDevice) Reset() {
	f.mu.Lock()
	f.moves = nil
	f.clicks = 0
	f.failsafeHistory = nil
	f.positionErr = nil
	f.moveErr = nil
	f.clickErr = nil
	f.mu.Unlock()
}
