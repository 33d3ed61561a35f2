// Package runstate provides the not-started / running / stopped machine shared
// by controllable subsystems.
package runstate

import (
	"errors"

	"go.uber.org/atomic"
)

// State is a subsystem run state.
type State int32

const (
	NotStarted State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ErrStopped is returned when starting a subsystem that already stopped.
var ErrStopped = errors.New("runstate: already stopped")

// Machine holds a State. Transitions are NotStarted -> Running and
// Running -> Stopped only. The zero value is NotStarted and ready to use.
type Machine struct {
	v atomic.Int32
}

// Load returns the current state.
func (m *Machine) Load() State {
	return State(m.v.Load())
}

// Running reports whether the state is Running.
func (m *Machine) Running() bool {
	return m.Load() == Running
}

// Start moves NotStarted to Running and reports whether this call did it.
// Starting while Running is a no-op (false, nil). Starting after Stopped
// returns ErrStopped.
func (m *Machine) Start() (bool, error) {
	if m.v.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return true, nil
	}
	if m.Load() == Stopped {
		return false, ErrStopped
	}
	return false, nil
}

// Stop moves Running to Stopped and reports whether this call did it.
// Stopping in any other state is a no-op.
func (m *Machine) Stop() bool {
	return m.v.CompareAndSwap(int32(Running), int32(Stopped))
}
