// Package control runs the fixed-rate actuation loop that turns the latest
// interpreted mental command into pointer movement, and coordinates its lifecycle.
package control

import (
	"time"

	"go.uber.org/atomic"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// Command is the most recent (label, power) pair accepted by the decision path.
// Seq increases by one on every Store.
type Command struct {
	Label     logic.Label
	Raw       string
	Power     float64
	Timestamp time.Time
	Seq       uint64
}

// Slot holds the latest Command. Writes overwrite, never queue: readers only
// ever see the newest value. Safe for one writer and many readers.
type Slot struct {
	cmd *atomic.Pointer[Command]
	seq atomic.Uint64
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{cmd: atomic.NewPointer[Command](nil)}
}

// Store publishes a new command built from ev and returns it.
func (s *Slot) Store(ev logic.CommandEvent) Command {
	c := Command{
		Label:     ev.Label,
		Raw:       ev.Raw,
		Power:     ev.Power,
		Timestamp: ev.Timestamp,
		Seq:       s.seq.Inc(),
	}
	s.cmd.Store(&c)
	return c
}

// Load returns the latest command, or false if none was stored yet.
func (s *Slot) Load() (Command, bool) {
	c := s.cmd.Load()
	if c == nil {
		return Command{}, false
	}
	return *c, true
}
