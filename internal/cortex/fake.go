package cortex

import (
	"context"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
)

// FakeSource is a Source for tests and dry runs. Run fires the readiness
// callbacks and then delivers whatever Send is given.
type FakeSource struct {
	handler Handler
	events  chan fakeEvent
	state   runstate.Machine

	// SessionID and Profile are reported to the handler.
	SessionID string
	Profile   string
	// SkipProfile leaves the profile unloaded, so actuation never unlocks.
	SkipProfile bool
}

type fakeEvent struct {
	ev  logic.CommandEvent
	ack chan struct{}
}

// NewFakeSource creates a FakeSource delivering to h.
func NewFakeSource(h Handler) *FakeSource {
	return &FakeSource{
		handler:   h,
		events:    make(chan fakeEvent),
		SessionID: "fake-session",
		Profile:   "fake-profile",
	}
}

// Run delivers events until ctx ends.
func (f *FakeSource) Run(ctx context.Context) error {
	started, err := f.state.Start()
	if err != nil || !started {
		return err
	}
	defer f.state.Stop()

	f.handler.OnSessionReady(f.SessionID)
	if !f.SkipProfile {
		f.handler.OnProfileReady(f.Profile)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-f.events:
			f.handler.OnCommand(e.ev)
			close(e.ack)
		}
	}
}

// Send delivers one sample and returns after the handler processed it, or
// false when ctx ended first.
func (f *FakeSource) Send(ctx context.Context, label string, power float64, ts time.Time) bool {
	e := fakeEvent{ev: logic.NewCommandEvent(label, power, ts), ack: make(chan struct{})}
	select {
	case f.events <- e:
	case <-ctx.Done():
		return false
	}
	select {
	case <-e.ack:
		return true
	case <-ctx.Done():
		return false
	}
}

// State returns the run state.
func (f *FakeSource) State() runstate.State {
	return f.state.Load()
}
