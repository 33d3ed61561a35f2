package pointer

import (
	"context"
	"errors"
	"testing"
	"time"
)

var pollStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func TestPollerFirstPollIsBaseline(t *testing.T) {
	dev := NewFakeDevice(Point{X: 10, Y: 10})
	clock := &stepClock{t: pollStart}
	p := NewPoller(dev, 0, clock.now, nil)

	moved, err := p.Poll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved {
		t.Error("first poll must not count as movement")
	}
	s := p.State()
	if !s.Known || s.Position != (Point{X: 10, Y: 10}) {
		t.Errorf("state: got %+v", s)
	}
	if !s.LastMovement.IsZero() {
		t.Errorf("LastMovement should be zero, got %v", s.LastMovement)
	}
}

func TestPollerUpdatesOnlyOnChange(t *testing.T) {
	dev := NewFakeDevice(Point{X: 10, Y: 10})
	clock := &stepClock{t: pollStart}
	p := NewPoller(dev, 0, clock.now, nil)
	p.Poll()

	dev.SetPosition(Point{X: 20, Y: 10})
	clock.t = pollStart.Add(time.Second)
	moved, _ := p.Poll()
	if !moved {
		t.Fatal("expected movement")
	}
	if !p.LastMovement().Equal(clock.t) {
		t.Errorf("LastMovement: got %v, want %v", p.LastMovement(), clock.t)
	}

	// Unchanged position leaves the timestamp alone.
	clock.t = pollStart.Add(5 * time.Second)
	moved, _ = p.Poll()
	if moved {
		t.Error("unchanged position reported as movement")
	}
	if !p.LastMovement().Equal(pollStart.Add(time.Second)) {
		t.Errorf("LastMovement changed on idle poll: %v", p.LastMovement())
	}
}

func TestPollerIgnoresExpectedMove(t *testing.T) {
	dev := NewFakeDevice(Point{X: 10, Y: 10})
	clock := &stepClock{t: pollStart}
	p := NewPoller(dev, 0, clock.now, nil)
	p.Poll()

	target := Point{X: 0, Y: 10}
	p.Expect(target)
	dev.MoveTo(target)

	moved, _ := p.Poll()
	if moved {
		t.Error("announced move counted as human movement")
	}
	if p.State().Position != target {
		t.Errorf("baseline not advanced: %v", p.State().Position)
	}

	// A later different position is human again.
	dev.SetPosition(Point{X: 50, Y: 50})
	moved, _ = p.Poll()
	if !moved {
		t.Error("expected human movement after expected move was consumed")
	}
}

func TestPollerPollBetweenExpectAndMove(t *testing.T) {
	dev := NewFakeDevice(Point{X: 100, Y: 100})
	clock := &stepClock{t: pollStart}
	p := NewPoller(dev, 0, clock.now, nil)
	p.Poll()

	first := Point{X: 90, Y: 100}
	p.Expect(first)
	dev.MoveTo(first)

	// The next move is announced but not yet applied when the poll runs.
	second := Point{X: 80, Y: 100}
	p.Expect(second)
	if moved, _ := p.Poll(); moved {
		t.Error("previous automated target counted as human movement")
	}

	dev.MoveTo(second)
	if moved, _ := p.Poll(); moved {
		t.Error("in-flight target counted as human movement")
	}
	if !p.LastMovement().IsZero() {
		t.Errorf("LastMovement set by automated moves: %v", p.LastMovement())
	}
}

func TestPollerPositionError(t *testing.T) {
	dev := NewFakeDevice(Point{})
	dev.SetErrors(errors.New("flaky"), nil, nil)
	p := NewPoller(dev, 0, nil, nil)

	if _, err := p.Poll(); err == nil {
		t.Error("expected error")
	}
	if p.State().Known {
		t.Error("state must stay unknown after a failed poll")
	}
}

func TestPollerRunStopsOnUnavailable(t *testing.T) {
	dev := NewFakeDevice(Point{})
	dev.SetErrors(ErrUnavailable, nil, nil)
	p := NewPoller(dev, time.Millisecond, nil, nil)

	err := p.Run(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("Run: got %v, want ErrUnavailable", err)
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	dev := NewFakeDevice(Point{})
	p := NewPoller(dev, time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerClampedTargetIsNotHuman(t *testing.T) {
	dev := NewFakeDevice(Point{X: 3, Y: 500})
	dev.SetBounds(Size{W: 1920, H: 1080})
	p := NewPoller(dev, time.Millisecond, func() time.Time { return pollStart }, nil)
	if _, err := p.Poll(); err != nil {
		t.Fatalf("baseline poll: %v", err)
	}

	bounds, _ := dev.Bounds()
	target := bounds.Clamp(Point{X: -6, Y: 500})
	p.Expect(target)
	if err := dev.MoveTo(Point{X: -6, Y: 500}); err != nil {
		t.Fatalf("move: %v", err)
	}

	human, err := p.Poll()
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if human {
		t.Error("clamped move counted as human movement")
	}
	if !p.LastMovement().IsZero() {
		t.Errorf("last movement: got %v, want zero", p.LastMovement())
	}
}
