package pointer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is the default position polling interval.
const DefaultPollInterval = 100 * time.Millisecond

// State is the last observed pointer position and when it last changed
// because of a human.
type State struct {
	Position     Point
	LastMovement time.Time // zero until a human movement is observed
	Known        bool      // false until the first successful poll
}

// Poller owns State. It polls the device and updates LastMovement only when
// the position actually differs from the previous poll and the difference is
// not a move the control loop announced through Expect.
// It is the only writer of LastMovement.
type Poller struct {
	dev      Device
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu    sync.RWMutex
	state State
	// expected holds announced targets not yet observed, oldest first.
	expected []Point
}

// maxExpected bounds the announced moves remembered between two polls.
const maxExpected = 4

// NewPoller creates a Poller. A nil clock uses time.Now; a nil logger discards.
func NewPoller(dev Device, interval time.Duration, now func() time.Time, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{dev: dev, interval: interval, now: now, log: logger}
}

// Expect announces an automated move to p so the next poll that observes p
// does not count as human movement. Call it before issuing the move.
func (p *Poller) Expect(pt Point) {
	p.mu.Lock()
	if len(p.expected) == maxExpected {
		p.expected = append(p.expected[:0], p.expected[1:]...)
	}
	p.expected = append(p.expected, pt)
	p.mu.Unlock()
}

// Poll performs one poll-and-diff. It reports whether a human movement was
// recorded.
func (p *Poller) Poll() (bool, error) {
	pos, err := p.dev.Position()
	if err != nil {
		return false, err
	}
	t := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.Known {
		p.state.Position = pos
		p.state.Known = true
		return false, nil
	}
	if pos == p.state.Position {
		return false, nil
	}
	for i, e := range p.expected {
		if e == pos {
			p.state.Position = pos
			// Targets announced after this one are still in flight.
			p.expected = append(p.expected[:0], p.expected[i+1:]...)
			return false, nil
		}
	}

	p.state.Position = pos
	p.state.LastMovement = t
	p.expected = p.expected[:0]
	return true, nil
}

// Run polls until ctx is done. Transient errors are logged; an unavailable
// device ends the poller with that error.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(); err != nil {
			if IsUnavailable(err) {
				return err
			}
			p.log.Warn("pointer poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// State returns a copy of the current pointer state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastMovement returns the time of the last observed human movement.
func (p *Poller) LastMovement() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.LastMovement
}
