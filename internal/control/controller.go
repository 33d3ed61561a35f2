package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
)

// CancellationSource blocks until a human asks to stop (ESC key, stop button).
// Wait returns nil on a cancellation request and ctx.Err() when ctx ends first.
type CancellationSource interface {
	Wait(ctx context.Context) error
}

// TickerFunc creates a tick channel and its stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Controller owns the start and stop of the control loop and of the
// cancellation listener.
type Controller struct {
	loop     *Loop
	interval time.Duration
	cancel   CancellationSource
	ticker   TickerFunc
	log      *zap.Logger
	onStop   func(err error)

	state runstate.Machine
	done  chan struct{}

	mu  sync.Mutex
	err error
}

// ControllerConfig wires a Controller. Cancel may be nil, in which case only
// an external interrupt (context cancellation) or Stop ends the loop.
type ControllerConfig struct {
	Loop     *Loop
	Interval time.Duration
	Cancel   CancellationSource
	Ticker   TickerFunc
	Logger   *zap.Logger
	// OnStop runs once after the loop has exited and the failsafe is restored.
	OnStop func(err error)
}

// NewController creates a Controller in the NotStarted state.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Ticker == nil {
		cfg.Ticker = realTicker
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{
		loop:     cfg.Loop,
		interval: cfg.Interval,
		cancel:   cfg.Cancel,
		ticker:   cfg.Ticker,
		log:      cfg.Logger,
		onStop:   cfg.OnStop,
		done:     make(chan struct{}),
	}
}

// Start launches the control loop and the cancellation listener. Calling it
// while running logs and returns nil without launching anything. Calling it
// after the controller stopped returns runstate.ErrStopped.
func (c *Controller) Start(ctx context.Context) error {
	started, err := c.state.Start()
	if err != nil {
		c.log.Warn("mouse control already stopped, not restarting")
		return err
	}
	if !started {
		c.log.Info("mouse control already running")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	tick, stopTicker := c.ticker(c.interval)

	go func() {
		defer close(c.done)
		defer cancel()

		err := c.loop.Run(loopCtx, tick, c.state.Running)
		stopTicker()
		c.state.Stop()

		c.mu.Lock()
		c.err = err
		c.mu.Unlock()

		if err != nil {
			c.log.Error("control loop ended", zap.Error(err))
		}
		if c.onStop != nil {
			c.onStop(err)
		}
	}()

	if c.cancel != nil {
		go c.listen(loopCtx)
	} else {
		c.log.Info("no cancellation source, use Ctrl+C to stop")
	}
	return nil
}

func (c *Controller) listen(ctx context.Context) {
	err := c.cancel.Wait(ctx)
	switch {
	case err == nil:
		c.log.Info("cancellation requested, stopping mouse control")
		c.Stop()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		c.log.Warn("cancellation source failed", zap.Error(err))
	}
}

// Stop asks the loop to end at its next tick. Safe to call any number of
// times and concurrently with Start.
func (c *Controller) Stop() {
	if c.state.Stop() {
		c.log.Info("stop requested")
	}
}

// State returns the controller run state.
func (c *Controller) State() runstate.State {
	return c.state.Load()
}

// Done is closed once a started loop has fully exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the loop exits or ctx ends, and returns the loop error.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error the loop ended with, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stats returns the loop counters.
func (c *Controller) Stats() LoopStats {
	return c.loop.Stats()
}
