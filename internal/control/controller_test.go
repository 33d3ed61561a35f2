package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
)

// manualTicker hands out a single channel the test drives.
type manualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	created int
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) fn(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	return m.ch, func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
	}
}

func (m *manualTicker) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

func (m *manualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// chanCancel returns nil from Wait when its channel is closed.
type chanCancel struct {
	ch chan struct{}
}

func (c chanCancel) Wait(ctx context.Context) error {
	select {
	case <-c.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}
}

func newTestController(t *testing.T, h *harness, tk *manualTicker, cancel CancellationSource) *Controller {
	t.Helper()
	return NewController(ControllerConfig{
		Loop:   h.loop,
		Cancel: cancel,
		Ticker: tk.fn,
	})
}

func TestControllerStartStop(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)
	assert.Equal(t, runstate.NotStarted, c.State())

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, runstate.Running, c.State())

	h.store("right", 1.0, t0)
	tk.ch <- t0
	tk.ch <- t0

	c.Stop()
	// Wake the loop so it observes the stop.
	select {
	case tk.ch <- t0:
	case <-c.Done():
	}
	waitDone(t, c)

	assert.Equal(t, runstate.Stopped, c.State())
	assert.NoError(t, c.Err())
	assert.True(t, tk.Stopped())
	assert.True(t, h.dev.Failsafe())
	assert.Equal(t, []bool{false, true}, h.dev.FailsafeHistory())
	assert.GreaterOrEqual(t, len(h.dev.Moves()), 2)
}

func TestControllerStartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 1, tk.Created(), "only one loop may run")

	c.Stop()
	waitDoneWithTick(t, c, tk)
	assert.Equal(t, []bool{false, true}, h.dev.FailsafeHistory())
}

func waitDoneWithTick(t *testing.T, c *Controller, tk *manualTicker) {
	t.Helper()
	select {
	case tk.ch <- t0:
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop neither ticked nor stopped")
	}
	waitDone(t, c)
}

func TestControllerStartAfterStop(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)

	require.NoError(t, c.Start(context.Background()))
	c.Stop()
	waitDoneWithTick(t, c, tk)

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, runstate.ErrStopped)
	assert.Equal(t, 1, tk.Created())
}

func TestControllerStopBeforeStart(t *testing.T) {
	h := newHarness(t)
	c := newTestController(t, h, newManualTicker(), nil)
	c.Stop()
	c.Stop()
	assert.Equal(t, runstate.NotStarted, c.State())
}

func TestControllerCancellationSource(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	esc := chanCancel{ch: make(chan struct{})}

	var stopErr error
	stopped := make(chan struct{})
	c := NewController(ControllerConfig{
		Loop:   h.loop,
		Cancel: esc,
		Ticker: tk.fn,
		OnStop: func(err error) {
			stopErr = err
			close(stopped)
		},
	})
	require.NoError(t, c.Start(context.Background()))

	close(esc.ch)
	require.Eventually(t, func() bool { return c.State() == runstate.Stopped }, 2*time.Second, time.Millisecond)
	waitDoneWithTick(t, c, tk)

	<-stopped
	assert.NoError(t, stopErr)
	assert.True(t, h.dev.Failsafe())
}

func TestControllerContextCancel(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	waitDone(t, c)
	assert.Equal(t, runstate.Stopped, c.State())
	assert.True(t, h.dev.Failsafe())
}

func TestControllerUnavailableDevice(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)
	h.dev.SetErrors(pointer.ErrUnavailable, nil, nil)
	h.store("left", 1.0, t0)

	require.NoError(t, c.Start(context.Background()))
	tk.ch <- t0
	waitDone(t, c)

	assert.Equal(t, runstate.Stopped, c.State())
	assert.True(t, pointer.IsUnavailable(c.Err()))
	assert.True(t, h.dev.Failsafe())
}

func TestControllerConcurrentStartStop(t *testing.T) {
	h := newHarness(t)
	tk := newManualTicker()
	c := newTestController(t, h, tk, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			c.Stop()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, tk.Created(), 1)
	if tk.Created() == 1 {
		c.Stop()
		waitDoneWithTick(t, c, tk)
		assert.Equal(t, runstate.Stopped, c.State())
	}
}

func TestControllerWaitHonorsContext(t *testing.T) {
	h := newHarness(t)
	c := newTestController(t, h, newManualTicker(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}
