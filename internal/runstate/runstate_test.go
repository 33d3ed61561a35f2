package runstate

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsNotStarted(t *testing.T) {
	var m Machine
	assert.Equal(t, NotStarted, m.Load())
	assert.False(t, m.Running())
}

func TestStartIsIdempotent(t *testing.T) {
	var m Machine

	started, err := m.Start()
	assert.NoError(t, err)
	assert.True(t, started)

	started, err = m.Start()
	assert.NoError(t, err)
	assert.False(t, started, "second start must not report a launch")
	assert.Equal(t, Running, m.Load())
}

func TestStopAfterStart(t *testing.T) {
	var m Machine
	m.Start()

	assert.True(t, m.Stop())
	assert.False(t, m.Stop(), "second stop is a no-op")
	assert.Equal(t, Stopped, m.Load())
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	var m Machine
	assert.False(t, m.Stop())
	assert.Equal(t, NotStarted, m.Load())
}

func TestStartAfterStop(t *testing.T) {
	var m Machine
	m.Start()
	m.Stop()

	started, err := m.Start()
	assert.False(t, started)
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestConcurrentStartLaunchesOnce(t *testing.T) {
	var m Machine
	var wg sync.WaitGroup
	var mu sync.Mutex
	launches := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Start(); ok {
				mu.Lock()
				launches++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, launches)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NOT_STARTED", NotStarted.String())
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, "STOPPED", Stopped.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
}
