package interrupt

import (
	"context"
	"sync"
)

// FakeSource is a test double fired by Trigger.
type FakeSource struct {
	once   sync.Once
	ch     chan struct{}
	mu     sync.Mutex
	err    error
	closed bool
}

// NewFakeSource creates an untriggered FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{ch: make(chan struct{})}
}

// Trigger releases every pending and future Wait.
func (f *FakeSource) Trigger() {
	f.once.Do(func() { close(f.ch) })
}

// Fail makes Wait return err immediately.
func (f *FakeSource) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Wait blocks until Trigger or ctx ends.
func (f *FakeSource) Wait(ctx context.Context) error {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case <-f.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the source closed.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
