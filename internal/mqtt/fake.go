package mqtt

import (
	"sync"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
)

// FakePublisher records published messages for test assertions.
// Safe for concurrent use: the control loop and the event path publish from
// different goroutines.
type FakePublisher struct {
	mu sync.Mutex

	actuations     []control.Actuation
	statusLines    []power.StatusLine
	systemEvents   []SystemEvent
	payloads       [][]byte
	systemPayloads [][]byte

	publishErr error
	systemErr  error
	closed     bool
	connected  bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishActuation records the intent.
func (f *FakePublisher) PublishActuation(a control.Actuation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	payload, err := FormatIntentPayload(a)
	if err != nil {
		return err
	}
	f.actuations = append(f.actuations, a)
	f.payloads = append(f.payloads, payload)
	return nil
}

// PublishStatus records the status line.
func (f *FakePublisher) PublishStatus(line power.StatusLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	payload, err := FormatStatusPayload(line)
	if err != nil {
		return err
	}
	f.statusLines = append(f.statusLines, line)
	f.payloads = append(f.payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.systemErr != nil {
		return f.systemErr
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected controls IsConnected.
func (f *FakePublisher) SetConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

// SetErrors makes intent/status publishing and system publishing fail.
func (f *FakePublisher) SetErrors(publish, system error) {
	f.mu.Lock()
	f.publishErr = publish
	f.systemErr = system
	f.mu.Unlock()
}

// Actuations returns the recorded intents.
func (f *FakePublisher) Actuations() []control.Actuation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]control.Actuation(nil), f.actuations...)
}

// StatusLines returns the recorded status lines.
func (f *FakePublisher) StatusLines() []power.StatusLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]power.StatusLine(nil), f.statusLines...)
}

// SystemEvents returns the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Payloads returns the intent and status payloads in publish order.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// SystemPayloads returns the system event payloads.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears everything recorded.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actuations = nil
	f.statusLines = nil
	f.systemEvents = nil
	f.payloads = nil
	f.systemPayloads = nil
	f.publishErr = nil
	f.systemErr = nil
	f.closed = false
	f.connected = false
}
