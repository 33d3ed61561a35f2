package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/mqtt"
	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
)

type sample struct {
	label string
	power float64
}

// pipeline is the daemon's data flow driven by hand, one event and one tick
// at a time, with no goroutines.
type pipeline struct {
	now       time.Time
	dev       *pointer.FakeDevice
	poller    *pointer.Poller
	slot      *control.Slot
	settings  *control.SettingsStore
	loop      *control.Loop
	monitor   *power.Monitor
	tracker   *status.Tracker
	publisher *mqtt.FakePublisher
}

func newPipeline(start time.Time) *pipeline {
	p := &pipeline{
		now:       start,
		dev:       pointer.NewFakeDevice(pointer.Point{X: 500, Y: 500}),
		slot:      control.NewSlot(),
		settings:  control.NewSettingsStore(control.DefaultSettings()),
		publisher: mqtt.NewFakePublisher(),
	}
	clock := func() time.Time { return p.now }
	p.poller = pointer.NewPoller(p.dev, 0, clock, nil)
	p.poller.Poll()

	p.monitor = power.NewMonitor(power.DefaultCapacity, power.DefaultSettings(), nil, clock)
	p.tracker = status.NewTracker(start, status.Config{TickMs: 10})
	p.monitor.AddSink(power.SinkFunc(func(line power.StatusLine) { p.publisher.PublishStatus(line) }))
	p.monitor.AddSink(power.SinkFunc(p.tracker.RecordStatus))

	p.loop = control.NewLoop(control.LoopConfig{
		Device:   p.dev,
		Slot:     p.slot,
		Movement: p.poller,
		Expect:   p.poller,
		Settings: p.settings,
		Now:      clock,
		Hook:     control.HookFunc(func(a control.Actuation) { p.publisher.PublishActuation(a) }),
	})
	return p
}

// event runs the decision path for one sample.
func (p *pipeline) event(s sample) {
	ev := logic.NewCommandEvent(s.label, s.power, p.now)
	p.monitor.AddReading(ev)
	p.tracker.RecordCommand(ev)
	if logic.ShouldSuppress(ev.Timestamp, p.poller.LastMovement(), p.settings.Load().Cooldown) {
		return
	}
	p.slot.Store(ev)
}

// tick advances the clock, polls the pointer and runs one loop step.
func (p *pipeline) tick(d time.Duration) {
	p.now = p.now.Add(d)
	p.poller.Poll()
	p.loop.Step()
}

// TestIntegrationFullFlow tests the complete flow from command events to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newPipeline(start)

	steps := []struct {
		sample sample
		ticks  int
	}{
		{sample{"neutral", 0.1}, 2}, // nothing
		{sample{"right", 0.6}, 3},   // 3 moves of 6px
		{sample{"neutral", 0.9}, 1}, // stop
		{sample{"up", 1.0}, 2},      // 2 moves of 10px up
		{sample{"click", 0.8}, 3},   // one click
	}
	for _, s := range steps {
		p.event(s.sample)
		for i := 0; i < s.ticks; i++ {
			p.tick(10 * time.Millisecond)
		}
	}

	pos, _ := p.dev.Position()
	if want := (pointer.Point{X: 518, Y: 480}); pos != want {
		t.Errorf("final position: got %v, want %v", pos, want)
	}
	if p.dev.Clicks() != 1 {
		t.Errorf("clicks: got %d, want 1", p.dev.Clicks())
	}

	acts := p.publisher.Actuations()
	if len(acts) != 6 {
		t.Fatalf("expected 6 actuations, got %d", len(acts))
	}
	if acts[0].Intent.Kind != logic.IntentMove || acts[0].To.X != 506 {
		t.Errorf("actuation 0: got %+v", acts[0])
	}
	if acts[3].Intent.Kind != logic.IntentMove || acts[3].To.Y != 490 {
		t.Errorf("actuation 3: got %+v", acts[3])
	}
	if acts[5].Intent.Kind != logic.IntentClick {
		t.Errorf("actuation 5: expected CLICK, got %s", acts[5].Intent.Kind)
	}

	// Verify JSON payloads
	for i, a := range acts {
		payload, err := mqtt.FormatIntentPayload(a)
		if err != nil {
			t.Fatalf("actuation %d: %v", i, err)
		}
		var parsed mqtt.IntentPayload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Intent.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Intent.Seq == 0 {
			t.Errorf("payload %d: missing seq", i)
		}
	}

	stats := p.monitor.Stats()
	if stats.Count != len(steps) {
		t.Errorf("readings: got %d, want %d", stats.Count, len(steps))
	}
	if stats.Max != 1.0 {
		t.Errorf("max: got %v, want 1.0", stats.Max)
	}
}

// TestIntegrationBelowThreshold verifies weak commands never reach the pointer.
func TestIntegrationBelowThreshold(t *testing.T) {
	p := newPipeline(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	for _, s := range []sample{{"left", 0.2}, {"push", 0.5}, {"drop", 0.49}} {
		p.event(s)
		p.tick(10 * time.Millisecond)
	}

	if len(p.dev.Moves()) != 0 || p.dev.Clicks() != 0 {
		t.Errorf("expected no actuation, got moves=%v clicks=%d", p.dev.Moves(), p.dev.Clicks())
	}
	if len(p.publisher.Actuations()) != 0 {
		t.Errorf("expected no published intents, got %d", len(p.publisher.Actuations()))
	}
}

// TestIntegrationHumanMovementCooldown verifies a human at the pointer pauses actuation.
func TestIntegrationHumanMovementCooldown(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newPipeline(start)

	// Human moves the pointer; the poll at t0 records it.
	p.dev.SetPosition(pointer.Point{X: 200, Y: 200})
	p.poller.Poll()

	p.now = start.Add(time.Second)
	p.event(sample{"lift", 0.9})
	p.tick(10 * time.Millisecond)
	if len(p.dev.Moves()) != 0 {
		t.Fatalf("expected no move during cooldown, got %v", p.dev.Moves())
	}

	p.now = start.Add(4 * time.Second)
	p.event(sample{"lift", 0.9})
	p.tick(10 * time.Millisecond)

	pos, _ := p.dev.Position()
	if want := (pointer.Point{X: 200, Y: 191}); pos != want {
		t.Errorf("position after cooldown: got %v, want %v", pos, want)
	}
	if !p.poller.LastMovement().Equal(start) {
		t.Errorf("automated move counted as human movement: %v", p.poller.LastMovement())
	}
}

// TestIntegrationStatusRateLimit verifies status lines are capped while every reading is kept.
func TestIntegrationStatusRateLimit(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newPipeline(start)

	// 20 readings 10ms apart: one status line per >100ms.
	for i := 0; i < 20; i++ {
		p.event(sample{"left", 0.4})
		p.now = p.now.Add(10 * time.Millisecond)
	}

	lines := p.publisher.StatusLines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 status lines, got %d", len(lines))
	}
	if lines[0].Tier != logic.TierMedium {
		t.Errorf("tier: got %s, want MED", lines[0].Tier)
	}
	if p.monitor.Stats().Count != 20 {
		t.Errorf("readings: got %d, want 20", p.monitor.Stats().Count)
	}
	if tier := p.tracker.Snapshot().LastTier; tier != logic.TierMedium {
		t.Errorf("tracker tier: got %s, want MED", tier)
	}
}

// TestIntegrationPublishFailureDoesNotCrash verifies publish errors never stop actuation.
func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	p := newPipeline(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	p.publisher.SetErrors(errTest, errTest)

	p.event(sample{"right", 1.0})
	p.tick(10 * time.Millisecond)

	pos, _ := p.dev.Position()
	if pos.X != 510 {
		t.Errorf("expected move despite publish failure, got %v", pos)
	}
}

// TestIntegrationShutdownPayloadFormat verifies the exact JSON structure for shutdown events.
func TestIntegrationShutdownPayloadFormat(t *testing.T) {
	publisher := mqtt.NewFakePublisher()

	publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     mqtt.EventShutdown,
		Reason:    "SIGTERM",
	})

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if got := string(publisher.SystemPayloads()[0]); got != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", got, expected)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("broker down")
