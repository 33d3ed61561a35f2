// Package status provides a thread-safe status tracker for the virtual-cursor
// daemon. It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs             int64
	PixelsPerTick      float64
	Proportional       bool
	ActionThreshold    float64
	TelemetryThreshold float64
	CooldownMs         int64
	HistoryCapacity    int
	StatusIntervalMs   int64
	HeartbeatMs        int64
	Broker             string
	HTTPAddr           string
}

// Session describes the event-source session.
type Session struct {
	State        runstate.State
	ID           string
	Profile      string
	SessionReady bool
	ProfileReady bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Session       Session
	Controller    runstate.State
	Power         power.Stats
	Loop          control.LoopStats
	LastCommand   *logic.CommandEvent
	LastTier      logic.Tier
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether actuation may start: the session exists and the
// profile is loaded.
func (s Snapshot) Ready() bool {
	return s.Session.SessionReady && s.Session.ProfileReady
}

// Collector fills live values into a snapshot copy. Collectors run on every
// Snapshot call, outside the tracker lock.
type Collector func(s *Snapshot)

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu         sync.RWMutex
	snap       Snapshot
	collectors []Collector
	now        func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// AddCollector registers a live-value collector.
func (t *Tracker) AddCollector(c Collector) {
	t.mu.Lock()
	t.collectors = append(t.collectors, c)
	t.mu.Unlock()
}

// SetSessionState records the event-source run state.
func (t *Tracker) SetSessionState(s runstate.State) {
	t.mu.Lock()
	t.snap.Session.State = s
	t.mu.Unlock()
}

// SetSessionReady records the session id once the session exists.
func (t *Tracker) SetSessionReady(id string) {
	t.mu.Lock()
	t.snap.Session.ID = id
	t.snap.Session.SessionReady = true
	t.mu.Unlock()
}

// SetProfileReady records the loaded profile.
func (t *Tracker) SetProfileReady(profile string) {
	t.mu.Lock()
	t.snap.Session.Profile = profile
	t.snap.Session.ProfileReady = true
	t.mu.Unlock()
}

// RecordCommand stores the newest command event.
func (t *Tracker) RecordCommand(ev logic.CommandEvent) {
	t.mu.Lock()
	t.snap.LastCommand = &ev
	t.mu.Unlock()
}

// RecordStatus stores the tier of the newest emitted status line.
func (t *Tracker) RecordStatus(line power.StatusLine) {
	t.mu.Lock()
	t.snap.LastTier = line.Tier
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// UpdateConfig replaces the displayed configuration after a reload.
func (t *Tracker) UpdateConfig(cfg Config) {
	t.mu.Lock()
	t.snap.Config = cfg
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastCommand != nil {
		ev := *s.LastCommand
		s.LastCommand = &ev
	}
	collectors := t.collectors
	t.mu.RUnlock()

	for _, c := range collectors {
		c(&s)
	}
	s.Now = t.now()
	return s
}
