package power

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// Default telemetry settings.
const (
	DefaultTelemetryThreshold = 0.3
	DefaultActionThreshold    = 0.5
	DefaultEmitInterval       = 100 * time.Millisecond
)

// StatusLine is one human-readable meter update.
type StatusLine struct {
	Timestamp time.Time
	Power     float64
	Average   float64
	Max       float64
	Label     logic.Label
	Raw       string
	Tier      logic.Tier
}

// Sink receives emitted status lines. Implementations must not block for long:
// they run on the event receiver path.
type Sink interface {
	EmitStatus(line StatusLine)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(line StatusLine)

// EmitStatus calls f.
func (f SinkFunc) EmitStatus(line StatusLine) {
	f(line)
}

// Settings are the runtime-tunable reporter knobs.
type Settings struct {
	// TelemetryThreshold is the low threshold; readings at or above it are MED.
	TelemetryThreshold float64
	// ActionThreshold is the high threshold; readings at or above it are HIGH.
	ActionThreshold float64
	// EmitInterval is the minimum time between two status lines.
	EmitInterval time.Duration
}

// DefaultSettings returns the reporter defaults.
func DefaultSettings() Settings {
	return Settings{
		TelemetryThreshold: DefaultTelemetryThreshold,
		ActionThreshold:    DefaultActionThreshold,
		EmitInterval:       DefaultEmitInterval,
	}
}

// Monitor ingests readings into a History as fast as they arrive and emits
// status lines no more often than the configured interval.
type Monitor struct {
	history *History
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	settings Settings
	lastEmit time.Time
	emitted  int
	sinks    []Sink
}

// NewMonitor creates a Monitor over a fresh History of the given capacity.
// A nil logger disables logging; a nil clock uses time.Now.
func NewMonitor(capacity int, settings Settings, logger *zap.Logger, now func() time.Time) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		history:  NewHistory(capacity),
		log:      logger,
		now:      now,
		settings: settings,
	}
}

// AddSink registers a sink for emitted status lines.
func (m *Monitor) AddSink(s Sink) {
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// History exposes the underlying window for read-only consumers.
func (m *Monitor) History() *History {
	return m.history
}

// Settings returns the current reporter settings.
func (m *Monitor) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings swaps the reporter settings. Used by config reload.
func (m *Monitor) UpdateSettings(s Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
}

// AddReading appends a reading and, if more than EmitInterval has passed since
// the last status line, emits a new one. It returns the line and whether it
// was emitted.
func (m *Monitor) AddReading(ev logic.CommandEvent) (StatusLine, bool) {
	m.history.Add(ev)

	now := m.now()

	m.mu.Lock()
	if m.emitted > 0 && now.Sub(m.lastEmit) <= m.settings.EmitInterval {
		m.mu.Unlock()
		return StatusLine{}, false
	}
	m.lastEmit = now
	m.emitted++
	settings := m.settings
	sinks := append([]Sink(nil), m.sinks...)
	m.mu.Unlock()

	stats := m.history.Stats()
	line := StatusLine{
		Timestamp: now,
		Power:     ev.Power,
		Average:   stats.Average,
		Max:       stats.Max,
		Label:     ev.Label,
		Raw:       ev.Raw,
		Tier:      logic.ClassifyTier(ev.Power, settings.TelemetryThreshold, settings.ActionThreshold),
	}

	m.log.Info("power",
		zap.Float64("power", line.Power),
		zap.Float64("avg", line.Average),
		zap.Float64("max", line.Max),
		zap.String("label", string(line.Label)),
		zap.String("tier", string(line.Tier)),
	)
	if line.Tier == logic.TierHigh {
		m.log.Info("action triggered", zap.String("label", string(line.Label)), zap.Float64("power", line.Power))
	}

	for _, s := range sinks {
		s.EmitStatus(line)
	}
	return line, true
}

// Emitted returns how many status lines have been emitted.
func (m *Monitor) Emitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emitted
}

// Stats returns the rolling statistics of the window.
func (m *Monitor) Stats() Stats {
	return m.history.Stats()
}

// LogStats writes a statistics summary. Used when control stops.
func (m *Monitor) LogStats() {
	s := m.history.Stats()
	if s.Count == 0 {
		m.log.Info("no power data available yet")
		return
	}
	labels := make([]string, len(s.RecentLabels))
	for i, l := range s.RecentLabels {
		labels[i] = string(l)
	}
	m.log.Info("power statistics",
		zap.Float64("avg", s.Average),
		zap.Float64("max", s.Max),
		zap.Float64("min", s.Min),
		zap.Int("count", s.Count),
		zap.Strings("recent", labels),
	)
}
