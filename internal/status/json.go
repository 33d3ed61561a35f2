package status

import (
	"encoding/json"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Controller    string       `json:"controller"`
	Session       SessionJSON  `json:"session"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Power         PowerJSON    `json:"power"`
	Loop          LoopJSON     `json:"loop"`
	LastCommand   *CommandJSON `json:"last_command,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SessionJSON is the JSON representation of the event-source session.
type SessionJSON struct {
	State        string `json:"state"`
	ID           string `json:"id,omitempty"`
	Profile      string `json:"profile,omitempty"`
	SessionReady bool   `json:"session_ready"`
	ProfileReady bool   `json:"profile_ready"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// PowerJSON is the JSON representation of the rolling power statistics.
type PowerJSON struct {
	Average      float64  `json:"average"`
	Max          float64  `json:"max"`
	Min          float64  `json:"min"`
	Count        int      `json:"count"`
	Capacity     int      `json:"capacity"`
	RecentLabels []string `json:"recent_labels"`
	Tier         string   `json:"tier,omitempty"`
}

// LoopJSON is the JSON representation of the control loop counters.
type LoopJSON struct {
	Ticks      int64 `json:"ticks"`
	Suppressed int64 `json:"suppressed"`
	Moves      int64 `json:"moves"`
	Clicks     int64 `json:"clicks"`
	Faults     int64 `json:"faults"`
}

// CommandJSON is the JSON representation of a command event.
type CommandJSON struct {
	Label     string  `json:"label"`
	Raw       string  `json:"raw"`
	Power     float64 `json:"power"`
	Timestamp string  `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs             int64   `json:"tick_ms"`
	PixelsPerTick      float64 `json:"pixels_per_tick"`
	Proportional       bool    `json:"proportional"`
	ActionThreshold    float64 `json:"action_threshold"`
	TelemetryThreshold float64 `json:"telemetry_threshold"`
	CooldownMs         int64   `json:"cooldown_ms"`
	HistoryCapacity    int     `json:"history_capacity"`
	StatusIntervalMs   int64   `json:"status_interval_ms"`
	HeartbeatMs        int64   `json:"heartbeat_ms"`
	Broker             string  `json:"broker"`
	HTTPAddr           string  `json:"http_addr"`
}

// StatsJSON is the envelope of the /stats endpoint.
type StatsJSON struct {
	Stats StatsInner `json:"stats"`
}

// StatsInner is the rolling statistics plus the controller state.
type StatsInner struct {
	PowerJSON
	Controller string `json:"controller"`
	Timestamp  string `json:"timestamp"`
}

func labelStrings(labels []logic.Label) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, string(l))
	}
	return out
}

func buildPower(snap Snapshot) PowerJSON {
	return PowerJSON{
		Average:      snap.Power.Average,
		Max:          snap.Power.Max,
		Min:          snap.Power.Min,
		Count:        snap.Power.Count,
		Capacity:     snap.Power.Capacity,
		RecentLabels: labelStrings(snap.Power.RecentLabels),
		Tier:         string(snap.LastTier),
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:      snap.Ready(),
		Controller: snap.Controller.String(),
		Session: SessionJSON{
			State:        snap.Session.State.String(),
			ID:           snap.Session.ID,
			Profile:      snap.Session.Profile,
			SessionReady: snap.Session.SessionReady,
			ProfileReady: snap.Session.ProfileReady,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Power:         buildPower(snap),
		Loop: LoopJSON{
			Ticks:      snap.Loop.Ticks,
			Suppressed: snap.Loop.Suppressed,
			Moves:      snap.Loop.Moves,
			Clicks:     snap.Loop.Clicks,
			Faults:     snap.Loop.Faults,
		},
		Config: ConfigJSON{
			TickMs:             snap.Config.TickMs,
			PixelsPerTick:      snap.Config.PixelsPerTick,
			Proportional:       snap.Config.Proportional,
			ActionThreshold:    snap.Config.ActionThreshold,
			TelemetryThreshold: snap.Config.TelemetryThreshold,
			CooldownMs:         snap.Config.CooldownMs,
			HistoryCapacity:    snap.Config.HistoryCapacity,
			StatusIntervalMs:   snap.Config.StatusIntervalMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
		},
	}
	if c := snap.LastCommand; c != nil {
		inner.LastCommand = &CommandJSON{
			Label:     string(c.Label),
			Raw:       c.Raw,
			Power:     c.Power,
			Timestamp: c.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatStats returns the JSON body of the /stats endpoint.
func FormatStats(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatsJSON{Stats: StatsInner{
		PowerJSON:  buildPower(snap),
		Controller: snap.Controller.String(),
		Timestamp:  snap.Now.UTC().Format(time.RFC3339),
	}}, "", "  ")
	return data
}

// Build returns the status envelope for snap, for callers that embed it in
// their own messages.
func Build(snap Snapshot) StatusJSON {
	return StatusJSON{Status: buildInner(snap)}
}
