// Package mqtt publishes actuated intents, status lines and lifecycle events
// to an MQTT broker, with a fake for tests.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
)

// Topics.
const (
	TopicIntents = "bci/cursor/intents"
	TopicStatus  = "bci/cursor/status"
	TopicSystem  = "bci/cursor/system"
)

// Lifecycle event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes telemetry to MQTT. Errors are reported, never fatal.
type Publisher interface {
	// PublishActuation sends one applied Move or Click.
	PublishActuation(a control.Actuation) error

	// PublishStatus sends a rate-limited power status line.
	PublishStatus(line power.StatusLine) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // e.g. "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// IntentPayload is the message for an applied intent.
type IntentPayload struct {
	Intent IntentInner `json:"intent"`
}

// IntentInner contains the intent details.
type IntentInner struct {
	Timestamp string  `json:"timestamp"`
	Kind      string  `json:"kind"`
	DX        int     `json:"dx"`
	DY        int     `json:"dy"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Label     string  `json:"label"`
	Power     float64 `json:"power"`
	Seq       uint64  `json:"seq"`
}

// FormatIntentPayload creates the JSON payload for an applied intent.
func FormatIntentPayload(a control.Actuation) ([]byte, error) {
	return json.Marshal(IntentPayload{
		Intent: IntentInner{
			Timestamp: a.At.UTC().Format(time.RFC3339Nano),
			Kind:      string(a.Intent.Kind),
			DX:        a.To.X - a.From.X,
			DY:        a.To.Y - a.From.Y,
			X:         a.To.X,
			Y:         a.To.Y,
			Label:     string(a.Command.Label),
			Power:     a.Command.Power,
			Seq:       a.Command.Seq,
		},
	})
}

// StatusPayload is the message for a power status line.
type StatusPayload struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status line details.
type StatusInner struct {
	Timestamp string  `json:"timestamp"`
	Power     float64 `json:"power"`
	Average   float64 `json:"average"`
	Max       float64 `json:"max"`
	Label     string  `json:"label"`
	Tier      string  `json:"tier"`
}

// FormatStatusPayload creates the JSON payload for a status line.
func FormatStatusPayload(line power.StatusLine) ([]byte, error) {
	return json.Marshal(StatusPayload{
		Status: StatusInner{
			Timestamp: line.Timestamp.UTC().Format(time.RFC3339Nano),
			Power:     line.Power,
			Average:   line.Average,
			Max:       line.Max,
			Label:     string(line.Label),
			Tier:      string(line.Tier),
		},
	})
}

// SystemPayload is the message for simple system events (LWT, RECONNECTED)
// that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
