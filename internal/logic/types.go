// Package logic contains the pure decision logic for mental-command cursor control.
// This package has NO external dependencies (no pointer device, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"strings"
	"time"
)

// Label is a classified mental-command action.
type Label string

const (
	LabelNeutral Label = "neutral"
	LabelLeft    Label = "left"
	LabelRight   Label = "right"
	LabelLift    Label = "lift"
	LabelDrop    Label = "drop"
	LabelPush    Label = "push"
	LabelPull    Label = "pull"
	LabelUnknown Label = "unknown"
)

// ParseLabel normalizes a raw action string from the event source.
// Aliases: up = lift, down = drop, click = push.
// Anything unrecognized maps to LabelUnknown; that is not an error.
func ParseLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "neutral":
		return LabelNeutral
	case "left":
		return LabelLeft
	case "right":
		return LabelRight
	case "lift", "up":
		return LabelLift
	case "drop", "down":
		return LabelDrop
	case "push", "click":
		return LabelPush
	case "pull":
		return LabelPull
	default:
		return LabelUnknown
	}
}

// Known reports whether the label is part of the recognized set.
func (l Label) Known() bool {
	return l != LabelUnknown && l != ""
}

// CommandEvent is one classified sample from the event source.
// Raw keeps the label string as received, for logging.
type CommandEvent struct {
	Label     Label
	Raw       string
	Power     float64 // nominally [0,1], not clamped
	Timestamp time.Time
}

// NewCommandEvent builds an event from the raw source values.
func NewCommandEvent(raw string, power float64, ts time.Time) CommandEvent {
	return CommandEvent{
		Label:     ParseLabel(raw),
		Raw:       raw,
		Power:     power,
		Timestamp: ts,
	}
}

// IntentKind distinguishes the three possible interpretations.
type IntentKind string

const (
	IntentNoOp  IntentKind = "NOOP"
	IntentMove  IntentKind = "MOVE"
	IntentClick IntentKind = "CLICK"
)

// Intent is the interpreted effect of a command.
// DX and DY are only meaningful for IntentMove and are in pixels.
type Intent struct {
	Kind IntentKind
	DX   float64
	DY   float64
}

// NoOp is the zero-effect intent.
var NoOp = Intent{Kind: IntentNoOp}

// Click is the click intent.
var Click = Intent{Kind: IntentClick}

// Move returns a displacement intent.
func Move(dx, dy float64) Intent {
	return Intent{Kind: IntentMove, DX: dx, DY: dy}
}

// Tier is the qualitative level of an instantaneous power reading.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MED"
	TierHigh   Tier = "HIGH"
)

// ClassifyTier compares power against the telemetry (low) and action (high) thresholds.
// Below low is LOW, between is MED, at or above high is HIGH.
func ClassifyTier(power, low, high float64) Tier {
	switch {
	case power >= high:
		return TierHigh
	case power >= low:
		return TierMedium
	default:
		return TierLow
	}
}
