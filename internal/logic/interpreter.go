package logic

import "math"

// Interpreter maps (label, power) pairs to intents.
type Interpreter struct {
	// ActionThreshold is the minimum power (exclusive) that produces an effect.
	ActionThreshold float64
	// PixelsPerTick is the displacement of one step along an axis.
	PixelsPerTick float64
	// Proportional multiplies the step by power instead of using a fixed step.
	Proportional bool
	// PullAsDown treats "pull" as a vertical-down command. Off by default,
	// in which case pull is a NoOp.
	PullAsDown bool
}

// Interpret resolves a single command. One event carries one label, so a
// Move only ever changes one axis. Push is a Click and never carries a displacement.
func (in Interpreter) Interpret(label Label, power float64) Intent {
	if math.IsNaN(power) || power <= in.ActionThreshold {
		return NoOp
	}

	scale := in.PixelsPerTick
	if in.Proportional {
		scale *= power
	}

	switch label {
	case LabelLeft:
		return Move(-scale, 0)
	case LabelRight:
		return Move(scale, 0)
	case LabelLift:
		return Move(0, -scale)
	case LabelDrop:
		return Move(0, scale)
	case LabelPull:
		if in.PullAsDown {
			return Move(0, scale)
		}
		return NoOp
	case LabelPush:
		return Click
	default:
		return NoOp
	}
}

// InterpretEvent is a convenience wrapper over Interpret.
func (in Interpreter) InterpretEvent(ev CommandEvent) Intent {
	return in.Interpret(ev.Label, ev.Power)
}
