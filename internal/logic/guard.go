package logic

import "time"

// ShouldSuppress reports whether command processing is suppressed because a
// human moved the pointer within the cooldown window ending at now.
// It is true iff lastHumanMovement > now - cooldown. A zero lastHumanMovement
// (no movement observed yet) never suppresses.
func ShouldSuppress(now, lastHumanMovement time.Time, cooldown time.Duration) bool {
	if lastHumanMovement.IsZero() {
		return false
	}
	return lastHumanMovement.After(now.Add(-cooldown))
}

// CooldownRemaining returns how long processing stays suppressed, or zero.
func CooldownRemaining(now, lastHumanMovement time.Time, cooldown time.Duration) time.Duration {
	if !ShouldSuppress(now, lastHumanMovement, cooldown) {
		return 0
	}
	return lastHumanMovement.Add(cooldown).Sub(now)
}
