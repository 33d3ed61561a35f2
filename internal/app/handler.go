package app

import (
	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
)

// OnSessionReady implements cortex.Handler.
func (a *App) OnSessionReady(sessionID string) {
	a.tracker.SetSessionReady(sessionID)
	a.sessionReady.Store(true)
	a.log.Info("session ready", zap.String("session", sessionID))
	a.maybeAutoStart()
}

// OnProfileReady implements cortex.Handler.
func (a *App) OnProfileReady(profile string) {
	a.tracker.SetProfileReady(profile)
	a.profileReady.Store(true)
	a.log.Info("profile loaded", zap.String("profile", profile))
	a.maybeAutoStart()
}

func (a *App) maybeAutoStart() {
	a.mu.Lock()
	auto := a.cfg.Control.AutoStart
	a.mu.Unlock()
	if !auto || !a.Ready() {
		return
	}
	if err := a.RequestStart(); err != nil {
		a.log.Warn("could not start mouse control", zap.Error(err))
	}
}

// OnCommand implements cortex.Handler. It is the decision path: every
// sample is recorded, then published to the control loop unless a human
// moved the pointer within the cooldown.
func (a *App) OnCommand(ev logic.CommandEvent) {
	a.monitor.AddReading(ev)
	a.tracker.RecordCommand(ev)

	if !ev.Label.Known() {
		a.log.Debug("unrecognized command label",
			zap.String("label", ev.Raw),
			zap.Float64("power", ev.Power),
			zap.Time("ts", ev.Timestamp),
		)
	}

	st := a.settings.Load()
	if logic.ShouldSuppress(ev.Timestamp, a.poller.LastMovement(), st.Cooldown) {
		a.dropped.Inc()
		a.log.Debug("command dropped during movement cooldown",
			zap.String("label", string(ev.Label)),
			zap.Float64("power", ev.Power),
			zap.Time("ts", ev.Timestamp),
		)
		return
	}
	a.slot.Store(ev)
}

// Dropped returns how many commands the decision path discarded because of
// recent human movement.
func (a *App) Dropped() int64 {
	return a.dropped.Load()
}
