package control

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
)

// MovementSource reports when a human last moved the pointer.
type MovementSource interface {
	LastMovement() time.Time
}

// Expecter is told about automated moves before they happen, so they are not
// mistaken for human movement. pointer.Poller implements it.
type Expecter interface {
	Expect(p pointer.Point)
}

// Actuation describes one successfully applied intent.
type Actuation struct {
	Command Command
	Intent  logic.Intent
	From    pointer.Point
	To      pointer.Point
	At      time.Time
}

// Hook observes applied intents. Called on the loop goroutine; must not block.
type Hook interface {
	OnActuation(a Actuation)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(a Actuation)

// OnActuation calls f.
func (f HookFunc) OnActuation(a Actuation) {
	f(a)
}

// LoopStats counts what the loop did. Values only grow.
type LoopStats struct {
	Ticks      int64
	Suppressed int64
	Moves      int64
	Clicks     int64
	Faults     int64
}

// Loop applies the latest command to the pointer device once per tick.
type Loop struct {
	dev      pointer.Device
	slot     *Slot
	movement MovementSource
	expect   Expecter
	settings *SettingsStore
	now      func() time.Time
	log      *zap.Logger
	hook     Hook

	// Owned by the loop goroutine.
	lastClickSeq uint64
	cancelledSeq uint64
	lastPos      pointer.Point

	ticks      atomic.Int64
	suppressed atomic.Int64
	moves      atomic.Int64
	clicks     atomic.Int64
	faults     atomic.Int64
}

// LoopConfig wires a Loop. Device, Slot, Movement and Settings are required.
type LoopConfig struct {
	Device   pointer.Device
	Slot     *Slot
	Movement MovementSource
	Expect   Expecter
	Settings *SettingsStore
	Now      func() time.Time
	Logger   *zap.Logger
	Hook     Hook
}

// NewLoop creates a Loop.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loop{
		dev:      cfg.Device,
		slot:     cfg.Slot,
		movement: cfg.Movement,
		expect:   cfg.Expect,
		settings: cfg.Settings,
		now:      cfg.Now,
		log:      cfg.Logger,
		hook:     cfg.Hook,
	}
}

// Run disables the device failsafe, then applies one Step per tick until ctx
// is done, tick is closed, active reports false, or the device becomes
// unavailable. The failsafe is re-enabled on every exit path, panics included.
//
// A stuck device call stalls the loop and therefore shutdown; ticks carry no
// timeout.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time, active func() bool) (err error) {
	if err := l.dev.SetFailsafe(false); err != nil {
		return fmt.Errorf("disable failsafe: %w", err)
	}
	l.log.Info("mouse control started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("control loop panic: %v", r)
		}
		if rerr := l.dev.SetFailsafe(true); rerr != nil {
			l.log.Error("failed to restore failsafe", zap.Error(rerr))
			if err == nil {
				err = fmt.Errorf("restore failsafe: %w", rerr)
			}
		}
		l.log.Info("mouse control stopped", zap.Error(err))
	}()

	for {
		if !active() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-tick:
			if !ok {
				return nil
			}
		}
		if !active() {
			return nil
		}

		if err := l.Step(); err != nil && pointer.IsUnavailable(err) {
			return err
		}
	}
}

// Step runs a single tick. The latest command is read once. Device faults are
// logged and returned; only unavailable-device faults should end the loop.
func (l *Loop) Step() error {
	l.ticks.Inc()
	now := l.now()
	st := l.settings.Load()
	cmd, ok := l.slot.Load()

	if logic.ShouldSuppress(now, l.movement.LastMovement(), st.Cooldown) {
		l.suppressed.Inc()
		// Anything stored before or during the cooldown is dropped, so motion
		// does not resume on a stale command once the cooldown expires.
		if ok {
			l.cancelledSeq = cmd.Seq
		}
		return nil
	}
	if !ok || cmd.Seq <= l.cancelledSeq {
		return nil
	}

	intent := st.Interpreter.Interpret(cmd.Label, cmd.Power)
	switch intent.Kind {
	case logic.IntentClick:
		if cmd.Seq == l.lastClickSeq {
			return nil
		}
		l.lastClickSeq = cmd.Seq
		return l.click(cmd, intent, now)
	case logic.IntentMove:
		return l.move(cmd, intent, now)
	default:
		return nil
	}
}

func (l *Loop) click(cmd Command, intent logic.Intent, now time.Time) error {
	pos, err := l.dev.Position()
	if err != nil {
		ferr := l.fault("position", cmd, err)
		if pointer.IsUnavailable(err) {
			return ferr
		}
		// The click does not need the position; report the last known one.
		pos = l.lastPos
	}
	l.lastPos = pos
	if err := l.dev.Click(); err != nil {
		return l.fault("click", cmd, err)
	}
	l.clicks.Inc()
	l.log.Info("click", zap.String("label", string(cmd.Label)), zap.Float64("power", cmd.Power))
	l.notify(Actuation{Command: cmd, Intent: intent, From: pos, To: pos, At: now})
	return nil
}

func (l *Loop) move(cmd Command, intent logic.Intent, now time.Time) error {
	dx := int(math.Round(intent.DX))
	dy := int(math.Round(intent.DY))
	if dx == 0 && dy == 0 {
		return nil
	}

	pos, err := l.dev.Position()
	if err != nil {
		return l.fault("position", cmd, err)
	}
	l.lastPos = pos
	bounds, err := l.dev.Bounds()
	if err != nil {
		return l.fault("bounds", cmd, err)
	}
	// Announce where the device will actually land, so an edge-clamped move
	// is not seen as human movement.
	target := bounds.Clamp(pos.Add(dx, dy))
	if target == pos {
		return nil
	}
	if l.expect != nil {
		l.expect.Expect(target)
	}
	if err := l.dev.MoveTo(target); err != nil {
		return l.fault("move", cmd, err)
	}
	l.lastPos = target
	l.moves.Inc()
	l.notify(Actuation{Command: cmd, Intent: intent, From: pos, To: target, At: now})
	return nil
}

func (l *Loop) fault(op string, cmd Command, err error) error {
	l.faults.Inc()
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("label", string(cmd.Label)),
		zap.Float64("power", cmd.Power),
		zap.Time("timestamp", cmd.Timestamp),
		zap.Error(err),
	}
	if pointer.IsUnavailable(err) {
		l.log.Error("pointer device unavailable", fields...)
	} else {
		l.log.Warn("actuation failed, skipping tick", fields...)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (l *Loop) notify(a Actuation) {
	if l.hook != nil {
		l.hook.OnActuation(a)
	}
}

// Stats returns the loop counters.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Ticks:      l.ticks.Load(),
		Suppressed: l.suppressed.Load(),
		Moves:      l.moves.Load(),
		Clicks:     l.clicks.Load(),
		Faults:     l.faults.Load(),
	}
}
