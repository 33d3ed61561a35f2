package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/mqtt"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
)

const outboxSize = 256

// outbox decouples the control loop and the event path from broker latency.
// Publishes are queued without blocking and sent by one worker; when the
// queue is full the message is dropped.
type outbox struct {
	ch  chan func() error
	log *zap.Logger
}

func newOutbox(size int, logger *zap.Logger) *outbox {
	return &outbox{ch: make(chan func() error, size), log: logger}
}

func (o *outbox) enqueue(name string, fn func() error) {
	select {
	case o.ch <- fn:
	default:
		o.log.Debug("telemetry queue full, dropping", zap.String("message", name))
	}
}

// run sends queued messages until ctx ends, then flushes what is left.
func (o *outbox) run(ctx context.Context) {
	for {
		select {
		case fn := <-o.ch:
			o.send(fn)
		case <-ctx.Done():
			for {
				select {
				case fn := <-o.ch:
					o.send(fn)
				default:
					return
				}
			}
		}
	}
}

func (o *outbox) send(fn func() error) {
	if err := fn(); err != nil {
		o.log.Warn("publish error", zap.Error(err))
	}
}

func (a *App) publishActuation(act control.Actuation) {
	a.outbox.enqueue("intent", func() error {
		return a.pub.PublishActuation(act)
	})
}

func (a *App) publishStatus(line power.StatusLine) {
	a.outbox.enqueue("status", func() error {
		return a.pub.PublishStatus(line)
	})
}

// publishLifecycle publishes a retained system event carrying a full status
// snapshot. It is synchronous: it runs before the tasks start and after they
// have stopped.
func (a *App) publishLifecycle(event, reason string) {
	if a.pub == nil {
		return
	}
	snap := a.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := a.pub.PublishSystem(ev); err != nil {
		a.log.Warn("failed to publish system event", zap.String("event", event), zap.Error(err))
		return
	}
	a.log.Info("published system event", zap.String("event", event))
}

func (a *App) heartbeat(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := a.tracker.Snapshot()
			a.log.Info("heartbeat",
				zap.Duration("uptime", snap.Uptime().Truncate(time.Second)),
				zap.String("controller", snap.Controller.String()),
				zap.Int64("moves", snap.Loop.Moves),
				zap.Int64("clicks", snap.Loop.Clicks),
				zap.Int("readings", snap.Power.Count),
			)
			payload := status.FormatStatusEvent(snap, mqtt.EventHeartbeat, "")
			a.outbox.enqueue("heartbeat", func() error {
				return a.pub.PublishSystem(mqtt.SystemEvent{
					Timestamp:  snap.Now,
					Event:      mqtt.EventHeartbeat,
					RawPayload: payload,
				})
			})
		}
	}
}
