// Package app wires the event source, decision path, control loop and
// telemetry into one daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"syscall"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jamesEmerson112/virtual-cursor/internal/config"
	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/cortex"
	"github.com/jamesEmerson112/virtual-cursor/internal/interrupt"
	"github.com/jamesEmerson112/virtual-cursor/internal/mqtt"
	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
	"github.com/jamesEmerson112/virtual-cursor/internal/web"
)

// SignalError is the cancel cause used when a signal ends the daemon.
type SignalError struct {
	Signal os.Signal
}

func (e SignalError) Error() string {
	return "received " + e.Signal.String()
}

// SourceFactory builds the event source delivering to h.
type SourceFactory func(h cortex.Handler) cortex.Source

// Options wires an App. Config and Device are required; everything else
// has a production default.
type Options struct {
	Config config.Config
	Device pointer.Device

	// ConfigPath enables hot reload of the file when not empty.
	ConfigPath string
	Overrides  config.FlagOverrides
	Getenv     func(string) string

	// Source defaults to a Cortex client built from Config.
	Source SourceFactory
	// Publisher defaults to a paho publisher when mqtt.broker is set.
	Publisher mqtt.Publisher
	// Cancel defaults to the sources detected from the interrupt options.
	Cancel control.CancellationSource

	Ticker control.TickerFunc
	Now    func() time.Time
	Logger *zap.Logger
}

// App is the running daemon.
type App struct {
	cfg     config.Config
	opts    Options
	log     *zap.Logger
	now     func() time.Time
	started time.Time

	slot       *control.Slot
	settings   *control.SettingsStore
	poller     *pointer.Poller
	monitor    *power.Monitor
	controller *control.Controller
	tracker    *status.Tracker
	source     cortex.Source
	pub        mqtt.Publisher
	outbox     *outbox
	web        *web.Server
	closers    []func() error

	sessionReady atomic.Bool
	profileReady atomic.Bool
	dropped      atomic.Int64

	mu     sync.Mutex
	runCtx context.Context
	// loaded is the last config handed to Reload; cfg is what is in effect.
	loaded config.Config
}

// New builds the App. It connects to the MQTT broker when one is configured
// but does not start any task.
func New(opts Options) (*App, error) {
	if opts.Device == nil {
		return nil, errors.New("app: pointer device is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := opts.Config
	log := opts.Logger

	a := &App{
		cfg:      cfg,
		loaded:   cfg,
		opts:     opts,
		log:      log,
		now:      opts.Now,
		started:  opts.Now(),
		slot:     control.NewSlot(),
		settings: control.NewSettingsStore(cfg.ControlSettings()),
	}

	a.tracker = status.NewTracker(a.started, cfg.StatusConfig())
	a.poller = pointer.NewPoller(opts.Device, cfg.Pointer.PollInterval, opts.Now, log.Named("pointer"))
	a.monitor = power.NewMonitor(cfg.Telemetry.HistoryCapacity, cfg.PowerSettings(), log.Named("power"), opts.Now)
	a.monitor.AddSink(power.SinkFunc(a.tracker.RecordStatus))

	if err := a.setupPublisher(); err != nil {
		return nil, err
	}

	var hook control.Hook
	if a.outbox != nil {
		hook = control.HookFunc(a.publishActuation)
		a.monitor.AddSink(power.SinkFunc(a.publishStatus))
	}

	loop := control.NewLoop(control.LoopConfig{
		Device:   opts.Device,
		Slot:     a.slot,
		Movement: a.poller,
		Expect:   a.poller,
		Settings: a.settings,
		Now:      opts.Now,
		Logger:   log.Named("control"),
		Hook:     hook,
	})

	cancel := opts.Cancel
	if cancel == nil {
		if src, ok := interrupt.Detect(cfg.InterruptOptions(), log.Named("interrupt")); ok {
			cancel = src
			a.closers = append(a.closers, src.Close)
		}
	}

	a.controller = control.NewController(control.ControllerConfig{
		Loop:     loop,
		Interval: cfg.Control.TickInterval,
		Cancel:   cancel,
		Ticker:   opts.Ticker,
		Logger:   log.Named("controller"),
		OnStop: func(error) {
			a.monitor.LogStats()
		},
	})

	a.tracker.AddCollector(func(s *status.Snapshot) {
		s.Controller = a.controller.State()
		s.Loop = a.controller.Stats()
		s.Power = a.monitor.Stats()
	})

	if cfg.HTTP.Addr != "" {
		a.web = web.New(cfg.HTTP.Addr, a.tracker, a, log.Named("web"))
		a.monitor.AddSink(a.web.Hub())
	}

	if opts.Source != nil {
		a.source = opts.Source(a)
	} else {
		a.source = cortex.NewClient(cfg.CortexConfig(), a, log.Named("cortex"))
	}
	return a, nil
}

func (a *App) setupPublisher() error {
	a.pub = a.opts.Publisher
	if a.pub == nil && a.cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:             a.cfg.MQTT.Broker,
			ClientID:           a.cfg.MQTT.ClientID,
			BufferSize:         a.cfg.MQTT.BufferSize,
			OnConnectionChange: a.tracker.SetMQTTConnected,
		}, a.log.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		a.pub = p
	}
	if a.pub == nil {
		return nil
	}
	a.closers = append(a.closers, a.pub.Close)
	if cs, ok := a.pub.(mqtt.ConnectionStatus); ok {
		a.tracker.AddCollector(func(s *status.Snapshot) {
			s.MQTTConnected = cs.IsConnected()
		})
	}
	a.outbox = newOutbox(outboxSize, a.log.Named("mqtt"))
	return nil
}

// Tracker exposes the status tracker.
func (a *App) Tracker() *status.Tracker {
	return a.tracker
}

// Controller exposes the actuation controller.
func (a *App) Controller() *control.Controller {
	return a.controller
}

// Poller exposes the pointer position poller.
func (a *App) Poller() *pointer.Poller {
	return a.poller
}

// Run starts every task and blocks until ctx ends or a task fails. It
// publishes STARTUP on entry and SHUTDOWN on exit.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	a.mu.Lock()
	a.runCtx = gctx
	cfg := a.cfg
	a.mu.Unlock()

	a.publishLifecycle(mqtt.EventStartup, "")
	a.log.Info("started",
		zap.Duration("tick", cfg.Control.TickInterval),
		zap.Float64("action_threshold", cfg.Control.ActionThreshold),
		zap.Float64("telemetry_threshold", cfg.Telemetry.Threshold),
		zap.Duration("cooldown", cfg.Control.MovementCooldown),
		zap.String("broker", cfg.MQTT.Broker),
		zap.String("http", cfg.HTTP.Addr),
	)

	g.Go(func() error {
		a.tracker.SetSessionState(runstate.Running)
		defer a.tracker.SetSessionState(runstate.Stopped)
		if err := a.source.Run(gctx); err != nil {
			return fmt.Errorf("event source: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.poller.Run(gctx); err != nil {
			return fmt.Errorf("pointer poller: %w", err)
		}
		return nil
	})
	if a.outbox != nil {
		g.Go(func() error {
			a.outbox.run(gctx)
			return nil
		})
		if hb := cfg.MQTT.Heartbeat; hb > 0 {
			g.Go(func() error {
				a.heartbeat(gctx, hb)
				return nil
			})
		}
	}
	if a.web != nil {
		g.Go(func() error {
			a.log.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := a.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return a.web.Shutdown(sctx)
		})
	}
	if a.opts.ConfigPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, a.opts.ConfigPath, a.opts.Overrides, a.opts.Getenv, a.log.Named("config"), a.Reload)
			if err != nil {
				a.log.Warn("config hot reload disabled", zap.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()

	a.controller.Stop()
	wctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if werr := a.waitController(wctx); werr != nil {
		a.log.Warn("control loop did not exit in time", zap.Error(werr))
	}
	cancel()

	reason := shutdownReason(ctx, err)
	a.log.Info("shutting down", zap.String("reason", reason), zap.Error(err))
	a.publishLifecycle(mqtt.EventShutdown, reason)
	return err
}

func (a *App) waitController(ctx context.Context) error {
	if a.controller.State() == runstate.NotStarted {
		return nil
	}
	return a.controller.Wait(ctx)
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
}

func shutdownReason(ctx context.Context, err error) string {
	var se SignalError
	if errors.As(context.Cause(ctx), &se) {
		switch se.Signal {
		case syscall.SIGINT:
			return "SIGINT"
		case syscall.SIGTERM:
			return "SIGTERM"
		}
		return "UNKNOWN"
	}
	if err != nil {
		return "ERROR"
	}
	return "CONTEXT"
}

// RequestStart starts actuation. It implements web.Controls: before the event
// source signalled session and profile readiness it returns web.ErrNotReady.
func (a *App) RequestStart() error {
	if !a.Ready() {
		return web.ErrNotReady
	}
	a.mu.Lock()
	ctx := a.runCtx
	a.mu.Unlock()
	if ctx == nil {
		return web.ErrNotReady
	}
	return a.controller.Start(ctx)
}

// RequestStop asks the control loop to stop. It implements web.Controls.
func (a *App) RequestStop() {
	a.controller.Stop()
}

// Ready reports whether both readiness callbacks fired.
func (a *App) Ready() bool {
	return a.sessionReady.Load() && a.profileReady.Load()
}

// Reload applies a freshly loaded config. Tunables take effect immediately;
// structural options are logged once per change and ignored until restart.
func (a *App) Reload(next config.Config) {
	t := next.Tunables()

	a.mu.Lock()
	cur, prev := a.cfg, a.loaded
	applied := cur
	applied.Control = t.Control
	applied.Control.TickInterval = cur.Control.TickInterval
	applied.Telemetry = t.Telemetry
	applied.Telemetry.HistoryCapacity = cur.Telemetry.HistoryCapacity
	a.cfg = applied
	a.loaded = next
	a.mu.Unlock()

	changed := make(map[string]bool)
	for _, opt := range config.Restartable(prev, next) {
		changed[opt] = true
	}
	for _, opt := range config.Restartable(cur, next) {
		if changed[opt] {
			a.log.Warn("option changed, restart required", zap.String("option", opt))
		}
	}
	for _, w := range next.Warnings() {
		a.log.Warn(w)
	}

	a.settings.Store(next.ControlSettings())
	a.monitor.UpdateSettings(next.PowerSettings())
	a.tracker.UpdateConfig(applied.StatusConfig())

	a.log.Info("config reloaded",
		zap.Float64("action_threshold", t.Control.ActionThreshold),
		zap.Float64("telemetry_threshold", t.Telemetry.Threshold),
		zap.Float64("pixels_per_tick", t.Control.PixelsPerTick),
		zap.Duration("cooldown", t.Control.MovementCooldown),
		zap.Bool("auto_start", t.Control.AutoStart),
	)

	if t.Control.AutoStart && !cur.Control.AutoStart {
		a.maybeAutoStart()
	}
}
