package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events editors produce on save.
const reloadDelay = 200 * time.Millisecond

// Tunables are the options that can change while the daemon runs.
type Tunables struct {
	Control   ControlConfig
	Telemetry TelemetryConfig
}

// Tunables extracts the hot-reloadable part of c.
func (c Config) Tunables() Tunables {
	return Tunables{Control: c.Control, Telemetry: c.Telemetry}
}

// Restartable lists the options in next that differ from cur and only take
// effect after a restart.
func Restartable(cur, next Config) []string {
	var out []string
	if cur.Control.TickInterval != next.Control.TickInterval {
		out = append(out, "control.tick_interval")
	}
	if cur.Telemetry.HistoryCapacity != next.Telemetry.HistoryCapacity {
		out = append(out, "telemetry.history_capacity")
	}
	if cur.Pointer.PollInterval != next.Pointer.PollInterval {
		out = append(out, "pointer.poll_interval")
	}
	if cur.Cortex.URL != next.Cortex.URL || cur.Cortex.Profile != next.Cortex.Profile ||
		cur.Cortex.Headset != next.Cortex.Headset {
		out = append(out, "cortex")
	}
	if cur.MQTT != next.MQTT {
		out = append(out, "mqtt")
	}
	if cur.HTTP != next.HTTP {
		out = append(out, "http")
	}
	if cur.Interrupt != next.Interrupt {
		out = append(out, "interrupt")
	}
	if cur.Logging != next.Logging {
		out = append(out, "logging")
	}
	return out
}

// Watch re-reads the config file whenever it changes and calls fn with the
// freshly loaded config (environment and overrides applied, validated). Load
// errors are logged and the previous config stays in effect. Watch blocks
// until ctx is done.
//
// The directory is watched rather than the file, so editors that replace the
// file on save keep working.
func Watch(ctx context.Context, path string, overrides FlagOverrides, getenv func(string) string, logger *zap.Logger, fn func(Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("config path %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching config file", zap.String("path", abs))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			cfg, err := Load(abs, getenv)
			if err == nil {
				overrides.Apply(&cfg)
				err = cfg.Validate(false)
			}
			if err != nil {
				logger.Warn("config reload failed, keeping previous config", zap.Error(err))
				continue
			}
			logger.Info("config file changed, reloading")
			fn(cfg)
		}
	}
}
