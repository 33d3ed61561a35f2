// Package config loads the daemon configuration: a YAML file on top of the
// defaults, credentials from the environment, then command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesEmerson112/virtual-cursor/internal/control"
	"github.com/jamesEmerson112/virtual-cursor/internal/cortex"
	"github.com/jamesEmerson112/virtual-cursor/internal/interrupt"
	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/power"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
)

// Environment variables holding the event-source credentials.
const (
	EnvClientID     = "CLIENT_ID"
	EnvClientSecret = "CLIENT_SECRET"
	EnvProfile      = "PROFILE_NAME"
	EnvHeadset      = "HEADSET_ID"
)

// Config is the top-level YAML configuration.
type Config struct {
	Control   ControlConfig   `yaml:"control"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Pointer   PointerConfig   `yaml:"pointer"`
	Cortex    CortexConfig    `yaml:"cortex"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Interrupt InterruptConfig `yaml:"interrupt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ControlConfig struct {
	TickInterval     time.Duration `yaml:"tick_interval"`
	PixelsPerTick    float64       `yaml:"pixels_per_tick"`
	Proportional     bool          `yaml:"proportional"`
	ActionThreshold  float64       `yaml:"action_threshold"`
	MovementCooldown time.Duration `yaml:"movement_cooldown"`
	PullAsDown       bool          `yaml:"pull_as_down"`
	// AutoStart starts actuation as soon as the event source is ready.
	AutoStart bool `yaml:"auto_start"`
}

type TelemetryConfig struct {
	Threshold          float64       `yaml:"threshold"`
	HistoryCapacity    int           `yaml:"history_capacity"`
	StatusEmitInterval time.Duration `yaml:"status_emit_interval"`
}

type PointerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type CortexConfig struct {
	URL          string   `yaml:"url"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	Profile      string   `yaml:"profile,omitempty"`
	Headset      string   `yaml:"headset,omitempty"`
	Streams      []string `yaml:"streams"`
	Sensitivity  []int    `yaml:"sensitivity,omitempty"`
	// InsecureSkipVerify accepts the self-signed certificate of the local service.
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
}

type MQTTConfig struct {
	Broker     string        `yaml:"broker"` // empty disables publishing
	ClientID   string        `yaml:"client_id"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type InterruptConfig struct {
	KeyboardDevice string `yaml:"keyboard_device"`
	GPIOChip       string `yaml:"gpio_chip"`
	GPIOLine       int    `yaml:"gpio_line"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Control: ControlConfig{
			TickInterval:     control.DefaultTickInterval,
			PixelsPerTick:    control.DefaultPixelsPerTick,
			Proportional:     true,
			ActionThreshold:  control.DefaultActionThreshold,
			MovementCooldown: control.DefaultMovementCooldown,
			AutoStart:        true,
		},
		Telemetry: TelemetryConfig{
			Threshold:          power.DefaultTelemetryThreshold,
			HistoryCapacity:    power.DefaultCapacity,
			StatusEmitInterval: power.DefaultEmitInterval,
		},
		Pointer: PointerConfig{
			PollInterval: 100 * time.Millisecond,
		},
		Cortex: CortexConfig{
			URL:                cortex.DefaultURL,
			Streams:            []string{"com"},
			InsecureSkipVerify: true,
			CallTimeout:        cortex.DefaultCallTimeout,
		},
		MQTT: MQTTConfig{
			ClientID:   "virtual-cursor",
			Heartbeat:  15 * time.Minute,
			BufferSize: 100,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Interrupt: InterruptConfig{
			GPIOLine: 27,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Error reports an unusable configuration. The daemon refuses to start on it.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// IsError reports whether err is (or wraps) a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// LoadFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields and trailing documents are rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of DefaultConfig.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(b)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var rest yaml.Node
	if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// when path is not empty, then credentials from the environment. The result is
// not validated; flag overrides still have to be applied first.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv(getenv)
	return cfg, nil
}

// ApplyEnv overrides the credentials with any non-empty environment values.
// A nil getenv uses os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Cortex.ClientID, EnvClientID)
	set(&c.Cortex.ClientSecret, EnvClientSecret)
	set(&c.Cortex.Profile, EnvProfile)
	set(&c.Cortex.Headset, EnvHeadset)
}

// Validate checks the configuration. requireCredentials is false for commands
// that never talk to the event source.
func (c Config) Validate(requireCredentials bool) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if requireCredentials {
		var missing []string
		if c.Cortex.ClientID == "" {
			missing = append(missing, EnvClientID)
		}
		if c.Cortex.ClientSecret == "" {
			missing = append(missing, EnvClientSecret)
		}
		if c.Cortex.Profile == "" {
			missing = append(missing, EnvProfile)
		}
		if len(missing) > 0 {
			add("missing required variables: %s", strings.Join(missing, ", "))
		}
	}

	if c.Control.TickInterval <= 0 {
		add("control.tick_interval must be > 0 (got %s)", c.Control.TickInterval)
	}
	if c.Control.PixelsPerTick <= 0 {
		add("control.pixels_per_tick must be > 0 (got %v)", c.Control.PixelsPerTick)
	}
	if !inUnit(c.Control.ActionThreshold) {
		add("control.action_threshold must be in [0,1] (got %v)", c.Control.ActionThreshold)
	}
	if c.Control.MovementCooldown < 0 {
		add("control.movement_cooldown must be >= 0 (got %s)", c.Control.MovementCooldown)
	}
	if !inUnit(c.Telemetry.Threshold) {
		add("telemetry.threshold must be in [0,1] (got %v)", c.Telemetry.Threshold)
	}
	if c.Telemetry.HistoryCapacity < 1 {
		add("telemetry.history_capacity must be >= 1 (got %d)", c.Telemetry.HistoryCapacity)
	}
	if c.Telemetry.StatusEmitInterval < 0 {
		add("telemetry.status_emit_interval must be >= 0 (got %s)", c.Telemetry.StatusEmitInterval)
	}
	if c.Pointer.PollInterval <= 0 {
		add("pointer.poll_interval must be > 0 (got %s)", c.Pointer.PollInterval)
	}
	if c.Cortex.URL == "" {
		add("cortex.url must not be empty")
	}
	if n := len(c.Cortex.Sensitivity); n != 0 && n != 4 {
		add("cortex.sensitivity needs 4 values (got %d)", n)
	}
	for _, s := range c.Cortex.Sensitivity {
		if s < 1 || s > 10 {
			add("cortex.sensitivity values must be in [1,10] (got %d)", s)
			break
		}
	}
	if c.MQTT.Broker != "" && c.MQTT.Heartbeat <= 0 {
		add("mqtt.heartbeat must be > 0 (got %s)", c.MQTT.Heartbeat)
	}
	if c.Interrupt.GPIOChip != "" && c.Interrupt.GPIOLine < 0 {
		add("interrupt.gpio_line must be >= 0 (got %d)", c.Interrupt.GPIOLine)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		add("logging.format must be console or json (got %q)", c.Logging.Format)
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// Warnings returns non-fatal remarks about the configuration.
func (c Config) Warnings() []string {
	var w []string
	if c.Telemetry.Threshold > c.Control.ActionThreshold {
		w = append(w, fmt.Sprintf("telemetry.threshold %v is above control.action_threshold %v; no reading will be MED",
			c.Telemetry.Threshold, c.Control.ActionThreshold))
	}
	return w
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ControlSettings returns the runtime actuation knobs.
func (c Config) ControlSettings() control.Settings {
	return control.Settings{
		Interpreter: logic.Interpreter{
			ActionThreshold: c.Control.ActionThreshold,
			PixelsPerTick:   c.Control.PixelsPerTick,
			Proportional:    c.Control.Proportional,
			PullAsDown:      c.Control.PullAsDown,
		},
		Cooldown: c.Control.MovementCooldown,
	}
}

// PowerSettings returns the reporter knobs.
func (c Config) PowerSettings() power.Settings {
	return power.Settings{
		TelemetryThreshold: c.Telemetry.Threshold,
		ActionThreshold:    c.Control.ActionThreshold,
		EmitInterval:       c.Telemetry.StatusEmitInterval,
	}
}

// CortexConfig returns the event-source client configuration.
func (c Config) CortexConfig() cortex.Config {
	return cortex.Config{
		URL:                c.Cortex.URL,
		ClientID:           c.Cortex.ClientID,
		ClientSecret:       c.Cortex.ClientSecret,
		Profile:            c.Cortex.Profile,
		Headset:            c.Cortex.Headset,
		Streams:            append([]string(nil), c.Cortex.Streams...),
		Sensitivity:        append([]int(nil), c.Cortex.Sensitivity...),
		InsecureSkipVerify: c.Cortex.InsecureSkipVerify,
		CallTimeout:        c.Cortex.CallTimeout,
	}
}

// InterruptOptions returns the cancellation source options.
func (c Config) InterruptOptions() interrupt.Options {
	return interrupt.Options{
		KeyboardDevice: c.Interrupt.KeyboardDevice,
		GPIOChip:       c.Interrupt.GPIOChip,
		GPIOLine:       c.Interrupt.GPIOLine,
	}
}

// StatusConfig returns the configuration shown on the status page.
func (c Config) StatusConfig() status.Config {
	return status.Config{
		TickMs:             c.Control.TickInterval.Milliseconds(),
		PixelsPerTick:      c.Control.PixelsPerTick,
		Proportional:       c.Control.Proportional,
		ActionThreshold:    c.Control.ActionThreshold,
		TelemetryThreshold: c.Telemetry.Threshold,
		CooldownMs:         c.Control.MovementCooldown.Milliseconds(),
		HistoryCapacity:    c.Telemetry.HistoryCapacity,
		StatusIntervalMs:   c.Telemetry.StatusEmitInterval.Milliseconds(),
		HeartbeatMs:        c.MQTT.Heartbeat.Milliseconds(),
		Broker:             c.MQTT.Broker,
		HTTPAddr:           c.HTTP.Addr,
	}
}
