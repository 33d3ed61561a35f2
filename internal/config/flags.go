package config

import "time"

// FlagOverrides carries command-line overrides. Each override is applied only
// when its pointer is non-nil, so the CLI decides which flags were set.
type FlagOverrides struct {
	TickInterval       *time.Duration
	PixelsPerTick      *float64
	Proportional       *bool
	ActionThreshold    *float64
	TelemetryThreshold *float64
	MovementCooldown   *time.Duration
	PullAsDown         *bool
	AutoStart          *bool

	CortexURL *string
	Profile   *string
	Headset   *string

	Broker   *string
	HTTPAddr *string

	KeyboardDevice *string
	GPIOChip       *string
	GPIOLine       *int

	LogLevel  *string
	LogFormat *string
}

// Apply writes every set override into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	setDur(&cfg.Control.TickInterval, o.TickInterval)
	setFloat(&cfg.Control.PixelsPerTick, o.PixelsPerTick)
	setBool(&cfg.Control.Proportional, o.Proportional)
	setFloat(&cfg.Control.ActionThreshold, o.ActionThreshold)
	setFloat(&cfg.Telemetry.Threshold, o.TelemetryThreshold)
	setDur(&cfg.Control.MovementCooldown, o.MovementCooldown)
	setBool(&cfg.Control.PullAsDown, o.PullAsDown)
	setBool(&cfg.Control.AutoStart, o.AutoStart)

	setString(&cfg.Cortex.URL, o.CortexURL)
	setString(&cfg.Cortex.Profile, o.Profile)
	setString(&cfg.Cortex.Headset, o.Headset)

	setString(&cfg.MQTT.Broker, o.Broker)
	setString(&cfg.HTTP.Addr, o.HTTPAddr)

	setString(&cfg.Interrupt.KeyboardDevice, o.KeyboardDevice)
	setString(&cfg.Interrupt.GPIOChip, o.GPIOChip)
	if o.GPIOLine != nil {
		cfg.Interrupt.GPIOLine = *o.GPIOLine
	}

	setString(&cfg.Logging.Level, o.LogLevel)
	setString(&cfg.Logging.Format, o.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDur(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
