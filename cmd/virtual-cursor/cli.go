package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/app"
	"github.com/jamesEmerson112/virtual-cursor/internal/config"
	"github.com/jamesEmerson112/virtual-cursor/internal/cortex"
	"github.com/jamesEmerson112/virtual-cursor/internal/logging"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	overrides  config.FlagOverrides
}

func newRootCmd(d deps) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "virtual-cursor",
		Short:         "Mental-command virtual cursor",
		Long:          `virtual-cursor turns mental commands from an Emotiv headset into pointer movement and clicks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", "console", "log format (console, json)")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		fl := cmd.Flags()
		if fl.Changed("log-level") {
			f.overrides.LogLevel = &f.logLevel
		}
		if fl.Changed("log-format") {
			f.overrides.LogFormat = &f.logFormat
		}
	}

	root.AddCommand(newRunCmd(f, d))
	root.AddCommand(newCheckCmd(f, d))
	root.AddCommand(newPositionCmd(d))
	root.AddCommand(newVersionCmd())
	return root
}

// load builds the effective config and the logger.
func (f *rootFlags) load(d deps, requireCredentials bool) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath, d.getenv)
	if err != nil {
		return config.Config{}, nil, err
	}
	f.overrides.Apply(&cfg)
	if err := cfg.Validate(requireCredentials); err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
	return cfg, logger, nil
}

func newRunCmd(f *rootFlags, d deps) *cobra.Command {
	var (
		tick, cooldown                     time.Duration
		pixels, action, telemetry          float64
		fixedStep, pullAsDown, noAutoStart bool
		cortexURL, profile, headset        string
		broker, httpAddr                   string
		keyboard, gpioChip                 string
		gpioLine                           int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the virtual cursor daemon",
		Long:  `Connects to Cortex, loads the training profile and moves the pointer until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fl := cmd.Flags()
			o := &f.overrides
			if fl.Changed("tick") {
				o.TickInterval = &tick
			}
			if fl.Changed("cooldown") {
				o.MovementCooldown = &cooldown
			}
			if fl.Changed("pixels") {
				o.PixelsPerTick = &pixels
			}
			if fl.Changed("action-threshold") {
				o.ActionThreshold = &action
			}
			if fl.Changed("telemetry-threshold") {
				o.TelemetryThreshold = &telemetry
			}
			if fl.Changed("fixed-step") {
				proportional := !fixedStep
				o.Proportional = &proportional
			}
			if fl.Changed("pull-as-down") {
				o.PullAsDown = &pullAsDown
			}
			if fl.Changed("no-auto-start") {
				autoStart := !noAutoStart
				o.AutoStart = &autoStart
			}
			if fl.Changed("cortex-url") {
				o.CortexURL = &cortexURL
			}
			if fl.Changed("profile") {
				o.Profile = &profile
			}
			if fl.Changed("headset") {
				o.Headset = &headset
			}
			if fl.Changed("broker") {
				o.Broker = &broker
			}
			if fl.Changed("http") {
				o.HTTPAddr = &httpAddr
			}
			if fl.Changed("keyboard") {
				o.KeyboardDevice = &keyboard
			}
			if fl.Changed("gpio-chip") {
				o.GPIOChip = &gpioChip
			}
			if fl.Changed("gpio-line") {
				o.GPIOLine = &gpioLine
			}
			return runDaemon(cmd.Context(), f, d)
		},
	}
	fl := cmd.Flags()
	fl.DurationVar(&tick, "tick", 0, "control loop tick interval")
	fl.DurationVar(&cooldown, "cooldown", 0, "pause after human pointer movement")
	fl.Float64Var(&pixels, "pixels", 0, "pixels per tick at full power")
	fl.Float64Var(&action, "action-threshold", 0, "minimum power that moves the pointer")
	fl.Float64Var(&telemetry, "telemetry-threshold", 0, "power at which readings count as MED")
	fl.BoolVar(&fixedStep, "fixed-step", false, "move a fixed step instead of scaling by power")
	fl.BoolVar(&pullAsDown, "pull-as-down", false, "treat pull as a downward command")
	fl.BoolVar(&noAutoStart, "no-auto-start", false, "wait for POST /start instead of starting when ready")
	fl.StringVar(&cortexURL, "cortex-url", "", "Cortex websocket URL")
	fl.StringVar(&profile, "profile", "", "training profile name (overrides PROFILE_NAME)")
	fl.StringVar(&headset, "headset", "", "headset id (overrides HEADSET_ID)")
	fl.StringVar(&broker, "broker", "", "MQTT broker address (empty disables)")
	fl.StringVar(&httpAddr, "http", "", "HTTP status address (empty disables)")
	fl.StringVar(&keyboard, "keyboard", "", "evdev keyboard device for the ESC stop key")
	fl.StringVar(&gpioChip, "gpio-chip", "", "GPIO chip of the stop button")
	fl.IntVar(&gpioLine, "gpio-line", 0, "GPIO line of the stop button")
	return cmd
}

func runDaemon(ctx context.Context, f *rootFlags, d deps) error {
	cfg, logger, err := f.load(d, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dev, err := d.newDevice()
	if err != nil {
		return fmt.Errorf("init pointer: %w", err)
	}

	opts := app.Options{
		Config:     cfg,
		Device:     dev,
		ConfigPath: f.configPath,
		Overrides:  f.overrides,
		Getenv:     d.getenv,
		Logger:     logger,
	}
	if d.configure != nil {
		d.configure(&opts)
	}
	a, err := app.New(opts)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func newCheckCmd(f *rootFlags, d deps) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check configuration and Cortex access",
		Long:  `Validates the configuration, authorizes against Cortex and lists headsets and profiles.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			cfg, logger, err := f.load(d, true)
			if err != nil {
				return err
			}
			defer logger.Sync()
			fmt.Fprintf(out, "config: ok (profile %q)\n", cfg.Cortex.Profile)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := cortex.Probe(ctx, cfg.CortexConfig(), logger.Named("cortex"))
			if err != nil {
				return fmt.Errorf("cortex: %w", err)
			}
			fmt.Fprintf(out, "cortex: authorized at %s\n", cfg.Cortex.URL)
			if len(res.Headsets) == 0 {
				fmt.Fprintln(out, "headsets: none found")
			}
			for _, h := range res.Headsets {
				fmt.Fprintf(out, "headset: %s (%s)\n", h.ID, h.Status)
			}
			if res.ProfileFound {
				fmt.Fprintf(out, "profile: %s found\n", cfg.Cortex.Profile)
			} else {
				fmt.Fprintf(out, "profile: %s not found, it will be created on first run\n", cfg.Cortex.Profile)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "overall check timeout")
	return cmd
}

func newPositionCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "position",
		Short: "Print the pointer position and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := d.newDevice()
			if err != nil {
				return fmt.Errorf("init pointer: %w", err)
			}
			p, err := dev.Position()
			if err != nil {
				return fmt.Errorf("read pointer: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "x=%d y=%d\n", p.X, p.Y)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "virtual-cursor", version)
		},
	}
}
