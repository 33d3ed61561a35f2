// Command virtual-cursor moves the mouse pointer from mental commands
// streamed by an EEG headset, and publishes telemetry to MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesEmerson112/virtual-cursor/internal/app"
	"github.com/jamesEmerson112/virtual-cursor/internal/pointer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signalContext(context.Background())
	defer stop()

	if err := Main(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps()); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// Main runs the CLI with the given arguments.
func Main(ctx context.Context, args []string, out, errOut io.Writer, d deps) error {
	cmd := newRootCmd(d)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

// signalContext is cancelled on SIGINT or SIGTERM with an app.SignalError
// cause, so the shutdown event can name the signal.
func signalContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case s := <-sigCh:
			cancel(app.SignalError{Signal: s})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel(nil)
	}
}

// deps are the process-level collaborators, replaced in tests.
type deps struct {
	getenv    func(string) string
	newDevice func() (pointer.Device, error)
	// configure adjusts app options before the daemon starts.
	configure func(*app.Options)
}

func defaultDeps() deps {
	return deps{
		getenv: os.Getenv,
		newDevice: func() (pointer.Device, error) {
			d, err := pointer.NewRealDevice()
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	}
}
