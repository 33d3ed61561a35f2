// Package interrupt provides human cancellation sources for the control loop:
// an ESC key on a Linux input device and a GPIO stop button. Either may be
// missing on a given host; Detect returns whatever is available.
package interrupt

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrUnsupported is returned when a source cannot exist on this platform.
var ErrUnsupported = errors.New("interrupt: not supported on this platform")

// Source blocks until a human asks to stop.
// Wait returns nil on a request and ctx.Err() when ctx ends first.
type Source interface {
	Wait(ctx context.Context) error
	Close() error
}

// Options selects which sources Detect tries. Empty fields are skipped.
type Options struct {
	KeyboardDevice string // e.g. /dev/input/event3
	GPIOChip       string // e.g. gpiochip0
	GPIOLine       int    // BCM line number, used only when GPIOChip is set
}

// Detect opens every configured source and combines them. It returns
// (nil, false) when none could be opened; callers then fall back to Ctrl+C.
func Detect(opts Options, logger *zap.Logger) (Source, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var found []Source

	if opts.KeyboardDevice != "" {
		kb, err := OpenKeyboard(opts.KeyboardDevice)
		if err != nil {
			logger.Warn("keyboard interrupt unavailable", zap.String("device", opts.KeyboardDevice), zap.Error(err))
		} else {
			logger.Info("press ESC to stop", zap.String("device", opts.KeyboardDevice))
			found = append(found, kb)
		}
	}

	if opts.GPIOChip != "" {
		btn, err := OpenButton(opts.GPIOChip, opts.GPIOLine)
		if err != nil {
			logger.Warn("gpio stop button unavailable", zap.String("chip", opts.GPIOChip), zap.Int("line", opts.GPIOLine), zap.Error(err))
		} else {
			logger.Info("stop button armed", zap.String("chip", opts.GPIOChip), zap.Int("line", opts.GPIOLine))
			found = append(found, btn)
		}
	}

	switch len(found) {
	case 0:
		return nil, false
	case 1:
		return found[0], true
	default:
		return Any(found...), true
	}
}

// Any returns a Source that fires when any of sources fires.
func Any(sources ...Source) Source {
	return &anySource{sources: sources}
}

type anySource struct {
	sources []Source
}

func (a *anySource) Wait(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(a.sources))
	var wg sync.WaitGroup
	for _, s := range a.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			results <- s.Wait(ctx)
		}(s)
	}

	var firstErr error
	for range a.sources {
		err := <-results
		if err == nil {
			cancel()
			wg.Wait()
			return nil
		}
		if ctx.Err() != nil {
			wg.Wait()
			return ctx.Err()
		}
		// A broken source must not take the others down with it.
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *anySource) Close() error {
	var errs []error
	for _, s := range a.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
