package interrupt

import (
	"context"
	"fmt"
	"time"
)

// Button polling interval. A press is far longer than this.
const buttonPollInterval = 20 * time.Millisecond

// lineReader is the part of a GPIO line the button needs.
type lineReader interface {
	Value() (int, error)
	Close() error
}

// Button is a momentary stop button on a GPIO line, wired active high
// against the pull-down.
type Button struct {
	line     lineReader
	interval time.Duration
}

func newButton(line lineReader) *Button {
	return &Button{line: line, interval: buttonPollInterval}
}

// Wait blocks until the button reads pressed or ctx ends. A button already
// held when Wait starts must be released first, so a stuck line does not
// stop the loop immediately.
func (b *Button) Wait(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	armed := false
	for {
		v, err := b.line.Value()
		if err != nil {
			return fmt.Errorf("read stop button: %w", err)
		}
		pressed := v != 0
		if !pressed {
			armed = true
		} else if armed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the line.
func (b *Button) Close() error {
	return b.line.Close()
}
