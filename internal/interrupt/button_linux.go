//go:build linux

package interrupt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type gpioLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpioLine) Value() (int, error) {
	return g.line.Value()
}

// Close puts the line back to input with pull-down, matching the Pi boot
// defaults, before releasing it.
func (g *gpioLine) Close() error {
	var errs []error
	if err := g.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := g.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if err := g.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// OpenButton requests line on chip as an input with pull-down.
func OpenButton(chip string, line int) (*Button, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	l, err := c.RequestLine(line, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request line %d: %w", line, err)
	}
	return newButton(&gpioLine{chip: c, line: l}), nil
}
