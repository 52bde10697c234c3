//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealReader requests both button lines from the named chip.
// Buttons are wired to ground, so lines are pulled up and active-low:
// a pressed button reads as 1.
func NewRealReader(chipName string, pinA, pinB int, debounce time.Duration) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.AsActiveLow,
		gpiocdev.WithConsumer("button-sensor"),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	lines, err := chip.RequestLines([]int{pinA, pinB}, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pins %d,%d: %w", pinA, pinB, err)
	}

	return &RealReader{
		chip:  chip,
		lines: lines,
	}, nil
}

// Read samples both lines in a single request.
func (r *RealReader) Read() (bool, bool, error) {
	vals := make([]int, 2)
	if err := r.lines.Values(vals); err != nil {
		return false, false, fmt.Errorf("read button pins: %w", err)
	}
	return vals[0] == 1, vals[1] == 1, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lines: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
