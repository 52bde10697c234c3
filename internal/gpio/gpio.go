// Package gpio provides button input reading with hardware abstraction.
// The real implementations use the Linux GPIO character device or the
// Raspberry Pi register map. The fake implementation allows testing without
// hardware.
package gpio

import (
	"fmt"
	"time"
)

// Reader reads button levels.
type Reader interface {
	// Read returns the logical states of buttons A and B.
	// true = pressed, regardless of the electrical polarity of the line.
	Read() (a bool, b bool, err error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinA = 17
	DefaultPinB = 27
)

// DefaultChip is the GPIO character device used by the cdev backend.
const DefaultChip = "gpiochip0"

// Backend names accepted by Open.
const (
	BackendCdev = "cdev"
	BackendRPIO = "rpio"
)

// Options selects and configures a hardware backend.
type Options struct {
	Backend string
	Chip    string // cdev only
	PinA    int
	PinB    int
	// Debounce asks the kernel to debounce both lines. cdev only; zero disables.
	Debounce time.Duration
}

// Open returns a Reader for the configured backend.
func Open(opts Options) (Reader, error) {
	switch opts.Backend {
	case "", BackendCdev:
		chip := opts.Chip
		if chip == "" {
			chip = DefaultChip
		}
		r, err := NewRealReader(chip, opts.PinA, opts.PinB, opts.Debounce)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendRPIO:
		r, err := NewRPIOReader(opts.PinA, opts.PinB)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", opts.Backend)
}
