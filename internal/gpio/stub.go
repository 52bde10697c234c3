//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chipName string, pinA, pinB int, debounce time.Duration) (*RealReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// RPIOReader is not available on non-Linux platforms.
type RPIOReader struct{}

// NewRPIOReader returns an error on non-Linux platforms.
func NewRPIOReader(pinA, pinB int) (*RPIOReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RPIOReader) Read() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RPIOReader) Close() error {
	return nil
}
