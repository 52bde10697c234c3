//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOReader reads buttons through the Raspberry Pi GPIO register map.
// Useful on older kernels without the v2 character device uAPI.
type RPIOReader struct {
	pinA rpio.Pin
	pinB rpio.Pin
}

// NewRPIOReader maps GPIO memory and configures both pins as pulled-up inputs.
func NewRPIOReader(pinA, pinB int) (*RPIOReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}

	r := &RPIOReader{pinA: rpio.Pin(pinA), pinB: rpio.Pin(pinB)}
	for _, p := range []rpio.Pin{r.pinA, r.pinB} {
		p.Input()
		p.PullUp()
	}
	return r, nil
}

// Read returns true for a pin pulled low by its button.
func (r *RPIOReader) Read() (bool, bool, error) {
	return r.pinA.Read() == rpio.Low, r.pinB.Read() == rpio.Low, nil
}

// Close unmaps GPIO memory.
func (r *RPIOReader) Close() error {
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}
