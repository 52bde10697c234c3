// Package config loads daemon settings from an optional YAML file and the
// command line. Flags that were explicitly set override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// GPIOConfig selects the hardware backend and pins.
type GPIOConfig struct {
	Backend  string        `yaml:"backend"`
	Chip     string        `yaml:"chip"`
	PinA     int           `yaml:"pin_a"`
	PinB     int           `yaml:"pin_b"`
	Debounce time.Duration `yaml:"debounce"`
}

// Config is the complete daemon configuration.
type Config struct {
	Poll       time.Duration `yaml:"poll"`
	Tick       time.Duration `yaml:"tick"`
	LongPress  time.Duration `yaml:"long_press"`
	LongRepeat int           `yaml:"long_repeat"`
	Idle       time.Duration `yaml:"idle"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	Broker     string        `yaml:"broker"`
	HTTP       string        `yaml:"http"`
	LogLevel   string        `yaml:"log_level"`
	GPIO       GPIOConfig    `yaml:"gpio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Poll:       20 * time.Millisecond,
		Tick:       100 * time.Millisecond,
		LongPress:  400 * time.Millisecond,
		LongRepeat: 0,
		Idle:       0,
		Heartbeat:  15 * time.Minute,
		Broker:     "tcp://192.168.1.200:1883",
		HTTP:       ":80",
		LogLevel:   "info",
		GPIO: GPIOConfig{
			Backend: gpio.BackendCdev,
			Chip:    gpio.DefaultChip,
			PinA:    gpio.DefaultPinA,
			PinB:    gpio.DefaultPinB,
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed: " + strings.Join(v.Errors, "; ")
}

// Unwrap makes errors.Is(err, ErrInvalid) hold.
func (v *ValidationError) Unwrap() error {
	return ErrInvalid
}

func (v *ValidationError) add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate returns a *ValidationError if the configuration cannot be run.
func (c *Config) Validate() error {
	ve := &ValidationError{}

	if c.Poll <= 0 {
		ve.add("poll must be positive, got %v", c.Poll)
	}
	if c.Tick <= 0 {
		ve.add("tick must be positive, got %v", c.Tick)
	} else if c.LongPress < c.Tick {
		ve.add("long_press %v is shorter than one tick (%v)", c.LongPress, c.Tick)
	}
	if c.LongRepeat < 0 {
		ve.add("long_repeat must not be negative, got %d", c.LongRepeat)
	}
	if c.Idle < 0 {
		ve.add("idle must not be negative, got %v", c.Idle)
	} else if c.Idle > 0 && c.Idle < c.Tick {
		ve.add("idle %v is shorter than one tick (%v)", c.Idle, c.Tick)
	}
	if c.Heartbeat < 0 {
		ve.add("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		ve.add("%v", err)
	}

	switch c.GPIO.Backend {
	case gpio.BackendCdev, gpio.BackendRPIO:
	default:
		ve.add("unknown gpio backend %q", c.GPIO.Backend)
	}
	if c.GPIO.PinA < 0 || c.GPIO.PinB < 0 {
		ve.add("gpio pins must not be negative")
	}
	if c.GPIO.PinA == c.GPIO.PinB {
		ve.add("pin_a and pin_b are both %d", c.GPIO.PinA)
	}
	if c.GPIO.Debounce < 0 {
		ve.add("gpio debounce must not be negative, got %v", c.GPIO.Debounce)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// LongPressTicks converts the long-press duration to classifier ticks.
func (c *Config) LongPressTicks() logic.Tick {
	return durationTicks(c.LongPress, c.Tick)
}

// IdleTicks converts the idle duration to ticks. Zero disables idle tracking.
func (c *Config) IdleTicks() logic.Tick {
	return durationTicks(c.Idle, c.Tick)
}

// WaitTicks converts a wait timeout to ticks, rounding up so that a short
// timeout still waits at least one tick.
func (c *Config) WaitTicks(d time.Duration) logic.Tick {
	if d <= 0 || c.Tick <= 0 {
		return 0
	}
	return logic.Tick((d + c.Tick - 1) / c.Tick)
}

func durationTicks(d, tick time.Duration) logic.Tick {
	if d <= 0 || tick <= 0 {
		return 0
	}
	return logic.Tick(d / tick)
}
