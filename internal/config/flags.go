package config

import (
	"flag"
	"time"
)

// Flags holds the command-line view of a Config.
type Flags struct {
	fs  *flag.FlagSet
	cfg Config

	// Path is the --config file, empty for none.
	Path string
	// PrintState and Wait select one-shot modes instead of the daemon loop.
	PrintState bool
	Wait       time.Duration
}

// RegisterFlags defines the daemon flags on fs with the built-in defaults.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: *Default()}
	c := &f.cfg

	fs.StringVar(&f.Path, "config", "", "YAML config file (flags given on the command line override it)")
	fs.DurationVar(&c.Poll, "poll", c.Poll, "GPIO polling interval")
	fs.DurationVar(&c.Tick, "tick", c.Tick, "Classifier tick resolution")
	fs.DurationVar(&c.LongPress, "long-press", c.LongPress, "Hold time before a press counts as long")
	fs.IntVar(&c.LongRepeat, "long-repeat", c.LongRepeat, "Publish every Nth repeat of a held long press (0 = first only)")
	fs.DurationVar(&c.Idle, "idle", c.Idle, "Publish IDLE after this long without a press (0 to disable)")
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&c.Broker, "broker", c.Broker, "MQTT broker address")
	fs.StringVar(&c.HTTP, "http", c.HTTP, "HTTP status address (empty to disable)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.GPIO.Backend, "backend", c.GPIO.Backend, `GPIO backend ("cdev" or "rpio")`)
	fs.StringVar(&c.GPIO.Chip, "chip", c.GPIO.Chip, "GPIO chip for the cdev backend")
	fs.IntVar(&c.GPIO.PinA, "pin-a", c.GPIO.PinA, "BCM pin number for button A")
	fs.IntVar(&c.GPIO.PinB, "pin-b", c.GPIO.PinB, "BCM pin number for button B")
	fs.DurationVar(&c.GPIO.Debounce, "debounce", c.GPIO.Debounce, "Kernel debounce period, cdev only (0 to disable)")
	fs.BoolVar(&f.PrintState, "print-state", false, "Print current button state and exit")
	fs.DurationVar(&f.Wait, "wait", 0, "Wait for one event, print it and exit (negative waits forever)")
	return f
}

// overrides copies a flag's value from src to dst.
var overrides = map[string]func(dst, src *Config){
	"poll":        func(d, s *Config) { d.Poll = s.Poll },
	"tick":        func(d, s *Config) { d.Tick = s.Tick },
	"long-press":  func(d, s *Config) { d.LongPress = s.LongPress },
	"long-repeat": func(d, s *Config) { d.LongRepeat = s.LongRepeat },
	"idle":        func(d, s *Config) { d.Idle = s.Idle },
	"heartbeat":   func(d, s *Config) { d.Heartbeat = s.Heartbeat },
	"broker":      func(d, s *Config) { d.Broker = s.Broker },
	"http":        func(d, s *Config) { d.HTTP = s.HTTP },
	"log-level":   func(d, s *Config) { d.LogLevel = s.LogLevel },
	"backend":     func(d, s *Config) { d.GPIO.Backend = s.GPIO.Backend },
	"chip":        func(d, s *Config) { d.GPIO.Chip = s.GPIO.Chip },
	"pin-a":       func(d, s *Config) { d.GPIO.PinA = s.GPIO.PinA },
	"pin-b":       func(d, s *Config) { d.GPIO.PinB = s.GPIO.PinB },
	"debounce":    func(d, s *Config) { d.GPIO.Debounce = s.GPIO.Debounce },
}

// Resolve builds the effective configuration after the flag set has been
// parsed: the config file (or defaults), then every flag set explicitly.
// The result is validated.
func (f *Flags) Resolve() (*Config, error) {
	cfg := Default()
	if f.Path != "" {
		loaded, err := Load(f.Path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f.fs.Visit(func(fl *flag.Flag) {
		if apply, ok := overrides[fl.Name]; ok {
			apply(cfg, &f.cfg)
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
