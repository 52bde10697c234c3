// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by HTTP handlers and used to build MQTT status snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	TickMs      int64
	LongPressMs int64
	HeartbeatMs int64
	IdleMs      int64
	Backend     string
	PinA        int
	PinB        int
	Broker      string
	HTTPPort    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Held          logic.Mask
	LastEvent     logic.Record
	Counts        logic.EventCounts
	Idle          bool
	LastActivity  time.Time // zero until the first press
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the held buttons, last published event, counts and idle state.
// Called from runLoop on every tick.
func (t *Tracker) Update(held logic.Mask, last logic.Record, counts logic.EventCounts, idle bool) {
	t.mu.Lock()
	t.snap.Held = held
	t.snap.LastEvent = last
	t.snap.Counts = counts
	t.snap.Idle = idle
	t.mu.Unlock()
}

// SetLastActivity records the wall-clock time of the latest press.
func (t *Tracker) SetLastActivity(at time.Time) {
	t.mu.Lock()
	t.snap.LastActivity = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
