// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	crand "crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Topic is the MQTT topic for button events.
const Topic = "home/buttons/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/buttons/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(record logic.Record) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "IDLE", "ACTIVE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the button event details.
type ButtonPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Held      string `json:"held"`
	Long      bool   `json:"long"`
	Repeat    int    `json:"repeat,omitempty"`
}

// NewEventID returns a ULID whose time component is t. Times a ULID cannot
// encode (zero, before 1970 or past year 10889) use the current time instead.
func NewEventID(t time.Time) string {
	ms := ulid.Now()
	if !t.Before(time.Unix(0, 0)) && ulid.Timestamp(t) <= ulid.MaxTime() {
		ms = ulid.Timestamp(t)
	}
	id, err := ulid.New(ms, ulid.DefaultEntropy())
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id = ulid.MustNew(ms, crand.Reader)
	}
	return id.String()
}

// WithID returns r with an ID assigned if it has none.
func WithID(r logic.Record) logic.Record {
	if r.ID == "" {
		r.ID = NewEventID(r.Timestamp)
	}
	return r
}

// FormatPayload creates the JSON payload for a button event.
func FormatPayload(record logic.Record) ([]byte, error) {
	record = WithID(record)
	payload := Payload{
		Button: ButtonPayload{
			ID:        record.ID,
			Timestamp: record.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     record.Event.String(),
			Held:      record.Held.String(),
			Long:      record.Event.IsLong(),
			Repeat:    record.Repeat,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED, IDLE) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
