package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Held          string         `json:"held"`
	Idle          bool           `json:"idle"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	LastActivity  string         `json:"last_activity,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// LastEventJSON describes the most recently published button event.
type LastEventJSON struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	AShort   int `json:"a_short"`
	BShort   int `json:"b_short"`
	Both     int `json:"both"`
	ALong    int `json:"a_long"`
	BLong    int `json:"b_long"`
	BothLong int `json:"both_long"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	TickMs      int64  `json:"tick_ms"`
	LongPressMs int64  `json:"long_press_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	IdleMs      int64  `json:"idle_ms"`
	Backend     string `json:"backend"`
	PinA        int    `json:"pin_a"`
	PinB        int    `json:"pin_b"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Held:          snap.Held.String(),
		Idle:          snap.Idle,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			AShort:   snap.Counts.AShort,
			BShort:   snap.Counts.BShort,
			Both:     snap.Counts.Both,
			ALong:    snap.Counts.ALong,
			BLong:    snap.Counts.BLong,
			BothLong: snap.Counts.BothLong,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			TickMs:      snap.Config.TickMs,
			LongPressMs: snap.Config.LongPressMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			IdleMs:      snap.Config.IdleMs,
			Backend:     snap.Config.Backend,
			PinA:        snap.Config.PinA,
			PinB:        snap.Config.PinB,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}

	if snap.LastEvent.Event != logic.EventNone {
		inner.LastEvent = &LastEventJSON{
			ID:        snap.LastEvent.ID,
			Event:     snap.LastEvent.Event.String(),
			Timestamp: snap.LastEvent.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	if !snap.LastActivity.IsZero() {
		inner.LastActivity = snap.LastActivity.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
