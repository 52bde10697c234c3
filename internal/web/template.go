package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/button-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"utc": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"pressed": func(held, bit uint8) bool {
		return held&bit != 0
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Button Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Button Sensor</h1>

<h2>Buttons</h2>
<table>
<tr><th>A</th><td id="a-state" class="{{if pressed .HeldBits 1}}on{{else}}off{{end}}">{{if pressed .HeldBits 1}}PRESSED{{else}}RELEASED{{end}}</td></tr>
<tr><th>B</th><td id="b-state" class="{{if pressed .HeldBits 2}}on{{else}}off{{end}}">{{if pressed .HeldBits 2}}PRESSED{{else}}RELEASED{{end}}</td></tr>
<tr><th>Last event</th><td id="last-event">{{if .LastEvent.Event}}{{.LastEvent.Event}} at {{utc .LastEvent.Timestamp}}{{else}}none{{end}}</td></tr>
<tr><th>Last activity</th><td>{{utc .LastActivity}}</td></tr>
<tr><th>Idle</th><td>{{if .Idle}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>A short</th><td>{{.Counts.AShort}}</td></tr>
<tr><th>B short</th><td>{{.Counts.BShort}}</td></tr>
<tr><th>Both</th><td>{{.Counts.Both}}</td></tr>
<tr><th>A long</th><td>{{.Counts.ALong}}</td></tr>
<tr><th>B long</th><td>{{.Counts.BLong}}</td></tr>
<tr><th>Both long</th><td>{{.Counts.BothLong}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}} A={{.Config.PinA}} B={{.Config.PinB}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Idle after</th><td>{{if eq .Config.IdleMs 0}}disabled{{else}}{{.Config.IdleMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		HeldBits uint8
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		HeldBits: uint8(snap.Held),
	}
	return indexTmpl.Execute(w, data)
}
