package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/status"
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
	"eventClass": func(ev knob.Event) string {
		switch ev {
		case knob.EventLeft:
			return "left"
		case knob.EventRight:
			return "right"
		}
		return "none"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Knob Sensor</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.left { color: #36c; font-weight: bold; }
.right { color: #c63; font-weight: bold; }
.none { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.stopped { color: orange; }
</style>
</head>
<body>
<h1>Knob Sensor</h1>

<h2>Knobs</h2>
{{if .Knobs}}<table>
<tr><th>Name</th><th>Pins</th><th>Count</th><th>Last</th><th>Left</th><th>Right</th></tr>
{{range .Knobs}}<tr><td><a href="/knobs/{{.Name}}">{{.Name}}</a></td><td>{{.PinA}}/{{.PinB}}</td><td>{{.Count}}</td><td class="{{eventClass .Event}}">{{.Event}}</td><td>{{.Lefts}}</td><td>{{.Rights}}</td></tr>
{{end}}</table>{{else}}<p>No knobs registered.</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Polling</th><td class="{{if .Polling}}connected{{else}}stopped{{end}}">{{if .Polling}}running{{else}}stopped{{end}}</td></tr>
<tr><th>Events</th><td>{{.Events}}{{if .Dropped}} ({{.Dropped}} dropped){{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The uptime func takes a Duration, so resolve it up front.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
