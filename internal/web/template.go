package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
	"github.com/sweeney/gap-filler/internal/status"
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
	"stateOrUnknown": func(s logic.State) string {
		if s == "" {
			return "UNKNOWN"
		}
		return string(s)
	},
	"distance": func(d float64) string {
		if logic.IsNoEcho(d) {
			return "no echo"
		}
		return fmt.Sprintf("%.1f cm", d)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Gap Filler</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.deployed { color: green; font-weight: bold; }
.monitoring { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Gap Filler</h1>

<h2>State</h2>
<table>
<tr><th>Mechanism</th><td id="state" class="{{if eq (stateOrUnknown .State) "DEPLOYED"}}deployed{{else if eq (stateOrUnknown .State) "MONITORING"}}monitoring{{else}}unknown{{end}}">{{stateOrUnknown .State}}</td></tr>
<tr><th>Distance</th><td id="distance">{{distance .Distance}}</td></tr>
<tr><th>Angle</th><td>{{.Angle}}&deg;</td></tr>
<tr><th>Detections</th><td>{{.Counters.Detections}}</td></tr>
<tr><th>Misses</th><td>{{.Counters.Misses}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else if .Config.Broker}}disconnected{{else}}disabled{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}: {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>DEPLOY</th><td>{{.Counts.Deploy}}</td></tr>
<tr><th>RETRACT</th><td>{{.Counts.Retract}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Policy</th><td>{{.Config.Policy}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.Sensor}}</td></tr>
<tr><th>Band</th><td>{{.Config.MinCM}}-{{.Config.ThresholdCM}} cm (max {{.Config.MaxCM}} cm)</td></tr>
<tr><th>Debounce</th><td>{{.Config.Debounce}} samples</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Step delay</th><td>{{.Config.StepDelayMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
