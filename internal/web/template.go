package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/jamesEmerson112/virtual-cursor/internal/logic"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
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
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"labels": func(ls []logic.Label) string {
		if len(ls) == 0 {
			return "-"
		}
		parts := make([]string, len(ls))
		for i, l := range ls {
			parts[i] = string(l)
		}
		return strings.Join(parts, ", ")
	},
	"tierClass": func(t logic.Tier) string {
		switch t {
		case logic.TierHigh:
			return "high"
		case logic.TierMedium:
			return "med"
		default:
			return "low"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Virtual Cursor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.meter { background: #eee; height: 14px; width: 100%; }
.meter div { height: 14px; background: #888; }
.low { color: #888; }
.med { color: orange; }
.high { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>Virtual Cursor<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>Control</h2>
<table>
<tr><th>Controller</th><td id="controller">{{.Controller}}</td></tr>
<tr><th>Session</th><td>{{.Session.State}}{{if .Session.ID}} ({{.Session.ID}}){{end}}</td></tr>
<tr><th>Profile</th><td>{{if .Session.ProfileReady}}{{.Session.Profile}}{{else}}not loaded{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>
<form method="post" action="/start" style="display:inline"><button>Start</button></form>
<form method="post" action="/stop" style="display:inline"><button>Stop</button></form>

<h2>Power</h2>
<div class="meter"><div id="meter" style="width: {{pct .Power.Average}}"></div></div>
<table>
<tr><th>Last</th><td id="last" class="{{tierClass .LastTier}}">{{if .LastCommand}}{{.LastCommand.Label}} {{printf "%.2f" .LastCommand.Power}}{{else}}-{{end}}</td></tr>
<tr><th>Average</th><td id="avg">{{printf "%.2f" .Power.Average}}</td></tr>
<tr><th>Max</th><td id="max">{{printf "%.2f" .Power.Max}}</td></tr>
<tr><th>Min</th><td>{{printf "%.2f" .Power.Min}}</td></tr>
<tr><th>Readings</th><td>{{.Power.Count}} / {{.Power.Capacity}}</td></tr>
<tr><th>Recent</th><td>{{labels .Power.RecentLabels}}</td></tr>
</table>

<h2>Actuation</h2>
<table>
<tr><th>Ticks</th><td>{{.Loop.Ticks}}</td></tr>
<tr><th>Moves</th><td>{{.Loop.Moves}}</td></tr>
<tr><th>Clicks</th><td>{{.Loop.Clicks}}</td></tr>
<tr><th>Suppressed</th><td>{{.Loop.Suppressed}}</td></tr>
<tr><th>Faults</th><td>{{.Loop.Faults}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Thresholds</th><td>telemetry {{.Config.TelemetryThreshold}} / action {{.Config.ActionThreshold}}</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownMs}}ms</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/stats">stats</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onclose = function() {
      dot.className = "live-dot err"; dot.title = "offline";
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (err) { return; }
      if (msg.type !== "status") { return; }
      var last = document.getElementById("last");
      last.textContent = msg.label + " " + msg.power.toFixed(2);
      last.className = msg.tier === "HIGH" ? "high" : msg.tier === "MED" ? "med" : "low";
      document.getElementById("avg").textContent = msg.average.toFixed(2);
      document.getElementById("max").textContent = msg.max.toFixed(2);
      document.getElementById("meter").style.width = Math.round(msg.average * 100) + "%";
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Ready() methods but the template reads fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}
