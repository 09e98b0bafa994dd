package server

// dashboardPage is the single-page UI. It loads session data from the JSON
// endpoints and draws one canvas chart per metric; no external assets, so
// the dashboard works on an air-gapped test bench.
const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>droidperf dashboard</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f5f6f8; color: #1f2430; }
  header { background: #1f2430; color: #fff; padding: 12px 24px; display: flex; align-items: baseline; gap: 16px; }
  header h1 { font-size: 18px; margin: 0; }
  header .version { color: #9aa3b2; font-size: 12px; }
  main { padding: 24px; max-width: 1100px; margin: 0 auto; }
  select, button { font-size: 14px; padding: 4px 8px; }
  .controls { margin-bottom: 16px; display: flex; gap: 12px; align-items: center; }
  .charts { display: grid; grid-template-columns: repeat(auto-fill, minmax(480px, 1fr)); gap: 16px; }
  .card { background: #fff; border-radius: 6px; padding: 12px 16px; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
  .card h2 { font-size: 13px; margin: 0 0 8px; color: #4a5264; }
  canvas { width: 100%; height: 160px; }
  .empty { color: #8a93a4; font-size: 13px; padding: 24px 0; text-align: center; }
  table { border-collapse: collapse; width: 100%; font-size: 13px; }
  th, td { text-align: left; padding: 4px 8px; border-bottom: 1px solid #e4e7ec; }
</style>
</head>
<body>
<header>
  <h1>droidperf</h1>
  <span class="version">{{.Version}}</span>
</header>
<main>
  <div class="controls">
    <label for="session">Session</label>
    <select id="session">
      {{range .Sessions}}<option value="{{.}}">{{.}}</option>{{end}}
    </select>
    <button id="reload">Reload</button>
  </div>

  {{if not .Sessions}}
  <p class="empty">No sessions recorded yet. Run the collector to create one.</p>
  {{end}}

  <div class="charts" id="charts"></div>

  <h2>Baselines</h2>
  {{if .Baselines}}
  <div class="card">
    <table>
      <thead><tr><th>Name</th><th>Description</th><th>Created</th><th>Data points</th></tr></thead>
      <tbody>
      {{range .Baselines}}
        <tr><td>{{.Name}}</td><td>{{.Description}}</td><td>{{.CreatedAt.Format "2006-01-02 15:04"}}</td><td>{{.DataPoints}}</td></tr>
      {{end}}
      </tbody>
    </table>
  </div>
  {{else}}
  <p class="empty">No baselines saved.</p>
  {{end}}
</main>
<script>
const metrics = [{{range $i, $m := .Metrics}}{{if $i}},{{end}}"{{$m}}"{{end}}];

function drawSeries(canvas, points) {
  const ctx = canvas.getContext("2d");
  const w = canvas.width = canvas.clientWidth * devicePixelRatio;
  const h = canvas.height = canvas.clientHeight * devicePixelRatio;
  ctx.clearRect(0, 0, w, h);
  if (points.length < 2) return;
  const values = points.map(p => p.value);
  const min = Math.min(...values), max = Math.max(...values);
  const span = (max - min) || 1;
  ctx.strokeStyle = "#3568d4";
  ctx.lineWidth = 1.5 * devicePixelRatio;
  ctx.beginPath();
  points.forEach((p, i) => {
    const x = i / (points.length - 1) * (w - 8) + 4;
    const y = h - 8 - (p.value - min) / span * (h - 16);
    i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
  });
  ctx.stroke();
}

async function load() {
  const sel = document.getElementById("session");
  if (!sel.value) return;
  const resp = await fetch("/api/sessions/" + encodeURIComponent(sel.value) + "/samples");
  if (!resp.ok) return;
  const data = await resp.json();
  const charts = document.getElementById("charts");
  charts.innerHTML = "";
  for (const metric of metrics) {
    const points = (data.series || {})[metric];
    if (!points || !points.length) continue;
    const card = document.createElement("div");
    card.className = "card";
    const last = points[points.length - 1].value;
    card.innerHTML = "<h2>" + metric + " &middot; " + last.toFixed(2) + "</h2>";
    const canvas = document.createElement("canvas");
    card.appendChild(canvas);
    charts.appendChild(card);
    drawSeries(canvas, points);
  }
}

document.getElementById("reload").addEventListener("click", load);
document.getElementById("session").addEventListener("change", load);
load();
</script>
</body>
</html>
`
