package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/baseline"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/store"
)

func seedSession(t *testing.T, dir string, values ...float64) string {
	t.Helper()
	start := time.Date(2026, 8, 23, 9, 0, 0, 0, time.Local)
	sw, err := store.NewSessionWriter(dir, start)
	if err != nil {
		t.Fatalf("NewSessionWriter: %v", err)
	}
	for i, v := range values {
		v := v
		s := models.Sample{
			Timestamp:       start.Add(time.Duration(i) * time.Second),
			TotalCPUPercent: &v,
			BatteryLevel:    models.Int64(88),
		}
		if err := sw.Append(s); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return filepath.Base(sw.Path())
}

func newTestServer(t *testing.T, dataDir string) *Server {
	t.Helper()
	qs, err := store.NewQueryStore(filepath.Join(t.TempDir(), "query.db"))
	if err != nil {
		t.Fatalf("NewQueryStore: %v", err)
	}
	t.Cleanup(func() { qs.Close() })

	mgr, err := baseline.NewManager(filepath.Join(t.TempDir(), "baselines"), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	srv, err := New(dataDir, qs, mgr, nil, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body: %v", body)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options: %q", got)
	}
}

func TestSessionsEndpoint(t *testing.T) {
	dir := t.TempDir()
	name := seedSession(t, dir, 10, 20, 30)
	srv := newTestServer(t, dir)

	rec := get(t, srv, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", rec.Code, rec.Body)
	}
	var body struct {
		Sessions []string `json:"sessions"`
		Latest   string   `json:"latest"`
	}
	decode(t, rec, &body)
	if len(body.Sessions) != 1 || body.Sessions[0] != name {
		t.Errorf("sessions: %v", body.Sessions)
	}
	if body.Latest != name {
		t.Errorf("latest: %q, want %q", body.Latest, name)
	}
}

func TestSamplesEndpoint(t *testing.T) {
	dir := t.TempDir()
	name := seedSession(t, dir, 10, 20, 30)
	srv := newTestServer(t, dir)

	for _, path := range []string{
		"/api/sessions/" + name + "/samples",
		"/api/sessions/latest/samples",
	} {
		rec := get(t, srv, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d, body: %s", path, rec.Code, rec.Body)
		}
		var body struct {
			Session string                   `json:"session"`
			Series  map[string][]store.Point `json:"series"`
		}
		decode(t, rec, &body)
		if body.Session != name {
			t.Errorf("%s: session %q, want %q", path, body.Session, name)
		}
		if got := len(body.Series["total_cpu_percent"]); got != 3 {
			t.Errorf("%s: cpu points: %d, want 3", path, got)
		}
		if got := len(body.Series["battery_level"]); got != 3 {
			t.Errorf("%s: battery points: %d, want 3", path, got)
		}
	}
}

func TestSamplesWindowed(t *testing.T) {
	dir := t.TempDir()
	name := seedSession(t, dir, 10, 20, 30, 40)
	srv := newTestServer(t, dir)

	from := time.Date(2026, 8, 23, 9, 0, 2, 0, time.Local).Format(time.RFC3339)
	rec := get(t, srv, "/api/sessions/"+name+"/samples?from="+from)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", rec.Code, rec.Body)
	}
	var body struct {
		Series map[string][]store.Point `json:"series"`
	}
	decode(t, rec, &body)
	if got := len(body.Series["total_cpu_percent"]); got != 2 {
		t.Errorf("windowed points: %d, want 2", got)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	dir := t.TempDir()
	name := seedSession(t, dir, 10, 20, 30)
	srv := newTestServer(t, dir)

	rec := get(t, srv, "/api/sessions/"+name+"/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", rec.Code, rec.Body)
	}
	var body struct {
		DataPoints int                               `json:"data_points"`
		Metrics    map[string]models.AggregateStats `json:"metrics"`
	}
	decode(t, rec, &body)
	if body.DataPoints != 3 {
		t.Errorf("data_points: %d, want 3", body.DataPoints)
	}
	if cpu := body.Metrics["total_cpu_percent"]; cpu.Mean != 20 {
		t.Errorf("cpu mean: %v, want 20", cpu.Mean)
	}
}

func TestBaselineEndpoints(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, 10, 20, 30)
	srv := newTestServer(t, dir)

	window := []models.Sample{{
		Timestamp:       time.Now(),
		TotalCPUPercent: models.Float64(15),
	}}
	if _, err := srv.baselines.Create("v1", "release", "", window); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := get(t, srv, "/api/baselines")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: %d", rec.Code)
	}
	var list struct {
		Baselines []*models.Baseline `json:"baselines"`
	}
	decode(t, rec, &list)
	if len(list.Baselines) != 1 || list.Baselines[0].Name != "v1" {
		t.Errorf("baselines: %+v", list.Baselines)
	}

	if rec := get(t, srv, "/api/baselines/v1"); rec.Code != http.StatusOK {
		t.Errorf("show status: %d", rec.Code)
	}
	if rec := get(t, srv, "/api/baselines/ghost"); rec.Code != http.StatusNotFound {
		t.Errorf("missing baseline status: %d, want 404", rec.Code)
	}

	rec = get(t, srv, "/api/compare/v1?session=latest&threshold=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("compare status: %d, body: %s", rec.Code, rec.Body)
	}
	var result models.ComparisonResult
	decode(t, rec, &result)
	if result.BaselineName != "v1" || len(result.Deltas) == 0 {
		t.Errorf("comparison: %+v", result)
	}

	if rec := get(t, srv, "/api/compare/ghost"); rec.Code != http.StatusNotFound {
		t.Errorf("compare missing baseline status: %d, want 404", rec.Code)
	}
}

func TestSessionNameValidation(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	rec := get(t, srv, "/api/sessions/..%2F..%2Fetc/summary")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Errorf("traversal name status: %d, want 400 or 404", rec.Code)
	}
}

func TestDashboardPage(t *testing.T) {
	dir := t.TempDir()
	seedSession(t, dir, 10, 20)
	srv := newTestServer(t, dir)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type: %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "droidperf") {
		t.Error("page body should mention the app")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	dir := t.TempDir()
	name := seedSession(t, dir, 10, 20)
	srv := newTestServer(t, dir)

	// Trigger an ingest so the counters move.
	if rec := get(t, srv, "/api/sessions/"+name+"/samples"); rec.Code != http.StatusOK {
		t.Fatalf("samples status: %d", rec.Code)
	}

	rec := get(t, srv, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "droidperf_rows_ingested_total") {
		t.Error("rows-ingested counter missing from exposition")
	}
	if !strings.Contains(body, "droidperf_http_requests_total") {
		t.Error("request counter missing from exposition")
	}
}
