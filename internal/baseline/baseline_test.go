package baseline

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
)

func window(cpu ...float64) []models.Sample {
	ts := time.Date(2026, 8, 23, 10, 0, 0, 0, time.Local)
	out := make([]models.Sample, 0, len(cpu))
	for i, v := range cpu {
		v := v
		out = append(out, models.Sample{
			Timestamp:       ts.Add(time.Duration(i) * time.Second),
			TotalCPUPercent: &v,
			BatteryLevel:    models.Int64(90),
		})
	}
	return out
}

func TestAggregate(t *testing.T) {
	stats := Aggregate(window(10, 20, 30, 40, 50, 60, 70, 80, 90, 100))
	cpu, ok := stats["total_cpu_percent"]
	if !ok {
		t.Fatal("total_cpu_percent missing from aggregate")
	}
	if math.Abs(cpu.Mean-55.0) > 1e-9 {
		t.Errorf("Mean: got %v, want 55", cpu.Mean)
	}
	if math.Abs(cpu.P50-55.0) > 1e-9 {
		t.Errorf("P50: got %v, want 55", cpu.P50)
	}
	if math.Abs(cpu.P90-91.0) > 1e-9 {
		t.Errorf("P90: got %v, want 91", cpu.P90)
	}
	if cpu.Max != 100 {
		t.Errorf("Max: got %v, want 100", cpu.Max)
	}
	if cpu.SampleCount != 10 {
		t.Errorf("SampleCount: got %d, want 10", cpu.SampleCount)
	}

	if _, ok := stats["app_cpu_percent"]; ok {
		t.Error("app_cpu_percent should be absent when never measured")
	}
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreateAndLoad(t *testing.T) {
	m := newManager(t)
	b, err := m.Create("v1.0.0", "release baseline", "metrics_20260823_100000.csv", window(10, 20, 30))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == "" {
		t.Error("baseline should carry an id")
	}

	loaded, err := m.Load("v1.0.0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "v1.0.0" || loaded.Description != "release baseline" {
		t.Errorf("loaded: %+v", loaded)
	}
	if loaded.SourceFile != "metrics_20260823_100000.csv" {
		t.Errorf("SourceFile: got %q", loaded.SourceFile)
	}
	if loaded.DataPoints != 3 {
		t.Errorf("DataPoints: got %d, want 3", loaded.DataPoints)
	}
}

func TestCreateDuplicateLeavesOriginal(t *testing.T) {
	m := newManager(t)
	if _, err := m.Create("v1", "first", "", window(10, 20)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := m.Create("v1", "second", "", window(90, 95))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v, want ErrDuplicateName", err)
	}

	loaded, err := m.Load("v1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Description != "first" {
		t.Errorf("original baseline was modified: %+v", loaded)
	}
	if math.Abs(loaded.Metrics["total_cpu_percent"].Mean-15.0) > 1e-9 {
		t.Errorf("original stats were modified: %+v", loaded.Metrics["total_cpu_percent"])
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	m := newManager(t)
	if _, err := m.Create("../escape", "", "", window(1)); !errors.Is(err, ErrInvalidName) {
		t.Errorf("path traversal name: got %v, want ErrInvalidName", err)
	}
	if _, err := m.Create("ok", "", "", nil); !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("empty window: got %v, want ErrEmptyWindow", err)
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	m := newManager(t)
	winA := window(10, 20, 30)
	winB := window(20, 40, 60)

	if _, err := m.Create("a", "", "", winA); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("b", "", "", winB); err != nil {
		t.Fatal(err)
	}

	aVsB, err := m.Compare("a", "current", winB, 5)
	if err != nil {
		t.Fatalf("Compare a vs B: %v", err)
	}
	bVsA, err := m.Compare("b", "current", winA, 5)
	if err != nil {
		t.Fatalf("Compare b vs A: %v", err)
	}

	deltas := func(r *models.ComparisonResult) map[string]float64 {
		out := make(map[string]float64)
		for _, d := range r.Deltas {
			out[d.Metric] = d.Delta
		}
		return out
	}
	dAB, dBA := deltas(aVsB), deltas(bVsA)
	if len(dAB) == 0 {
		t.Fatal("no deltas produced")
	}
	for metric, d := range dAB {
		if math.Abs(d+dBA[metric]) > 1e-9 {
			t.Errorf("%s: deltas not antisymmetric: %v vs %v", metric, d, dBA[metric])
		}
	}
}

func TestCompareVerdicts(t *testing.T) {
	m := newManager(t)
	base := []models.Sample{{
		Timestamp:       time.Now(),
		TotalCPUPercent: models.Float64(50),
		BatteryLevel:    models.Int64(100),
		FPS:             models.Float64(60),
	}}
	if _, err := m.Create("base", "", "", base); err != nil {
		t.Fatal(err)
	}

	current := []models.Sample{{
		Timestamp:       time.Now(),
		TotalCPUPercent: models.Float64(60),  // +20% -> regressed
		BatteryLevel:    models.Int64(80),    // -20% -> regressed (higher is better)
		FPS:             models.Float64(59),  // -1.7% -> unchanged
	}}

	result, err := m.Compare("base", "current", current, 5)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	want := map[string]models.Verdict{
		"total_cpu_percent": models.VerdictRegressed,
		"battery_level":     models.VerdictRegressed,
		"fps":               models.VerdictUnchanged,
	}
	for _, d := range result.Deltas {
		if v, ok := want[d.Metric]; ok && d.Verdict != v {
			t.Errorf("%s: verdict got %s, want %s (percent %v)", d.Metric, d.Verdict, v, d.Percent)
		}
	}
}

func TestCompareZeroBaselineGuard(t *testing.T) {
	m := newManager(t)
	base := []models.Sample{{Timestamp: time.Now(), AppCPUPercent: models.Float64(0)}}
	if _, err := m.Create("idle", "", "", base); err != nil {
		t.Fatal(err)
	}

	current := []models.Sample{{Timestamp: time.Now(), AppCPUPercent: models.Float64(12)}}
	result, err := m.Compare("idle", "current", current, 5)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	var found bool
	for _, d := range result.Deltas {
		if d.Metric == "app_cpu_percent" {
			found = true
			if d.Percent != nil {
				t.Errorf("percent should be nil for zero baseline, got %v", *d.Percent)
			}
			if d.Delta != 12 {
				t.Errorf("delta: got %v, want 12", d.Delta)
			}
		}
	}
	if !found {
		t.Fatal("app_cpu_percent delta missing")
	}
}

func TestCompareMissingBaseline(t *testing.T) {
	m := newManager(t)
	if _, err := m.Compare("ghost", "current", window(1), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	m := newManager(t)
	for _, name := range []string{"beta", "alpha"} {
		if _, err := m.Create(name, "", "", window(1, 2)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Fatalf("list: got %d entries, want alpha then beta", len(list))
	}

	if err := m.Delete("alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Load("alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
	if err := m.Delete("alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}

	if _, err := os.Stat(m.docPath("beta")); err != nil {
		t.Errorf("beta should survive alpha's deletion: %v", err)
	}
}
