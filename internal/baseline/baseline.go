// Package baseline computes aggregate statistics over a metrics window,
// persists them as named immutable snapshots, and diffs two aggregates into
// per-metric deltas with a regression verdict.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
)

var (
	ErrDuplicateName = errors.New("baseline: name already exists")
	ErrNotFound      = errors.New("baseline: not found")
	ErrInvalidName   = errors.New("baseline: invalid name")
	ErrEmptyWindow   = errors.New("baseline: window has no samples")
)

// DefaultThresholdPercent is the verdict threshold when none is configured.
const DefaultThresholdPercent = 5.0

// higherIsBetter marks the metrics where an increase is an improvement.
// Everything else regresses when it grows.
var higherIsBetter = map[string]bool{
	"battery_level":    true,
	"mem_available_kb": true,
	"fps":              true,
	"total_frames":     true,
}

// Manager stores one JSON document per baseline in a directory, keyed by
// unique name. Baselines are immutable once written.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates a Manager over dir, creating it if needed.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("baseline: creating dir: %w", err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/\\") && name == filepath.Base(name)
}

func (m *Manager) docPath(name string) string {
	return filepath.Join(m.dir, name+".json")
}

func (m *Manager) dataPath(name string) string {
	return filepath.Join(m.dir, name+"_data.csv")
}

// Create aggregates the window and persists it under name. Fails with
// ErrDuplicateName when the name is taken, leaving the existing baseline
// untouched. The source CSV is copied alongside for later inspection.
func (m *Manager) Create(name, description, sourcePath string, window []models.Sample) (*models.Baseline, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(window) == 0 {
		return nil, ErrEmptyWindow
	}
	if _, err := os.Stat(m.docPath(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	b := &models.Baseline{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		SourceFile:  filepath.Base(sourcePath),
		DataPoints:  len(window),
		Metrics:     Aggregate(window),
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("baseline: encoding: %w", err)
	}
	if err := os.WriteFile(m.docPath(name), data, 0o644); err != nil {
		return nil, fmt.Errorf("baseline: writing: %w", err)
	}

	if sourcePath != "" {
		if err := copyFile(sourcePath, m.dataPath(name)); err != nil {
			m.logger.Warn("could not copy baseline source data", "source", sourcePath, "error", err)
		}
	}

	m.logger.Info("baseline created", "name", name, "metrics", len(b.Metrics), "data_points", b.DataPoints)
	return b, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Load reads the named baseline.
func (m *Manager) Load(name string) (*models.Baseline, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := os.ReadFile(m.docPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("baseline: reading %s: %w", name, err)
	}
	var b models.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("baseline: decoding %s: %w", name, err)
	}
	return &b, nil
}

// List returns every stored baseline, sorted by name.
func (m *Manager) List() ([]*models.Baseline, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("baseline: reading dir: %w", err)
	}
	var out []*models.Baseline
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		b, err := m.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			m.logger.Warn("skipping unreadable baseline", "file", name, "error", err)
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the named baseline and its data copy.
func (m *Manager) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.Remove(m.docPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("baseline: deleting %s: %w", name, err)
	}
	if err := os.Remove(m.dataPath(name)); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("could not remove baseline data copy", "name", name, "error", err)
	}
	m.logger.Info("baseline deleted", "name", name)
	return nil
}

// Compare aggregates the current window and diffs it against the named
// baseline. For every metric present in both, delta = current − baseline on
// the mean, and percent = delta/baseline×100 unless the baseline mean is
// zero, in which case percent stays nil.
func (m *Manager) Compare(name, currentSource string, window []models.Sample, thresholdPercent float64) (*models.ComparisonResult, error) {
	b, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return nil, ErrEmptyWindow
	}
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}

	current := Aggregate(window)
	result := &models.ComparisonResult{
		BaselineName:     name,
		CurrentSource:    filepath.Base(currentSource),
		ThresholdPercent: thresholdPercent,
	}

	for _, metric := range models.MetricNames {
		base, okBase := b.Metrics[metric]
		cur, okCur := current[metric]
		if !okBase || !okCur {
			continue
		}
		d := models.MetricDelta{
			Metric:   metric,
			Baseline: base,
			Current:  cur,
			Delta:    cur.Mean - base.Mean,
		}
		if base.Mean != 0 {
			pct := d.Delta / base.Mean * 100
			d.Percent = &pct
			d.Verdict = classify(metric, pct, thresholdPercent)
		} else {
			d.Verdict = models.VerdictUnchanged
		}
		result.Deltas = append(result.Deltas, d)
	}
	return result, nil
}

func classify(metric string, percent, threshold float64) models.Verdict {
	if percent > -threshold && percent < threshold {
		return models.VerdictUnchanged
	}
	grew := percent >= threshold
	if higherIsBetter[metric] {
		if grew {
			return models.VerdictImproved
		}
		return models.VerdictRegressed
	}
	if grew {
		return models.VerdictRegressed
	}
	return models.VerdictImproved
}
