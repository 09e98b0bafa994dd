// Package startup measures app launch latency over repeated cold and warm
// trials. A trial launches the activity and then watches the system log for
// the Displayed marker, which the platform emits when the first frame is
// drawn; the am start wall time is kept only as auxiliary raw data.
package startup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/parser"
)

// DeviceGateway is the slice of the adb gateway the timer needs.
type DeviceGateway interface {
	Shell(ctx context.Context, args ...string) (string, error)
}

var ErrNoTarget = errors.New("startup: package and activity are required")

// Config carries one measurement session's parameters.
type Config struct {
	Package  string
	Activity string
	Trials   int // per mode; defaults to 3

	// Settle is the pause after force-stop or HOME before launching.
	// MarkerWait bounds how long one trial polls the log for the Displayed
	// marker; MarkerPoll is the polling cadence. Zero values pick defaults.
	Settle     time.Duration
	MarkerWait time.Duration
	MarkerPoll time.Duration
}

const (
	defaultTrials     = 3
	defaultSettle     = 2 * time.Second
	defaultMarkerWait = 15 * time.Second
	defaultMarkerPoll = 250 * time.Millisecond
)

// Grade thresholds in milliseconds, on the mean over successful trials.
// Cold launches include full process creation and are judged more leniently.
var gradeBounds = map[models.StartupMode][3]float64{
	models.StartupCold: {1500, 2500, 4000},
	models.StartupWarm: {800, 1500, 2500},
}

// Timer runs startup trials against one app target.
type Timer struct {
	gw     DeviceGateway
	cfg    Config
	logger *slog.Logger
}

// New builds a Timer, filling config defaults.
func New(gw DeviceGateway, cfg Config, logger *slog.Logger) *Timer {
	if cfg.Trials <= 0 {
		cfg.Trials = defaultTrials
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.MarkerWait <= 0 {
		cfg.MarkerWait = defaultMarkerWait
	}
	if cfg.MarkerPoll <= 0 {
		cfg.MarkerPoll = defaultMarkerPoll
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{gw: gw, cfg: cfg, logger: logger}
}

// Run drives the configured number of cold trials followed by the same
// number of warm trials and aggregates each mode. Individual trial failures
// are recorded, not fatal; Run errors only on cancellation or a missing
// target.
func (t *Timer) Run(ctx context.Context) (*models.StartupReport, error) {
	if t.cfg.Package == "" || t.cfg.Activity == "" {
		return nil, ErrNoTarget
	}

	report := &models.StartupReport{
		ID:        uuid.NewString(),
		Package:   t.cfg.Package,
		Activity:  t.cfg.Activity,
		CreatedAt: time.Now(),
	}

	cold, err := t.runMode(ctx, models.StartupCold)
	if err != nil {
		return nil, err
	}
	report.Cold = cold

	warm, err := t.runMode(ctx, models.StartupWarm)
	if err != nil {
		return nil, err
	}
	report.Warm = warm

	return report, nil
}

func (t *Timer) runMode(ctx context.Context, mode models.StartupMode) (*models.StartupModeResult, error) {
	result := &models.StartupModeResult{Mode: mode}
	for trial := 1; trial <= t.cfg.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run := t.runTrial(ctx, mode, trial)
		result.Runs = append(result.Runs, run)
		if run.Success {
			t.logger.Info("trial finished", "mode", mode, "trial", trial, "duration_ms", *run.DurationMS)
		} else {
			t.logger.Warn("trial failed, continuing", "mode", mode, "trial", trial)
		}
	}
	aggregate(result)
	return result, nil
}

// runTrial performs one launch measurement. Preparation differs by mode:
// cold kills the process outright, warm only backgrounds it via HOME so the
// process survives. Both then clear the log, launch, and poll for the
// Displayed marker.
func (t *Timer) runTrial(ctx context.Context, mode models.StartupMode, trial int) models.StartupRun {
	run := models.StartupRun{Trial: trial}

	var prep []string
	if mode == models.StartupCold {
		prep = []string{"am", "force-stop", t.cfg.Package}
	} else {
		prep = []string{"input", "keyevent", "3"}
	}
	if _, err := t.gw.Shell(ctx, prep...); err != nil {
		t.logger.Warn("trial preparation failed", "mode", mode, "trial", trial, "error", err)
		return run
	}
	if !sleepCtx(ctx, t.cfg.Settle) {
		return run
	}

	if _, err := t.gw.Shell(ctx, "logcat", "-c"); err != nil {
		t.logger.Warn("log clear failed", "trial", trial, "error", err)
	}

	target := t.cfg.Package + "/" + t.cfg.Activity
	out, err := t.gw.Shell(ctx, "am", "start", "-W", "-n", target)
	if err != nil {
		t.logger.Warn("launch failed", "target", target, "trial", trial, "error", err)
		return run
	}
	run.AmTotalMS = parser.ParseAmStart(out).TotalTimeMS

	run.DurationMS = t.awaitDisplayed(ctx)
	run.Success = run.DurationMS != nil
	return run
}

// awaitDisplayed polls the log dump until the Displayed marker for the
// target package appears or the wait budget runs out.
func (t *Timer) awaitDisplayed(ctx context.Context) *int64 {
	deadline := time.Now().Add(t.cfg.MarkerWait)
	for {
		out, err := t.gw.Shell(ctx, "logcat", "-d", "-s", "ActivityTaskManager:I", "ActivityManager:I")
		if err != nil {
			t.logger.Warn("log poll failed", "error", err)
		} else if ms := parser.ParseDisplayed(out, t.cfg.Package); ms != nil {
			return ms
		}
		if time.Now().After(deadline) {
			return nil
		}
		if !sleepCtx(ctx, t.cfg.MarkerPoll) {
			return nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// aggregate fills mean, median, and grade from the successful runs. With no
// successes the aggregates stay nil and the grade empty.
func aggregate(r *models.StartupModeResult) {
	var durations []float64
	for _, run := range r.Runs {
		if run.Success {
			durations = append(durations, float64(*run.DurationMS))
		}
	}
	if len(durations) == 0 {
		return
	}
	sort.Float64s(durations)

	var sum float64
	for _, d := range durations {
		sum += d
	}
	mean := sum / float64(len(durations))
	median := durations[len(durations)/2]
	if len(durations)%2 == 0 {
		median = (durations[len(durations)/2-1] + durations[len(durations)/2]) / 2
	}

	r.MeanMS = &mean
	r.MedianMS = &median
	r.Grade = gradeFor(r.Mode, mean)
}

func gradeFor(mode models.StartupMode, meanMS float64) string {
	bounds, ok := gradeBounds[mode]
	if !ok {
		return ""
	}
	switch {
	case meanMS < bounds[0]:
		return "excellent"
	case meanMS < bounds[1]:
		return "good"
	case meanMS < bounds[2]:
		return "fair"
	default:
		return "poor"
	}
}

// WriteReport persists the report as startup_YYYYMMDD_HHMMSS.json under dir
// and returns the path.
func WriteReport(dir string, report *models.StartupReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("startup: creating report dir: %w", err)
	}
	name := "startup_" + report.CreatedAt.Format("20060102_150405") + ".json"
	path := filepath.Join(dir, name)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("startup: encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("startup: writing report: %w", err)
	}
	return path, nil
}
