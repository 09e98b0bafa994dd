// Package collector drives the fixed-interval sampling cycle: each tick it
// polls the device through the gateway, parses the raw output, assembles one
// Sample and appends it to the session store. A failed command or parse only
// degrades that tick's Sample to a partial row; the loop itself stops only
// on cancellation or when the store file can no longer be written.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/parser"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/store"
)

// DeviceGateway is the slice of the adb gateway the collector needs.
type DeviceGateway interface {
	Shell(ctx context.Context, args ...string) (string, error)
}

// Config carries the collector's runtime options.
type Config struct {
	Interval   time.Duration
	AppPackage string // empty disables the app-dimension columns
	DataDir    string
	PIDPath    string // empty disables the liveness marker
}

// Collector owns one collection session.
type Collector struct {
	gw     DeviceGateway
	cfg    Config
	logger *slog.Logger
}

// New builds a Collector. Interval defaults to one second.
func New(gw DeviceGateway, cfg Config, logger *slog.Logger) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{gw: gw, cfg: cfg, logger: logger}
}

// Run opens a new session file and samples until ctx is cancelled. The tick
// cadence is drift-corrected: tick n fires at start + n*interval, so
// long-running sessions do not skew by accumulated scheduling overhead. A
// cancellation arriving mid-sleep exits before the next row is started, so
// the file always ends on a complete row.
func (c *Collector) Run(ctx context.Context) error {
	start := time.Now()

	sw, err := store.NewSessionWriter(c.cfg.DataDir, start)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sw.Close(); cerr != nil {
			c.logger.Error("closing session store", "error", cerr)
		}
	}()

	if c.cfg.PIDPath != "" {
		if err := WritePIDFile(c.cfg.PIDPath); err != nil {
			return err
		}
		defer RemovePIDFile(c.cfg.PIDPath)
	}

	c.logger.Info("collection started",
		"file", sw.Path(),
		"interval", c.cfg.Interval,
		"app_package", c.cfg.AppPackage,
	)

	for tick := 1; ; tick++ {
		next := start.Add(time.Duration(tick) * c.cfg.Interval)
		if !sleepUntil(ctx, next) {
			break
		}

		sample := c.collectOnce(ctx)
		if err := sw.Append(sample); err != nil {
			// The store itself failed (disk full, permissions); nothing
			// further can be persisted.
			c.logger.Error("store append failed, stopping collection", "error", err)
			return err
		}
	}

	c.logger.Info("collection stopped", "file", sw.Path(), "rows", sw.Rows())
	return nil
}

// sleepUntil blocks until the deadline or cancellation, reporting whether
// the deadline was reached.
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		// Behind schedule; run the tick immediately unless cancelled.
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

// collectOnce assembles one Sample. Every gateway call and parse is
// independent: a failure logs a warning and leaves its fields unset.
func (c *Collector) collectOnce(ctx context.Context) models.Sample {
	s := models.Sample{Timestamp: time.Now()}

	if out, err := c.gw.Shell(ctx, "cat", "/proc/meminfo"); err != nil {
		c.logger.Warn("meminfo query failed", "error", err)
	} else {
		mi := parser.ParseMemInfo(out)
		s.MemTotalKB = mi.TotalKB
		s.MemAvailableKB = mi.AvailableKB
		if mi.TotalKB != nil && mi.AvailableKB != nil && *mi.TotalKB > 0 {
			s.MemUsedPercent = models.Float64(parser.MemUsedPercent(*mi.TotalKB, *mi.AvailableKB))
		}
	}

	if out, err := c.gw.Shell(ctx, "cat", "/proc/stat"); err != nil {
		c.logger.Warn("cpu snapshot failed", "error", err)
	} else {
		s.TotalCPUPercent = parser.ParseCPUStat(out)
	}

	if out, err := c.gw.Shell(ctx, "dumpsys", "battery"); err != nil {
		c.logger.Warn("battery query failed", "error", err)
	} else {
		bi := parser.ParseBattery(out)
		s.BatteryLevel = bi.Level
		s.BatteryTempC = bi.TempC
	}

	if pkg := c.cfg.AppPackage; pkg != "" {
		if out, err := c.gw.Shell(ctx, "top", "-b", "-n", "1"); err != nil {
			c.logger.Warn("app cpu query failed", "package", pkg, "error", err)
		} else {
			s.AppCPUPercent = parser.ParseAppCPUTop(out, pkg)
		}

		if out, err := c.gw.Shell(ctx, "dumpsys", "meminfo", pkg); err != nil {
			c.logger.Warn("app memory query failed", "package", pkg, "error", err)
		} else {
			s.AppMemKB = parser.ParseAppMemPSS(out)
		}

		if out, err := c.gw.Shell(ctx, "dumpsys", "gfxinfo", pkg, "framestats"); err != nil {
			c.logger.Warn("gfxinfo query failed", "package", pkg, "error", err)
		} else {
			gi := parser.ParseGfxInfo(out)
			s.FPS = gi.FPS
			s.TotalFrames = gi.TotalFrames
			s.JankyFrames = gi.JankyFrames
			s.JankRatePercent = gi.JankRatePercent
		}
	}

	return s
}
