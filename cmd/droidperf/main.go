package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/adb"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/baseline"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/collector"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/config"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/server"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/startup"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/store"
	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/version"
)

var Version = "dev"

const usageText = `Usage: droidperf <command> [options]

Commands:
  collect     Sample device metrics in the foreground until interrupted
  start       Launch a background collection session
  stop        Stop the background collection session
  startup     Measure cold and warm app launch times
  baseline    Manage performance baselines (create|list|show|compare|delete)
  dashboard   Serve the web dashboard
  version     Print the build version

Run 'droidperf <command> -h' for command options.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	version.Current = Version

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "collect":
		err = runCollect(cfg, logger, os.Args[2:])
	case "start":
		err = runStart(cfg, logger, os.Args[2:])
	case "stop":
		err = runStop(cfg, logger, os.Args[2:])
	case "startup":
		err = runStartup(cfg, logger, os.Args[2:])
	case "baseline":
		err = runBaseline(cfg, logger, os.Args[2:])
	case "dashboard":
		err = runDashboard(cfg, logger, os.Args[2:])
	case "version":
		runVersion()
	case "-h", "--help", "help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "droidperf: unknown command %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// gatewayFor builds the adb gateway and pins a device serial, turning the
// ambiguous-device case into an actionable message.
func gatewayFor(ctx context.Context, cfg config.Config, logger *slog.Logger) (*adb.Gateway, error) {
	gw := adb.New(cfg.ADBPath, cfg.Serial, cfg.CommandTimeout, logger)
	serial, err := gw.ResolveDevice(ctx)
	if err != nil {
		switch {
		case errors.Is(err, adb.ErrAmbiguousDevice):
			return nil, fmt.Errorf("%w: set ADB_SERIAL or pass -serial to pick one", err)
		case errors.Is(err, adb.ErrDeviceNotFound):
			return nil, fmt.Errorf("%w: connect a device and enable USB debugging", err)
		}
		return nil, err
	}
	logger.Info("device resolved", "serial", serial)
	return gw, nil
}

func runCollect(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	interval := fs.Duration("interval", cfg.Interval, "sampling interval")
	pkg := fs.String("package", cfg.AppPackage, "app package for per-app metrics (optional)")
	serial := fs.String("serial", cfg.Serial, "device serial")
	fs.Parse(args)
	cfg.Serial = *serial

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gatewayFor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	c := collector.New(gw, collector.Config{
		Interval:   *interval,
		AppPackage: *pkg,
		DataDir:    cfg.DataDir,
		PIDPath:    cfg.PIDPath(),
	}, logger)
	return c.Run(ctx)
}

// runStart spawns a detached collect process and waits for its liveness
// marker so failures surface here instead of silently in the background.
func runStart(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	interval := fs.Duration("interval", cfg.Interval, "sampling interval")
	pkg := fs.String("package", cfg.AppPackage, "app package for per-app metrics (optional)")
	serial := fs.String("serial", cfg.Serial, "device serial")
	fs.Parse(args)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if pid, err := collector.ReadPIDFile(cfg.PIDPath()); err == nil && processAlive(pid) {
		return fmt.Errorf("collection already running (pid %d); stop it first", pid)
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	childArgs := []string{"collect", "-interval", interval.String()}
	if *pkg != "" {
		childArgs = append(childArgs, "-package", *pkg)
	}
	if *serial != "" {
		childArgs = append(childArgs, "-serial", *serial)
	}

	logPath := filepath.Join(cfg.LogDir, "collector.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening collector log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(self, childArgs...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting collector: %w", err)
	}
	// Detach; the child's lifetime is tracked via the PID marker.
	if err := cmd.Process.Release(); err != nil {
		logger.Warn("could not release collector process handle", "error", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if pid, err := collector.ReadPIDFile(cfg.PIDPath()); err == nil {
			logger.Info("collection started", "pid", pid, "log", logPath)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("collector did not come up; check %s", logPath)
}

func runStop(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	wait := fs.Duration("wait", 10*time.Second, "how long to wait for a clean shutdown")
	fs.Parse(args)

	pidPath := cfg.PIDPath()
	pid, err := collector.ReadPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("no collection appears to be running: %w", err)
	}
	if !processAlive(pid) {
		collector.RemovePIDFile(pidPath)
		return fmt.Errorf("collector pid %d is not running; removed stale marker", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling collector pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(pidPath); os.IsNotExist(err) {
			logger.Info("collection stopped", "pid", pid)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	logger.Warn("collector did not exit in time, killing", "pid", pid)
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing collector pid %d: %w", pid, err)
	}
	collector.RemovePIDFile(pidPath)
	return nil
}

// processAlive probes the pid with a null signal.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func runStartup(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("startup", flag.ExitOnError)
	pkg := fs.String("package", cfg.AppPackage, "app package to launch")
	activity := fs.String("activity", cfg.AppActivity, "activity to launch")
	trials := fs.Int("trials", 3, "trials per mode")
	serial := fs.String("serial", cfg.Serial, "device serial")
	fs.Parse(args)
	cfg.Serial = *serial

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gatewayFor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	timer := startup.New(gw, startup.Config{
		Package:  *pkg,
		Activity: *activity,
		Trials:   *trials,
	}, logger)

	report, err := timer.Run(ctx)
	if err != nil {
		return err
	}
	path, err := startup.WriteReport(cfg.DataDir, report)
	if err != nil {
		return err
	}
	logger.Info("startup report written", "path", path)

	printModeResult(report.Cold)
	printModeResult(report.Warm)
	return nil
}

func printModeResult(r *models.StartupModeResult) {
	if r == nil {
		return
	}
	succeeded := 0
	for _, run := range r.Runs {
		if run.Success {
			succeeded++
		}
	}
	fmt.Printf("%s: %d/%d trials succeeded", r.Mode, succeeded, len(r.Runs))
	if r.MeanMS != nil {
		fmt.Printf(", mean %.0f ms, median %.0f ms (%s)", *r.MeanMS, *r.MedianMS, r.Grade)
	}
	fmt.Println()
}

func runBaseline(cfg config.Config, logger *slog.Logger, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: droidperf baseline <create|list|show|compare|delete> [options]")
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	mgr, err := baseline.NewManager(cfg.BaselineDir, logger)
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return baselineCreate(cfg, mgr, rest)
	case "list":
		return baselineList(mgr)
	case "show":
		return baselineShow(mgr, rest)
	case "compare":
		return baselineCompare(cfg, mgr, rest)
	case "delete":
		return baselineDelete(mgr, rest)
	}
	return fmt.Errorf("unknown baseline subcommand %q", sub)
}

// sessionWindow loads the samples of the named session, "latest" resolving
// to the most recent one. It returns the samples and the session file path.
func sessionWindow(cfg config.Config, session string) ([]models.Sample, string, error) {
	name := session
	if name == "" || name == "latest" {
		var err error
		if name, err = store.LatestSession(cfg.DataDir); err != nil {
			return nil, "", err
		}
	}
	path := filepath.Join(cfg.DataDir, name)
	samples, err := store.ReadSession(path)
	if err != nil {
		return nil, "", err
	}
	return samples, path, nil
}

func baselineCreate(cfg config.Config, mgr *baseline.Manager, args []string) error {
	fs := flag.NewFlagSet("baseline create", flag.ExitOnError)
	name := fs.String("name", "", "baseline name (required)")
	desc := fs.String("desc", "", "description")
	session := fs.String("session", "latest", "session file to aggregate")
	fs.Parse(args)
	if *name == "" {
		return errors.New("baseline create: -name is required")
	}

	window, path, err := sessionWindow(cfg, *session)
	if err != nil {
		return err
	}
	b, err := mgr.Create(*name, *desc, path, window)
	if err != nil {
		return err
	}
	fmt.Printf("baseline %q created from %s (%d data points, %d metrics)\n",
		b.Name, b.SourceFile, b.DataPoints, len(b.Metrics))
	return nil
}

func baselineList(mgr *baseline.Manager) error {
	list, err := mgr.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no baselines")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCREATED\tDATA POINTS\tSOURCE\tDESCRIPTION")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			b.Name, b.CreatedAt.Format("2006-01-02 15:04"), b.DataPoints, b.SourceFile, b.Description)
	}
	return tw.Flush()
}

func baselineShow(mgr *baseline.Manager, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: droidperf baseline show <name>")
	}
	b, err := mgr.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s  (created %s, %d data points, source %s)\n",
		b.Name, b.CreatedAt.Format("2006-01-02 15:04"), b.DataPoints, b.SourceFile)
	if b.Description != "" {
		fmt.Println(b.Description)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tMEAN\tP50\tP90\tMAX\tSAMPLES")
	for _, metric := range models.MetricNames {
		st, ok := b.Metrics[metric]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			metric, st.Mean, st.P50, st.P90, st.Max, st.SampleCount)
	}
	return tw.Flush()
}

func baselineCompare(cfg config.Config, mgr *baseline.Manager, args []string) error {
	fs := flag.NewFlagSet("baseline compare", flag.ExitOnError)
	name := fs.String("name", "", "baseline to compare against (required)")
	session := fs.String("session", "latest", "session file to compare")
	threshold := fs.Float64("threshold", baseline.DefaultThresholdPercent, "verdict threshold in percent")
	fs.Parse(args)
	if *name == "" {
		return errors.New("baseline compare: -name is required")
	}

	window, path, err := sessionWindow(cfg, *session)
	if err != nil {
		return err
	}
	result, err := mgr.Compare(*name, path, window, *threshold)
	if err != nil {
		return err
	}

	fmt.Printf("%s vs %s (threshold %.1f%%)\n", result.BaselineName, result.CurrentSource, result.ThresholdPercent)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tBASELINE\tCURRENT\tDELTA\tPERCENT\tVERDICT")
	regressions := 0
	for _, d := range result.Deltas {
		pct := "n/a"
		if d.Percent != nil {
			pct = fmt.Sprintf("%+.1f%%", *d.Percent)
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f\t%s\t%s\n",
			d.Metric, d.Baseline.Mean, d.Current.Mean, d.Delta, pct, d.Verdict)
		if d.Verdict == models.VerdictRegressed {
			regressions++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if regressions > 0 {
		return fmt.Errorf("%d metric(s) regressed", regressions)
	}
	return nil
}

func baselineDelete(mgr *baseline.Manager, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: droidperf baseline delete <name>")
	}
	if err := mgr.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("baseline %q deleted\n", args[0])
	return nil
}

func runDashboard(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	host := fs.String("host", "127.0.0.1", "host to bind")
	port := fs.Int("port", 7700, "port to listen on")
	fs.Parse(args)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	qs, err := store.NewQueryStore(filepath.Join(cfg.DataDir, "dashboard.sqlite"))
	if err != nil {
		return err
	}
	defer qs.Close()

	mgr, err := baseline.NewManager(cfg.BaselineDir, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.DataDir, qs, mgr, logger, Version)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", "addr", "http://"+addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runVersion() {
	fmt.Printf("droidperf version %s\n", Version)
	if latest, err := version.CheckUpdate(); err == nil && latest != "" {
		fmt.Printf("update available: %s\n", latest)
	}
}
