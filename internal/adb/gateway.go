// Package adb wraps the Android Debug Bridge command surface. All device
// access in this project goes through the Gateway: it selects the target
// device, bounds every invocation with a timeout, and classifies failures so
// callers can decide whether to degrade or abort. No retries happen here;
// retry policy belongs to the caller.
package adb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrDeviceNotFound  = errors.New("adb: device not found")
	ErrAmbiguousDevice = errors.New("adb: multiple devices attached and no serial configured")
	ErrTimeout         = errors.New("adb: command timed out")
	ErrCommandFailed   = errors.New("adb: command failed")
)

// runner executes a process and returns its stdout, stderr and error. The
// Gateway's runner is injectable so tests can script device responses
// without a real adb binary.
type runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// Gateway invokes adb commands against a single target device.
type Gateway struct {
	path    string
	serial  string
	timeout time.Duration
	logger  *slog.Logger
	run     runner
}

// New builds a Gateway for the adb binary at path. An empty serial means the
// device is resolved from whatever is attached; timeout bounds each call.
func New(path, serial string, timeout time.Duration, logger *slog.Logger) *Gateway {
	if path == "" {
		path = "adb"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		path:    path,
		serial:  serial,
		timeout: timeout,
		logger:  logger,
		run:     execRun,
	}
}

func execRun(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Serial reports the configured serial override, if any.
func (g *Gateway) Serial() string { return g.serial }

// Command runs `adb [-s serial] args...` and returns its stdout. Errors are
// classified into the package sentinels; the raw stderr is wrapped in for
// context.
func (g *Gateway) Command(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(args)+2)
	if g.serial != "" {
		full = append(full, "-s", g.serial)
	}
	full = append(full, args...)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stdout, stderr, err := g.run(ctx, g.path, full...)
	if err != nil {
		cerr := g.classify(ctx, stderr, err)
		g.logger.Debug("adb command failed", "args", strings.Join(args, " "), "error", cerr)
		return stdout, cerr
	}
	return stdout, nil
}

// Shell runs `adb shell args...`.
func (g *Gateway) Shell(ctx context.Context, args ...string) (string, error) {
	return g.Command(ctx, append([]string{"shell"}, args...)...)
}

func (g *Gateway) classify(ctx context.Context, stderr string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
	}
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "more than one device"),
		strings.Contains(lower, "multiple devices"):
		return ErrAmbiguousDevice
	case strings.Contains(lower, "device not found"),
		strings.Contains(lower, "no devices/emulators found"),
		strings.Contains(lower, "device offline"):
		return ErrDeviceNotFound
	}
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrCommandFailed, msg)
}

// Devices lists the serials of attached devices in the "device" state.
func (g *Gateway) Devices(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stdout, stderr, err := g.run(ctx, g.path, "devices")
	if err != nil {
		return nil, g.classify(ctx, stderr, err)
	}

	var serials []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// ResolveDevice pins the gateway to one device. With a serial configured it
// verifies the device is attached; otherwise exactly one attached device is
// required, failing with ErrDeviceNotFound or ErrAmbiguousDevice.
func (g *Gateway) ResolveDevice(ctx context.Context) (string, error) {
	serials, err := g.Devices(ctx)
	if err != nil {
		return "", err
	}

	if g.serial != "" {
		for _, s := range serials {
			if s == g.serial {
				return g.serial, nil
			}
		}
		return "", fmt.Errorf("%w: serial %q not attached", ErrDeviceNotFound, g.serial)
	}

	switch len(serials) {
	case 0:
		return "", ErrDeviceNotFound
	case 1:
		g.serial = serials[0]
		return g.serial, nil
	default:
		return "", fmt.Errorf("%w: attached %s", ErrAmbiguousDevice, strings.Join(serials, ", "))
	}
}
