// Package config builds the explicit configuration struct that every
// component receives at construction time. Values come from the process
// environment (optionally seeded from a .env file, matching the original
// tooling surface) and can be overridden per-subcommand with flags. No
// component reads the environment on its own.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultInterval       = time.Second
	DefaultCommandTimeout = 10 * time.Second
)

// Config carries everything the collector, startup timer, baseline engine
// and dashboard need. Constructed once in main and passed down.
type Config struct {
	ADBPath        string        // adb binary, default "adb" from PATH
	Serial         string        // device serial override, empty = auto-resolve
	Interval       time.Duration // sampler tick interval
	AppPackage     string        // optional target package; enables app columns
	AppActivity    string        // activity for startup tests
	DataDir        string        // metrics sessions and startup reports
	LogDir         string        // collector log and PID marker
	BaselineDir    string        // baseline documents
	CommandTimeout time.Duration // per-gateway-call bound
}

// Load reads the environment into a Config. A .env file in the working
// directory is loaded first when present; a missing file is not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ADBPath:        envOr("ADB_PATH", "adb"),
		Serial:         os.Getenv("ADB_SERIAL"),
		Interval:       DefaultInterval,
		AppPackage:     os.Getenv("APP_PACKAGE"),
		AppActivity:    envOr("APP_ACTIVITY", ".MainActivity"),
		DataDir:        envOr("DATA_DIR", "data"),
		LogDir:         envOr("LOG_DIR", "logs"),
		BaselineDir:    envOr("BASELINE_DIR", "baselines"),
		CommandTimeout: DefaultCommandTimeout,
	}

	if v := os.Getenv("SAMPLE_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.Interval = time.Duration(secs * float64(time.Second))
		}
	}
	if v := os.Getenv("ADB_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CommandTimeout = d
		}
	}

	return cfg
}

// PIDPath is the liveness marker location for the running collector.
func (c Config) PIDPath() string {
	return filepath.Join(c.LogDir, "collector.pid")
}

// EnsureDirs creates the data, log and baseline directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.LogDir, c.BaselineDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
