package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WritePIDFile records the current process id as the collection liveness
// marker. Its presence means a collector believes it is running; it is
// removed on clean exit so the stop command can detect liveness.
func WritePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("collector: creating pid dir: %w", err)
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("collector: writing pid file: %w", err)
	}
	return nil
}

// ReadPIDFile returns the process id recorded in the marker.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("collector: reading pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("collector: malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile deletes the marker; a missing file is not an error.
func RemovePIDFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		// Best effort; the stop command treats a stale marker as dead anyway.
		fmt.Fprintf(os.Stderr, "collector: removing pid file: %v\n", err)
	}
}
