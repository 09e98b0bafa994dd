// Package store persists metrics. The source of truth is an append-only CSV
// file per collection session, written by exactly one collector and readable
// while it grows (readers only ever see whole rows). A SQLite read model
// (sqlite.go) ingests sessions for the dashboard's windowed queries.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
)

const (
	sessionPrefix = "metrics_"
	sessionSuffix = ".csv"

	// TimestampLayout is the ISO-8601 local-time format used in the
	// timestamp column.
	TimestampLayout = "2006-01-02T15:04:05"
)

// Header is the CSV schema. The first nine columns are the stable contract
// consumed by external tooling; the frame columns extend it.
var Header = []string{
	"timestamp",
	"total_cpu_percent",
	"mem_total_kb",
	"mem_available_kb",
	"mem_used_percent",
	"battery_level",
	"battery_temp_c",
	"app_cpu_percent",
	"app_mem_kb",
	"fps",
	"total_frames",
	"janky_frames",
	"jank_rate",
}

// ErrNoSessions is returned when the data directory has no session files.
var ErrNoSessions = errors.New("store: no metrics sessions found")

// SessionWriter appends Samples to one session file. It is not safe for
// concurrent use; the sampler is the single writer by design.
type SessionWriter struct {
	f    *os.File
	w    *csv.Writer
	path string
	rows int
}

// NewSessionWriter creates a session file named by the collection start time
// and writes the header row.
func NewSessionWriter(dir string, start time.Time) (*SessionWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating data dir: %w", err)
	}
	name := sessionPrefix + start.Format("20060102_150405") + sessionSuffix
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: creating session file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: writing header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: flushing header: %w", err)
	}

	return &SessionWriter{f: f, w: w, path: path}, nil
}

// Append writes one Sample as a row and flushes it to disk, so a crash never
// loses more than the row being written.
func (sw *SessionWriter) Append(s models.Sample) error {
	if err := sw.w.Write(encodeSample(s)); err != nil {
		return fmt.Errorf("store: appending row: %w", err)
	}
	sw.w.Flush()
	if err := sw.w.Error(); err != nil {
		return fmt.Errorf("store: flushing row: %w", err)
	}
	sw.rows++
	return nil
}

// Path returns the session file location.
func (sw *SessionWriter) Path() string { return sw.path }

// Rows returns the number of data rows appended so far.
func (sw *SessionWriter) Rows() int { return sw.rows }

// Close flushes and closes the session file.
func (sw *SessionWriter) Close() error {
	sw.w.Flush()
	flushErr := sw.w.Error()
	if err := sw.f.Close(); err != nil {
		return fmt.Errorf("store: closing session file: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("store: flushing on close: %w", flushErr)
	}
	return nil
}

func encodeSample(s models.Sample) []string {
	return []string{
		s.Timestamp.Format(TimestampLayout),
		fmtF(s.TotalCPUPercent),
		fmtI(s.MemTotalKB),
		fmtI(s.MemAvailableKB),
		fmtF(s.MemUsedPercent),
		fmtI(s.BatteryLevel),
		fmtF(s.BatteryTempC),
		fmtF(s.AppCPUPercent),
		fmtI(s.AppMemKB),
		fmtF(s.FPS),
		fmtI(s.TotalFrames),
		fmtI(s.JankyFrames),
		fmtF(s.JankRatePercent),
	}
}

func fmtF(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func fmtI(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// ListSessions returns the session file names in dir, oldest first.
func ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading data dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, sessionPrefix) && strings.HasSuffix(name, sessionSuffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// LatestSession returns the file name of the newest session in dir.
func LatestSession(dir string) (string, error) {
	names, err := ListSessions(dir)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoSessions
	}
	return names[len(names)-1], nil
}

// ReadSession loads every complete row of a session file. The file may still
// be growing; short or malformed rows are skipped and unparseable fields are
// left unset rather than failing the read.
func ReadSession(path string) ([]models.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: opening session: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("store: reading session: %w", err)
	}

	var samples []models.Sample
	for idx, rec := range records {
		if idx == 0 && len(rec) > 0 && rec[0] == "timestamp" {
			continue
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		ts, err := time.ParseInLocation(TimestampLayout, rec[0], time.Local)
		if err != nil {
			continue
		}
		s := models.Sample{Timestamp: ts}
		s.TotalCPUPercent = colF(rec, 1)
		s.MemTotalKB = colI(rec, 2)
		s.MemAvailableKB = colI(rec, 3)
		s.MemUsedPercent = colF(rec, 4)
		s.BatteryLevel = colI(rec, 5)
		s.BatteryTempC = colF(rec, 6)
		s.AppCPUPercent = colF(rec, 7)
		s.AppMemKB = colI(rec, 8)
		s.FPS = colF(rec, 9)
		s.TotalFrames = colI(rec, 10)
		s.JankyFrames = colI(rec, 11)
		s.JankRatePercent = colF(rec, 12)
		samples = append(samples, s)
	}
	return samples, nil
}

func colF(rec []string, i int) *float64 {
	if i >= len(rec) || rec[i] == "" {
		return nil
	}
	v, err := strconv.ParseFloat(rec[i], 64)
	if err != nil {
		return nil
	}
	return &v
}

func colI(rec []string, i int) *int64 {
	if i >= len(rec) || rec[i] == "" {
		return nil
	}
	v, err := strconv.ParseInt(rec[i], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
