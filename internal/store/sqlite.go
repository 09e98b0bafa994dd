package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
)

const sampleSchema = `
CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session TEXT NOT NULL,
    ts INTEGER NOT NULL,
    metric TEXT NOT NULL,
    value REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_session_metric_ts ON samples(session, metric, ts);
CREATE INDEX IF NOT EXISTS idx_samples_session_ts ON samples(session, ts);
`

// Point is one (timestamp, value) pair of a metric series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// QueryStore is the dashboard's read model: CSV sessions are ingested into
// SQLite so the web UI can run windowed queries while the collector keeps
// appending. Ingestion is incremental; rows already loaded are never
// rewritten, matching the append-only discipline of the session files.
type QueryStore struct {
	db *sql.DB

	mu       sync.Mutex
	ingested map[string]int // session name -> CSV rows already loaded
}

// NewQueryStore opens (creating if needed) the SQLite database at dbPath.
func NewQueryStore(dbPath string) (*QueryStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("store: opening sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			slog.Warn("failed to set pragma", "pragma", p, "error", err)
		}
	}

	if _, err := db.Exec(sampleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initializing schema: %w", err)
	}

	return &QueryStore{db: db, ingested: make(map[string]int)}, nil
}

// IngestSession loads any rows of the given session CSV that have not been
// loaded yet. It returns the number of newly ingested rows. Safe to call
// repeatedly against a session that is still being written.
func (qs *QueryStore) IngestSession(path string) (int, error) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	session := filepath.Base(path)
	samples, err := ReadSession(path)
	if err != nil {
		return 0, err
	}

	already := qs.ingested[session]
	if len(samples) <= already {
		return 0, nil
	}
	fresh := samples[already:]

	tx, err := qs.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: beginning ingest tx: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO samples (session, ts, metric, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("store: preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range fresh {
		ts := s.Timestamp.Unix()
		for _, metric := range models.MetricNames {
			v, ok := s.MetricValue(metric)
			if !ok {
				continue
			}
			if _, err := stmt.Exec(session, ts, metric, v); err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("store: inserting sample row: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: committing ingest: %w", err)
	}

	qs.ingested[session] = len(samples)
	return len(fresh), nil
}

// Series returns the points of one metric in a session, oldest first,
// optionally bounded by [from, to]. Zero times mean unbounded.
func (qs *QueryStore) Series(session, metric string, from, to time.Time) ([]Point, error) {
	query := "SELECT ts, value FROM samples WHERE session = ? AND metric = ?"
	args := []any{session, metric}
	if !from.IsZero() {
		query += " AND ts >= ?"
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += " AND ts <= ?"
		args = append(args, to.Unix())
	}
	query += " ORDER BY ts ASC"

	rows, err := qs.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: querying series: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var ts int64
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("store: scanning series row: %w", err)
		}
		points = append(points, Point{Timestamp: time.Unix(ts, 0), Value: v})
	}
	return points, rows.Err()
}

// AllSeries returns every metric series of a session keyed by metric name.
func (qs *QueryStore) AllSeries(session string, from, to time.Time) (map[string][]Point, error) {
	out := make(map[string][]Point)
	for _, metric := range models.MetricNames {
		points, err := qs.Series(session, metric, from, to)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			out[metric] = points
		}
	}
	return out, nil
}

// LatestValues returns the most recent value per metric in a session.
func (qs *QueryStore) LatestValues(session string) (map[string]float64, error) {
	rows, err := qs.db.Query(`
		SELECT metric, value FROM samples
		WHERE session = ? AND id IN (
			SELECT MAX(id) FROM samples WHERE session = ? GROUP BY metric
		)`, session, session)
	if err != nil {
		return nil, fmt.Errorf("store: querying latest values: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var metric string
		var v float64
		if err := rows.Scan(&metric, &v); err != nil {
			return nil, fmt.Errorf("store: scanning latest value: %w", err)
		}
		out[metric] = v
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (qs *QueryStore) Close() error {
	return qs.db.Close()
}
