package models

import "time"

// StartupMode distinguishes launches from a fully stopped process from
// launches of a backgrounded one.
type StartupMode string

const (
	StartupCold StartupMode = "cold"
	StartupWarm StartupMode = "warm"
)

// StartupRun is one measured app-launch trial. DurationMS is nil when the
// first-frame marker never appeared within the wait budget; such trials stay
// in the raw list but are excluded from aggregates. AmTotalMS carries the
// TotalTime reported by `am start -W` as auxiliary raw data when available.
type StartupRun struct {
	Trial      int    `json:"trial_index"`
	DurationMS *int64 `json:"duration_ms"`
	AmTotalMS  *int64 `json:"am_total_ms,omitempty"`
	Success    bool   `json:"success"`
}

// StartupModeResult aggregates the trials of one mode.
type StartupModeResult struct {
	Mode     StartupMode  `json:"mode"`
	Runs     []StartupRun `json:"runs"`
	MeanMS   *float64     `json:"mean_ms"`
	MedianMS *float64     `json:"median_ms"`
	Grade    string       `json:"grade,omitempty"`
}

// StartupReport is the persisted result of one startup test session.
type StartupReport struct {
	ID        string             `json:"id"`
	Package   string             `json:"package"`
	Activity  string             `json:"activity"`
	CreatedAt time.Time          `json:"created_at"`
	Cold      *StartupModeResult `json:"cold,omitempty"`
	Warm      *StartupModeResult `json:"warm,omitempty"`
}
