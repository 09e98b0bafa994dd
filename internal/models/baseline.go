package models

import "time"

// AggregateStats summarizes one metric over a window of samples.
type AggregateStats struct {
	Mean        float64 `json:"mean"`
	P50         float64 `json:"p50"`
	P90         float64 `json:"p90"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sample_count"`
}

// Baseline is a named, immutable snapshot of aggregate statistics computed
// from one metrics session. It is only ever deleted by explicit user action.
type Baseline struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	CreatedAt   time.Time                 `json:"created_at"`
	SourceFile  string                    `json:"source_file"`
	DataPoints  int                       `json:"data_points"`
	Metrics     map[string]AggregateStats `json:"metrics"`
}

// Verdict classifies a metric delta relative to the comparison threshold.
type Verdict string

const (
	VerdictImproved  Verdict = "improved"
	VerdictRegressed Verdict = "regressed"
	VerdictUnchanged Verdict = "unchanged"
)

// MetricDelta is the per-metric outcome of comparing a current window
// against a baseline. Delta and Percent are computed on the mean; Percent is
// nil when the baseline mean is zero.
type MetricDelta struct {
	Metric   string         `json:"metric"`
	Baseline AggregateStats `json:"baseline"`
	Current  AggregateStats `json:"current"`
	Delta    float64        `json:"delta"`
	Percent  *float64       `json:"percent"`
	Verdict  Verdict        `json:"verdict"`
}

// ComparisonResult holds the full baseline-vs-current diff.
type ComparisonResult struct {
	BaselineName     string        `json:"baseline_name"`
	CurrentSource    string        `json:"current_source"`
	ThresholdPercent float64       `json:"threshold_percent"`
	Deltas           []MetricDelta `json:"deltas"`
}
