package baseline

import (
	"sort"

	"github.com/JAMES1390825/Performance-Testing-for-Android-Devices/internal/models"
)

// Aggregate computes per-metric statistics over a window of samples. Metrics
// with no measured values in the window are omitted from the result, so a
// comparison only ever covers what both windows actually observed.
func Aggregate(window []models.Sample) map[string]models.AggregateStats {
	out := make(map[string]models.AggregateStats)
	for _, metric := range models.MetricNames {
		var values []float64
		for _, s := range window {
			if v, ok := s.MetricValue(metric); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		out[metric] = summarize(values)
	}
	return out
}

func summarize(values []float64) models.AggregateStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return models.AggregateStats{
		Mean:        sum / float64(len(sorted)),
		P50:         percentile(sorted, 50),
		P90:         percentile(sorted, 90),
		Max:         sorted[len(sorted)-1],
		SampleCount: len(sorted),
	}
}

// percentile interpolates linearly between the two closest ranks of an
// already sorted slice.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
