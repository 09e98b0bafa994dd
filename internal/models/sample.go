package models

import "time"

// Sample is one point-in-time performance record read from the device.
// Every field other than Timestamp is optional: a nil pointer means the
// metric could not be measured on that tick, which is distinct from a
// measured zero. Partial samples are valid and are persisted as-is.
type Sample struct {
	Timestamp       time.Time
	TotalCPUPercent *float64
	MemTotalKB      *int64
	MemAvailableKB  *int64
	MemUsedPercent  *float64
	BatteryLevel    *int64
	BatteryTempC    *float64
	AppCPUPercent   *float64
	AppMemKB        *int64
	FPS             *float64
	TotalFrames     *int64
	JankyFrames     *int64
	JankRatePercent *float64
}

// Float64 returns a pointer to v. Convenience for building optional fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// MetricNames lists every numeric metric a Sample can carry, in the order
// they appear in the store schema. Aggregation and comparison iterate this
// list so output ordering stays stable.
var MetricNames = []string{
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

// MetricValue returns the named metric from s as a float64, with ok=false
// when the field is unset or the name is unknown.
func (s Sample) MetricValue(name string) (float64, bool) {
	switch name {
	case "total_cpu_percent":
		return derefF(s.TotalCPUPercent)
	case "mem_total_kb":
		return derefI(s.MemTotalKB)
	case "mem_available_kb":
		return derefI(s.MemAvailableKB)
	case "mem_used_percent":
		return derefF(s.MemUsedPercent)
	case "battery_level":
		return derefI(s.BatteryLevel)
	case "battery_temp_c":
		return derefF(s.BatteryTempC)
	case "app_cpu_percent":
		return derefF(s.AppCPUPercent)
	case "app_mem_kb":
		return derefI(s.AppMemKB)
	case "fps":
		return derefF(s.FPS)
	case "total_frames":
		return derefI(s.TotalFrames)
	case "janky_frames":
		return derefI(s.JankyFrames)
	case "jank_rate":
		return derefF(s.JankRatePercent)
	}
	return 0, false
}

func derefF(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefI(p *int64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}
