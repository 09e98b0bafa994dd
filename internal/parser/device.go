// Package parser turns raw adb text output into typed partial results. The
// device bridge's output format is vendor- and version-variable, so every
// function here is best-effort: a field whose expected line or pattern is
// absent stays unset (nil), never zero and never an error. Downstream code
// can therefore tell "measured zero" apart from "unavailable".
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// MemInfo holds the device-wide memory fields parsed from /proc/meminfo.
type MemInfo struct {
	TotalKB     *int64
	AvailableKB *int64
}

// ParseMemInfo scans /proc/meminfo style output for MemTotal and
// MemAvailable. Values are in kB.
func ParseMemInfo(text string) MemInfo {
	info := MemInfo{}
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.TrimSuffix(fields[0], ":")
		val, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			info.TotalKB = &val
		case "MemAvailable":
			info.AvailableKB = &val
		}
	}
	return info
}

// MemUsedPercent derives the used-memory percentage from totals. It is never
// read from the device directly.
func MemUsedPercent(totalKB, availableKB int64) float64 {
	if totalKB <= 0 {
		return 0
	}
	return (1 - float64(availableKB)/float64(totalKB)) * 100
}

// ParseCPUStat computes a device-wide CPU busy percentage from a single
// /proc/stat snapshot: busy = total - idle - iowait over the cumulative
// counters since boot. A single instantaneous snapshot (rather than the
// delta of two samples) is a rough estimate subject to noise; that is a
// known precision limitation of the measurement, kept deliberately.
func ParseCPUStat(text string) *float64 {
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		var total, idle float64
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil
			}
			total += v
			// fields: user nice system idle iowait irq softirq ...
			if i == 3 || i == 4 {
				idle += v
			}
		}
		if total <= 0 {
			return nil
		}
		pct := (total - idle) / total * 100
		return &pct
	}
	return nil
}

// BatteryInfo holds the fields parsed from `dumpsys battery`.
type BatteryInfo struct {
	Level *int64   // 0-100
	TempC *float64 // device reports tenths of a degree
}

// ParseBattery scans `dumpsys battery` output. The raw temperature is in
// tenths of a degree Celsius and is converted here.
func ParseBattery(text string) BatteryInfo {
	info := BatteryInfo{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val := strings.TrimSpace(rest)
		switch strings.TrimSpace(key) {
		case "level":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 && v <= 100 {
				info.Level = &v
			}
		case "temperature":
			if raw, err := strconv.ParseFloat(val, 64); err == nil {
				c := raw / 10.0
				info.TempC = &c
			}
		}
	}
	return info
}

// ParseAppCPUTop extracts the %CPU column for the given package from
// `top -b -n 1` output. Column positions vary between vendors, so the row is
// scanned for the first plausible CPU value after the PID: a decimal number
// in [0, 800] (top always prints %CPU with a fractional part, and multi-core
// devices can exceed 100). Integer columns such as priority and nice are
// skipped by the decimal-point requirement.
func ParseAppCPUTop(text, pkg string) *float64 {
	if pkg == "" {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, pkg) {
			continue
		}
		fields := strings.Fields(line)
		for i, f := range fields {
			if i == 0 {
				continue // PID column
			}
			f = strings.TrimSuffix(f, "%")
			if !strings.Contains(f, ".") || strings.Contains(f, ":") {
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				continue
			}
			if v >= 0 && v <= 800 {
				return &v
			}
		}
	}
	return nil
}

// ParseAppMemPSS extracts the total PSS in kB from `dumpsys meminfo <pkg>`.
// The summary row starts with "TOTAL" (some builds emit "TOTAL PSS:"); the
// first integer field after the label is the PSS.
func ParseAppMemPSS(text string) *int64 {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "TOTAL" {
			continue
		}
		start := 1
		if fields[1] == "PSS:" && len(fields) > 2 {
			start = 2
		}
		for _, f := range fields[start:] {
			if v, err := strconv.ParseInt(f, 10, 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

// GfxInfo holds frame statistics parsed from `dumpsys gfxinfo <pkg>
// framestats`.
type GfxInfo struct {
	TotalFrames     *int64
	JankyFrames     *int64
	JankRatePercent *float64
	FPS             *float64
}

// minFramesForJankRate guards against jank-rate noise on a nearly static
// screen with a handful of frames.
const minFramesForJankRate = 10

// maxReportedFPS caps the derived frame rate at the fastest common panel.
const maxReportedFPS = 120.0

// ParseGfxInfo scans gfxinfo output for total and janky frame counters and
// derives the jank rate and an FPS estimate from the PROFILEDATA vsync
// timestamps.
func ParseGfxInfo(text string) GfxInfo {
	info := GfxInfo{}
	var vsyncs []int64
	inProfile := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if strings.Contains(line, "---PROFILEDATA---") {
			inProfile = !inProfile
			continue
		}
		if inProfile {
			if line == "" || strings.HasPrefix(line, "Flags") {
				continue
			}
			parts := strings.Split(line, ",")
			if len(parts) >= 2 {
				// column 0 is Flags, column 1 is IntendedVsync (ns)
				if v, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64); err == nil && v > 0 {
					vsyncs = append(vsyncs, v)
				}
			}
			continue
		}

		if rest, ok := strings.CutPrefix(line, "Total frames rendered:"); ok {
			if v, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64); err == nil {
				info.TotalFrames = &v
			}
		} else if rest, ok := strings.CutPrefix(line, "Janky frames:"); ok {
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				if v, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
					info.JankyFrames = &v
				}
			}
		}
	}

	if info.TotalFrames != nil && info.JankyFrames != nil && *info.TotalFrames >= minFramesForJankRate {
		rate := float64(*info.JankyFrames) / float64(*info.TotalFrames) * 100
		info.JankRatePercent = &rate
	}

	if len(vsyncs) >= 2 {
		durationNS := vsyncs[len(vsyncs)-1] - vsyncs[0]
		if durationNS > 0 {
			fps := float64(len(vsyncs)-1) / (float64(durationNS) / 1e9)
			if fps > maxReportedFPS {
				fps = maxReportedFPS
			}
			info.FPS = &fps
		}
	}

	return info
}

// displayedDurationRegex matches logcat launch durations: "+928ms", "+1s23ms".
var displayedDurationRegex = regexp.MustCompile(`\+(?:(\d+)s)?(\d+)ms`)

// ParseDisplayed finds the system log "Displayed <component>: +<duration>"
// marker and returns the launch duration in milliseconds.
func ParseDisplayed(text, component string) *int64 {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "Displayed") || !strings.Contains(line, component) {
			continue
		}
		m := displayedDurationRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var ms int64
		if m[1] != "" {
			secs, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			ms += secs * 1000
		}
		rest, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		ms += rest
		return &ms
	}
	return nil
}

// AmStartTiming holds the timing lines reported by `am start -W`.
type AmStartTiming struct {
	ThisTimeMS  *int64
	TotalTimeMS *int64
	WaitTimeMS  *int64
}

// ParseAmStart scans `am start -W` output for its ThisTime/TotalTime/WaitTime
// report.
func ParseAmStart(text string) AmStartTiming {
	timing := AmStartTiming{}
	for _, line := range strings.Split(text, "\n") {
		key, rest, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "ThisTime":
			timing.ThisTimeMS = &v
		case "TotalTime":
			timing.TotalTimeMS = &v
		case "WaitTime":
			timing.WaitTimeMS = &v
		}
	}
	return timing
}
