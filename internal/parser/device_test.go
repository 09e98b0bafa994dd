package parser

import (
	"math"
	"testing"
)

const memInfoFixture = `MemTotal:        4096000 kB
MemFree:          512340 kB
MemAvailable:    1024000 kB
Buffers:          101204 kB
Cached:           894216 kB
SwapCached:            0 kB
`

func TestParseMemInfo(t *testing.T) {
	info := ParseMemInfo(memInfoFixture)
	if info.TotalKB == nil || *info.TotalKB != 4096000 {
		t.Fatalf("TotalKB: got %v, want 4096000", info.TotalKB)
	}
	if info.AvailableKB == nil || *info.AvailableKB != 1024000 {
		t.Fatalf("AvailableKB: got %v, want 1024000", info.AvailableKB)
	}

	used := MemUsedPercent(*info.TotalKB, *info.AvailableKB)
	if math.Abs(used-75.0) > 1e-9 {
		t.Errorf("MemUsedPercent: got %v, want 75.0", used)
	}
}

func TestParseMemInfoPartial(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"garbage", "no memory lines here\njust noise\n"},
		{"malformed values", "MemTotal: abc kB\nMemAvailable:\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseMemInfo(tt.text)
			if info.TotalKB != nil || info.AvailableKB != nil {
				t.Errorf("expected unset fields, got %+v", info)
			}
		})
	}
}

func TestParseCPUStat(t *testing.T) {
	text := "cpu  100 0 100 700 100 0 0 0 0 0\ncpu0 25 0 25 175 25 0 0 0 0 0\n"
	pct := ParseCPUStat(text)
	if pct == nil {
		t.Fatal("expected a value")
	}
	// busy = 1000 - 700 - 100 = 200 of 1000
	if math.Abs(*pct-20.0) > 1e-9 {
		t.Errorf("got %v, want 20.0", *pct)
	}
}

func TestParseCPUStatMalformed(t *testing.T) {
	for _, text := range []string{"", "cpu0 1 2 3 4 5\n", "cpu one two three four five\n"} {
		if got := ParseCPUStat(text); got != nil {
			t.Errorf("ParseCPUStat(%q): got %v, want nil", text, *got)
		}
	}
}

const batteryFixture = `Current Battery Service state:
  AC powered: false
  USB powered: true
  level: 85
  scale: 100
  voltage: 4123
  temperature: 273
  technology: Li-ion
`

func TestParseBattery(t *testing.T) {
	info := ParseBattery(batteryFixture)
	if info.Level == nil || *info.Level != 85 {
		t.Fatalf("Level: got %v, want 85", info.Level)
	}
	if info.TempC == nil || math.Abs(*info.TempC-27.3) > 1e-9 {
		t.Fatalf("TempC: got %v, want 27.3", info.TempC)
	}
}

func TestParseBatteryMissingBlock(t *testing.T) {
	info := ParseBattery("Can't find service: battery\n")
	if info.Level != nil || info.TempC != nil {
		t.Errorf("expected unset fields, got %+v", info)
	}
}

func TestParseAppCPUTop(t *testing.T) {
	top := `Tasks: 412 total,   1 running, 411 sleeping
  PID USER         PR  NI VIRT  RES  SHR S[%CPU] %MEM     TIME+ ARGS
 1234 u0_a123      10 -10  14G 289M 145M S 42.3   7.2  12:34.56 com.example.app
 5678 system       18  -2  13G 111M  80M S  1.0   2.8   1:02.33 system_server
`
	tests := []struct {
		name string
		pkg  string
		want *float64
	}{
		{"present", "com.example.app", f(42.3)},
		{"absent", "com.missing.app", nil},
		{"empty package", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAppCPUTop(top, tt.pkg)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && math.Abs(*got-*tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}

func f(v float64) *float64 { return &v }

const memPSSFixture = `Applications Memory Usage (in Kilobytes):
Uptime: 86400000 Realtime: 86400000

** MEMINFO in pid 1234 [com.example.app] **
                   Pss  Private  Private  SwapPss
                 Total    Dirty    Clean    Dirty
                ------   ------   ------   ------
  Native Heap    24512    24444        0        0
         TOTAL   296512   204444     1200      512

 App Summary
       TOTAL PSS:   296512
`

func TestParseAppMemPSS(t *testing.T) {
	got := ParseAppMemPSS(memPSSFixture)
	if got == nil || *got != 296512 {
		t.Fatalf("got %v, want 296512", got)
	}
	if got := ParseAppMemPSS("no meminfo here"); got != nil {
		t.Errorf("malformed input: got %v, want nil", *got)
	}
}

const gfxInfoFixture = `Graphics info for pid 1234 [com.example.app]

Total frames rendered: 2000
Janky frames: 150 (7.50%)
50th percentile: 8ms
90th percentile: 16ms

---PROFILEDATA---
Flags,IntendedVsync,Vsync,OldestInputEvent
0,1000000000,1000000000,9223372036854775807
0,1016666666,1016666666,9223372036854775807
0,1033333333,1033333333,9223372036854775807
0,1050000000,1050000000,9223372036854775807
---PROFILEDATA---
`

func TestParseGfxInfo(t *testing.T) {
	info := ParseGfxInfo(gfxInfoFixture)
	if info.TotalFrames == nil || *info.TotalFrames != 2000 {
		t.Fatalf("TotalFrames: got %v, want 2000", info.TotalFrames)
	}
	if info.JankyFrames == nil || *info.JankyFrames != 150 {
		t.Fatalf("JankyFrames: got %v, want 150", info.JankyFrames)
	}
	if info.JankRatePercent == nil || math.Abs(*info.JankRatePercent-7.5) > 1e-9 {
		t.Fatalf("JankRatePercent: got %v, want 7.5", info.JankRatePercent)
	}
	// 3 frame intervals over 50ms -> 60 fps
	if info.FPS == nil || math.Abs(*info.FPS-60.0) > 0.1 {
		t.Fatalf("FPS: got %v, want ~60", info.FPS)
	}
}

func TestParseGfxInfoFewFrames(t *testing.T) {
	text := "Total frames rendered: 5\nJanky frames: 5 (100.00%)\n"
	info := ParseGfxInfo(text)
	if info.JankRatePercent != nil {
		t.Errorf("jank rate should be unset below %d frames, got %v", minFramesForJankRate, *info.JankRatePercent)
	}
	if info.FPS != nil {
		t.Errorf("FPS should be unset without profile data, got %v", *info.FPS)
	}
}

func TestParseDisplayed(t *testing.T) {
	logs := `08-23 10:00:01.123  1000  2000 I ActivityTaskManager: START u0 {cmp=com.example.app/.MainActivity}
08-23 10:00:02.051  1000  2000 I ActivityTaskManager: Displayed com.example.app/.MainActivity: +928ms
`
	tests := []struct {
		name      string
		text      string
		component string
		want      *int64
	}{
		{"plain ms", logs, "com.example.app/.MainActivity", i(928)},
		{"seconds and ms", "ActivityTaskManager: Displayed com.example.app/.MainActivity: +1s23ms\n", "com.example.app/.MainActivity", i(1023)},
		{"other component", logs, "com.other.app/.MainActivity", nil},
		{"no marker", "nothing interesting logged\n", "com.example.app/.MainActivity", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDisplayed(tt.text, tt.component)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

func i(v int64) *int64 { return &v }

func TestParseAmStart(t *testing.T) {
	out := `Starting: Intent { cmp=com.example.app/.MainActivity }
Status: ok
LaunchState: COLD
Activity: com.example.app/.MainActivity
ThisTime: 845
TotalTime: 845
WaitTime: 892
Complete
`
	timing := ParseAmStart(out)
	if timing.ThisTimeMS == nil || *timing.ThisTimeMS != 845 {
		t.Errorf("ThisTime: got %v, want 845", timing.ThisTimeMS)
	}
	if timing.TotalTimeMS == nil || *timing.TotalTimeMS != 845 {
		t.Errorf("TotalTime: got %v, want 845", timing.TotalTimeMS)
	}
	if timing.WaitTimeMS == nil || *timing.WaitTimeMS != 892 {
		t.Errorf("WaitTime: got %v, want 892", timing.WaitTimeMS)
	}

	empty := ParseAmStart("Error: Activity not started\n")
	if empty.TotalTimeMS != nil {
		t.Errorf("error output should leave timing unset")
	}
}
