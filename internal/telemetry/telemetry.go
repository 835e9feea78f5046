// Package telemetry periodically samples host CPU load, memory, and SoC
// temperature, surfaced independently of Status per the original
// driver's separate monitor loop. Grounded on
// original_source/rpi_driver/system_monitor.py, reduced to the fields
// SPEC_FULL assigns it (LED current estimation stays in
// internal/status, which already tracks it from the limiter's own
// result). No library in the retrieval pack addresses host metrics
// collection, so this reads /proc and /sys directly.
package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sample is one point-in-time reading.
type Sample struct {
	CPUPercent    float64
	MemUsedMB     float64
	MemTotalMB    float64
	MemPercent    float64
	TempCelsius   float64 // 0 if unavailable
	TempAvailable bool
	SampledAt     time.Time
}

// Sampler holds the previous /proc/stat reading needed to compute a CPU
// percentage delta between samples.
type Sampler struct {
	mu        sync.Mutex
	last      Sample
	prevIdle  uint64
	prevTotal uint64
	haveProc  bool
}

// New returns a Sampler with no prior reading.
func New() *Sampler {
	return &Sampler{}
}

// Sample reads the current CPU, memory, and temperature state. The
// first call's CPUPercent is always 0 since there is no prior reading
// to diff against.
func (s *Sampler) Sample() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpuPct := s.sampleCPU()
	usedMB, totalMB, memPct := sampleMem()
	temp, ok := sampleTemp()

	sample := Sample{
		CPUPercent:    cpuPct,
		MemUsedMB:     usedMB,
		MemTotalMB:    totalMB,
		MemPercent:    memPct,
		TempCelsius:   temp,
		TempAvailable: ok,
		SampledAt:     time.Now(),
	}
	s.last = sample
	return sample
}

// Last returns the most recently taken Sample without sampling again.
func (s *Sampler) Last() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sampler) sampleCPU() float64 {
	idle, total, err := readProcStat()
	if err != nil {
		return 0
	}
	defer func() {
		s.prevIdle, s.prevTotal, s.haveProc = idle, total, true
	}()
	if !s.haveProc || total <= s.prevTotal {
		return 0
	}
	deltaTotal := total - s.prevTotal
	deltaIdle := idle - s.prevIdle
	if deltaTotal == 0 {
		return 0
	}
	return (1 - float64(deltaIdle)/float64(deltaTotal)) * 100
}

// readProcStat reads the aggregate "cpu" line of /proc/stat and returns
// (idleJiffies, totalJiffies).
func readProcStat() (idle, total uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	return parseProcStat(f)
}

// parseProcStat extracts (idleJiffies, totalJiffies) from /proc/stat
// content, split out for testing without a real /proc filesystem.
func parseProcStat(r io.Reader) (idle, total uint64, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		var sum uint64
		for i, v := range fields {
			n, perr := strconv.ParseUint(v, 10, 64)
			if perr != nil {
				continue
			}
			sum += n
			if i == 3 { // idle is the 4th field
				idle = n
			}
		}
		return idle, sum, nil
	}
	return 0, 0, fmt.Errorf("no cpu line in /proc/stat")
}

func sampleMem() (usedMB, totalMB, percent float64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, 0
	}
	defer f.Close()
	return parseMemInfo(f)
}

// parseMemInfo extracts used/total MB and percent from /proc/meminfo
// content, split out for testing without a real /proc filesystem.
func parseMemInfo(r io.Reader) (usedMB, totalMB, percent float64) {
	var totalKB, availableKB uint64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			availableKB, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if totalKB == 0 {
		return 0, 0, 0
	}
	usedKB := totalKB - availableKB
	totalMB = float64(totalKB) / 1024
	usedMB = float64(usedKB) / 1024
	percent = float64(usedKB) / float64(totalKB) * 100
	return usedMB, totalMB, percent
}

func sampleTemp() (float64, bool) {
	b, err := os.ReadFile("/sys/class/thermal/thermal_zone0/temp")
	if err != nil {
		return 0, false
	}
	milliC, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(milliC) / 1000.0, true
}
