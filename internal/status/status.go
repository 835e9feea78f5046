// Package status holds the read-only statistics the controller updates
// once per tick, grounded on the teacher's internal/diagnostics.Snapshot
// shape but tracking the fields spec.md §4.H names instead of render
// timings.
package status

import (
	"sync"
	"time"

	"github.com/coreman2200/ledpanel/internal/arbiter"
)

// Snapshot is a point-in-time read of the controller's running
// statistics. Safe to copy.
type Snapshot struct {
	FPS1s                  float64
	FramesEmitted          uint64
	BrightnessApplied      uint8
	LimitedTotal           uint64
	DimensionMismatchCount uint64
	CurrentEstimateAmps    float64
	PatternName            string
	ScheduleState          string
	CanvasWidth            int
	CanvasHeight           int
	LEDCount               int
	LastError              string
}

// Publisher aggregates controller-reported events into a Snapshot,
// updated once per tick and read by any number of goroutines.
type Publisher struct {
	mu sync.Mutex
	s  Snapshot

	tickTimes []time.Time // sliding window for the 1s FPS average
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// RecordTick folds one controller tick's outcome into the running
// statistics. now is supplied by the caller so the controller's single
// time source is the only place that calls time.Now.
func (p *Publisher) RecordTick(now time.Time, brightnessApplied uint8, limited bool, dimensionMismatch bool, currentEstimateAmps float64, patternName string, schedule arbiter.ScheduleState, canvasW, canvasH, ledCount int, lastError error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.s.FramesEmitted++
	p.s.BrightnessApplied = brightnessApplied
	if limited {
		p.s.LimitedTotal++
	}
	if dimensionMismatch {
		p.s.DimensionMismatchCount++
	}
	p.s.CurrentEstimateAmps = currentEstimateAmps
	p.s.PatternName = patternName
	p.s.ScheduleState = schedule.String()
	p.s.CanvasWidth = canvasW
	p.s.CanvasHeight = canvasH
	p.s.LEDCount = ledCount
	if lastError != nil {
		p.s.LastError = lastError.Error()
	}

	p.tickTimes = append(p.tickTimes, now)
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(p.tickTimes) && p.tickTimes[i].Before(cutoff) {
		i++
	}
	p.tickTimes = p.tickTimes[i:]
	p.s.FPS1s = float64(len(p.tickTimes))
}

// Current returns a copy of the latest statistics.
func (p *Publisher) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}
