// Package schedule flips the Arbiter's ScheduleState on and off at
// configured wall-clock times, grounded on
// original_source/rpi_driver/sleep_scheduler.py's SleepScheduler (a
// polling loop comparing the current time-of-day against an off/on
// window, handling the midnight-spanning case) and on the teacher's
// internal/app.Conductor ticker-driven loop for the run-until-cancelled
// shape.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/arbiter"
)

// Window is an on/off wall-clock schedule expressed as minutes since
// midnight, local time.
type Window struct {
	Enabled   bool
	OffMinute int
	OnMinute  int
}

// ParseWindow parses "HH:MM" off/on strings into a Window.
func ParseWindow(off, on string, enabled bool) (Window, error) {
	offMin, err := parseHHMM(off)
	if err != nil {
		return Window{}, fmt.Errorf("off time: %w", err)
	}
	onMin, err := parseHHMM(on)
	if err != nil {
		return Window{}, fmt.Errorf("on time: %w", err)
	}
	return Window{Enabled: enabled, OffMinute: offMin, OnMinute: onMin}, nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// ShouldSleep reports whether nowMinute (minutes since local midnight)
// falls inside the off/on window, handling the case where the window
// spans midnight. An off time equal to the on time sleeps all day.
func (w Window) ShouldSleep(nowMinute int) bool {
	if !w.Enabled {
		return false
	}
	if w.OffMinute < w.OnMinute {
		// Off time precedes on time the same day, e.g. sleeping 07:00 -> 23:00.
		return nowMinute >= w.OffMinute && nowMinute < w.OnMinute
	}
	// Off time follows on time, so the window spans midnight, e.g. 23:00 -> 07:00.
	return nowMinute >= w.OffMinute || nowMinute < w.OnMinute
}

// Scheduler polls the wall clock and publishes ScheduleState transitions
// to the Arbiter.
type Scheduler struct {
	arb      *arbiter.Arbiter
	window   Window
	log      zerolog.Logger
	interval time.Duration
}

// New returns a Scheduler that polls every interval (defaults to 30s,
// matching the original poller's cadence).
func New(arb *arbiter.Arbiter, window Window, log zerolog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{arb: arb, window: window, log: log, interval: interval}
}

// SetWindow replaces the active window, taking effect on the next poll.
func (s *Scheduler) SetWindow(w Window) {
	s.window = w
}

// Run polls until ctx is cancelled, publishing Awake/Asleep transitions
// to the Arbiter whenever the wall clock crosses the window boundary.
func (s *Scheduler) Run(ctx context.Context) {
	s.pollOnce(time.Now())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.pollOnce(now)
		}
	}
}

func (s *Scheduler) pollOnce(now time.Time) {
	if !s.window.Enabled {
		return
	}
	nowMinute := now.Hour()*60 + now.Minute()
	wantAsleep := s.window.ShouldSleep(nowMinute)
	current := s.arb.Current().Schedule

	switch {
	case wantAsleep && current == arbiter.Awake:
		s.log.Info().Msg("sleep window entered")
		s.arb.SetSchedule(arbiter.Asleep)
	case !wantAsleep && current == arbiter.Asleep:
		s.log.Info().Msg("sleep window exited")
		s.arb.SetSchedule(arbiter.Awake)
	}
}
