// Package arbiter serializes configuration and pattern changes against
// the display controller. It publishes immutable Snapshot values behind
// a single atomic pointer so the controller's hot path never blocks on
// a lock, grounded on the teacher's ws/state.go broadcast-state pattern
// generalized from a single mutex-guarded struct to an atomic swap per
// the spec's "readable without locking on the hot path" requirement.
package arbiter

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coreman2200/ledpanel/internal/layout"
	"github.com/coreman2200/ledpanel/internal/mapper"
	"github.com/coreman2200/ledpanel/internal/pattern"
)

// ScheduleState is either Awake or Asleep. While Asleep the controller
// emits a blank frame every tick.
type ScheduleState int

const (
	Awake ScheduleState = iota
	Asleep
)

func (s ScheduleState) String() string {
	if s == Asleep {
		return "asleep"
	}
	return "awake"
}

// Snapshot is the immutable configuration the controller reads once per
// tick. Every field is set together by one Arbiter operation; partial
// updates are never visible.
type Snapshot struct {
	Layout       layout.Layout
	IndexTable   mapper.Table
	Brightness   uint8
	Pattern      pattern.Selection
	Schedule     ScheduleState
	PowerCeiling float64
	PowerEnabled bool

	// layoutGeneration starts at 0 in New and increases by one only when
	// SetLayout publishes a new Layout, used by the controller to detect a Layout
	// change since its previous tick without being tripped by brightness,
	// pattern, schedule, or power-ceiling publishes.
	layoutGeneration uint64
}

// CanvasSize returns the Snapshot's canvas dimensions.
func (s Snapshot) CanvasSize() (w, h int) {
	return layout.CanvasSize(s.Layout)
}

// LEDCount returns the Snapshot's physical LED count.
func (s Snapshot) LEDCount() int {
	return layout.LEDCount(s.Layout)
}

// Arbiter owns the current Snapshot and serializes writers. Readers call
// Current, which never blocks.
type Arbiter struct {
	mu        sync.Mutex // serializes writers only; readers never take it
	current   atomic.Pointer[Snapshot]
	layoutGen uint64
}

// New builds an Arbiter whose initial Snapshot is built from desc, with
// brightness 255, pattern external, schedule awake, and the given power
// ceiling.
func New(desc layout.Description, powerCeilingAmps float64, powerEnabled bool) (*Arbiter, error) {
	l, err := layout.Parse(desc)
	if err != nil {
		return nil, fmt.Errorf("initial layout: %w", err)
	}
	table := mapper.Build(l)
	a := &Arbiter{}
	snap := &Snapshot{
		Layout:           l,
		IndexTable:       table,
		Brightness:       255,
		Pattern:          pattern.External,
		Schedule:         Awake,
		PowerCeiling:     powerCeilingAmps,
		PowerEnabled:     powerEnabled,
		layoutGeneration: 0,
	}
	a.current.Store(snap)
	return a, nil
}

// Current returns the latest published Snapshot. Lock-free.
func (a *Arbiter) Current() Snapshot {
	return *a.current.Load()
}

// publish builds the next Snapshot from a mutator applied to the
// current one and stores it, under the writer lock. layoutGeneration is
// left untouched; only setLayout advances it.
func (a *Arbiter) publish(mutate func(next *Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cur := *a.current.Load()
	mutate(&cur)
	a.current.Store(&cur)
}

var ErrBrightnessOutOfRange = errors.New("brightness out of range [0, 255]")

// SetBrightness validates and publishes a new brightness.
func (a *Arbiter) SetBrightness(b int) error {
	if b < 0 || b > 255 {
		return ErrBrightnessOutOfRange
	}
	a.publish(func(next *Snapshot) { next.Brightness = uint8(b) })
	return nil
}

// SetPattern validates sel against reg and publishes it.
func (a *Arbiter) SetPattern(sel pattern.Selection, reg *pattern.Registry) error {
	if sel.Internal {
		if _, ok := reg.Get(sel.Name); !ok {
			return fmt.Errorf("unknown pattern %q", sel.Name)
		}
	}
	a.publish(func(next *Snapshot) { next.Pattern = sel })
	return nil
}

// SetSchedule publishes a new ScheduleState.
func (a *Arbiter) SetSchedule(state ScheduleState) {
	a.publish(func(next *Snapshot) { next.Schedule = state })
}

var ErrInvalidPowerCeiling = errors.New("power ceiling must be > 0")

// SetPowerCeiling validates and publishes a new power ceiling.
func (a *Arbiter) SetPowerCeiling(amps float64, enabled bool) error {
	if enabled && amps <= 0 {
		return ErrInvalidPowerCeiling
	}
	a.publish(func(next *Snapshot) {
		next.PowerCeiling = amps
		next.PowerEnabled = enabled
	})
	return nil
}

// SetLayout parses desc, builds its IndexTable, and publishes both
// together. On parse or build failure the prior Snapshot is left
// unchanged and the error is returned to the caller.
func (a *Arbiter) SetLayout(desc layout.Description) error {
	l, err := layout.Parse(desc)
	if err != nil {
		return fmt.Errorf("layout validation: %w", err)
	}
	table := mapper.Build(l)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.layoutGen++
	cur := *a.current.Load()
	cur.Layout = l
	cur.IndexTable = table
	cur.layoutGeneration = a.layoutGen
	a.current.Store(&cur)
	return nil
}

// LayoutGeneration returns the Snapshot's layout publish counter, used
// by the controller to tell whether a new Layout arrived since the
// previous tick without comparing the Layout value itself. New starts
// it at 0 and it only advances on SetLayout, not on brightness,
// pattern, schedule, or power-ceiling publishes.
func (s Snapshot) LayoutGeneration() uint64 { return s.layoutGeneration }
