// Package sim is an in-memory Driver for tests and -sim-only runs,
// grounded on the teacher's implied led.NewSim() selection branch in
// cmd/ledcube/main.go.
package sim

import (
	"sync"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// Driver records the last frame written without touching hardware.
type Driver struct {
	mu         sync.Mutex
	last       []frame.RGB
	brightness uint8
	writes     uint64
}

// New returns a ready Driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Render(phys []frame.RGB, brightness uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = append(d.last[:0], phys...)
	d.brightness = brightness
	d.writes++
	return nil
}

func (d *Driver) Close() error { return nil }

// Last returns a copy of the most recently rendered buffer and the
// brightness it was rendered at.
func (d *Driver) Last() ([]frame.RGB, uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]frame.RGB, len(d.last))
	copy(out, d.last)
	return out, d.brightness
}

// Writes returns the number of Render calls observed so far.
func (d *Driver) Writes() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
