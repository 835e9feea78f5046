// Package fake logs a compact per-frame summary, useful for headless
// smoke tests. Adapted from the teacher's internal/driver/fake.Driver.
package fake

import (
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// Driver prints an average-color summary of each rendered frame.
type Driver struct {
	log   zerolog.Logger
	count int
}

// New returns a Driver that logs through log.
func New(log zerolog.Logger) *Driver {
	return &Driver{log: log}
}

func (d *Driver) Render(phys []frame.RGB, brightness uint8) error {
	d.count++
	var r, g, b int
	for _, p := range phys {
		r += int(p.R)
		g += int(p.G)
		b += int(p.B)
	}
	n := len(phys)
	if n == 0 {
		n = 1
	}
	d.log.Debug().
		Int("frame", d.count).
		Uint8("brightness", brightness).
		Float64("avg_r", float64(r)/float64(n)).
		Float64("avg_g", float64(g)/float64(n)).
		Float64("avg_b", float64(b)/float64(n)).
		Msg("render")
	return nil
}

func (d *Driver) Close() error { return nil }
