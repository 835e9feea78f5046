// Package power implements the current-budget limiter: given a frame and
// a requested brightness, clamp brightness so the estimated aggregate
// current never exceeds a configured ceiling. Grounded on the teacher's
// internal/render.DefaultLimiter (per-LED white cap + global budget soft
// knee) and on original_source/rpi_driver/power_limiter.py, whose
// dynamic-brightness mode is carried over as an optional feature beyond
// spec.md's hard-ceiling contract.
package power

import (
	"math"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// DefaultIMaxPerLED is the per-LED current draw in amps at full white,
// full brightness — the spec's default constant.
const DefaultIMaxPerLED = 0.06

// Limiter clamps requested brightness to stay within a current ceiling.
// Stateless and safe for concurrent use except for the dynamic-mode
// target tracking, which the controller serializes by calling Apply
// from a single goroutine.
type Limiter struct {
	IMaxPerLED float64 // amps per LED at full channel value and full brightness
	IIdle      float64 // amps per LED drawn even at brightness 0
	Enabled    bool

	// Dynamic mode: when requested brightness leaves headroom under the
	// ceiling, ramp the applied brightness up toward bReq by at most
	// Step per call instead of jumping immediately. Never exceeds
	// bReq; only smooths increases toward it.
	Dynamic bool
	Step    uint8

	target uint8 // last applied brightness, dynamic-mode ramp state
}

// New returns a Limiter with the spec's default per-LED current and no
// idle draw.
func New(enabled bool) *Limiter {
	return &Limiter{IMaxPerLED: DefaultIMaxPerLED, Enabled: enabled, Step: 4}
}

// Estimate returns the estimated current in amps for f at brightness b.
func Estimate(f *frame.Frame, b uint8, iMaxPerLED, iIdle float64) float64 {
	if f == nil {
		return 0
	}
	s := float64(f.ChannelSum())
	n := float64(len(f.Pix))
	return (s/255.0)*iMaxPerLED*(float64(b)/255.0) + n*iIdle
}

// Result is the outcome of a limiter call.
type Result struct {
	Applied uint8
	Limited bool
	Current float64 // estimated current at Applied, amps
}

// Apply computes the applied brightness for frame f, requested
// brightness bReq, under ceiling iMax (amps). If the Limiter is
// disabled, it is a pass-through and always reports Limited=false.
func (l *Limiter) Apply(f *frame.Frame, bReq uint8, iMax float64) Result {
	if l == nil || !l.Enabled {
		return Result{Applied: bReq, Limited: false, Current: Estimate(f, bReq, l.safeIMaxPerLED(), l.IIdle)}
	}

	n := 0
	if f != nil {
		n = len(f.Pix)
	}
	idleTotal := float64(n) * l.IIdle
	if iMax <= idleTotal {
		// Ceiling unreachable even at full black.
		l.target = 0
		return Result{Applied: 0, Limited: true, Current: idleTotal}
	}

	atReq := Estimate(f, bReq, l.safeIMaxPerLED(), l.IIdle)
	if atReq <= iMax {
		applied := bReq
		if l.Dynamic {
			applied = l.rampToward(bReq)
		}
		return Result{Applied: applied, Limited: applied < bReq, Current: Estimate(f, applied, l.safeIMaxPerLED(), l.IIdle)}
	}

	s := float64(0)
	if f != nil {
		s = float64(f.ChannelSum())
	}
	if s <= 0 {
		l.target = bReq
		return Result{Applied: bReq, Limited: false, Current: idleTotal}
	}

	maxB := math.Floor((iMax - idleTotal) * 255.0 * 255.0 / (s * l.safeIMaxPerLED()))
	applied := clampBrightness(maxB, bReq)
	l.target = applied
	return Result{Applied: applied, Limited: true, Current: Estimate(f, applied, l.safeIMaxPerLED(), l.IIdle)}
}

func (l *Limiter) rampToward(bReq uint8) uint8 {
	if l.target >= bReq {
		l.target = bReq
		return bReq
	}
	next := int(l.target) + int(l.Step)
	if next >= int(bReq) {
		l.target = bReq
		return bReq
	}
	l.target = uint8(next)
	return l.target
}

func (l *Limiter) safeIMaxPerLED() float64 {
	if l.IMaxPerLED > 0 {
		return l.IMaxPerLED
	}
	return DefaultIMaxPerLED
}

func clampBrightness(v float64, bReq uint8) uint8 {
	if v < 0 {
		return 0
	}
	if v > float64(bReq) {
		return bReq
	}
	return uint8(v)
}
