// Package controller implements the display pipeline's fixed-cadence
// loop: the only component that touches the hardware. Grounded on the
// teacher's internal/app.Conductor tick loop (read state, render, push
// to driver, sleep to cadence) generalized to the spec's priority chain
// of pattern runner -> mailbox -> power limiter -> coordinate mapper.
package controller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/hwdriver"
	"github.com/coreman2200/ledpanel/internal/mailbox"
	"github.com/coreman2200/ledpanel/internal/pattern"
	"github.com/coreman2200/ledpanel/internal/power"
	"github.com/coreman2200/ledpanel/internal/status"
)

// Controller drives the hardware at a fixed cadence, merging frames from
// the mailbox and the pattern runner under the Arbiter's published
// Snapshot. Owned exclusively by the goroutine running Run.
type Controller struct {
	arb     *arbiter.Arbiter
	mbox    *mailbox.Mailbox
	runner  *pattern.Runner
	limiter *power.Limiter
	driver  hwdriver.Driver
	statusP *status.Publisher
	log     zerolog.Logger

	fps int

	lastFrame     *frame.Frame
	emittedAny    bool
	lastLayoutGen uint64
	wasAsleep     bool
	lastCommanded pattern.Selection
}

// New wires a Controller from its collaborators. fps is the target tick
// rate (default 30 if <= 0).
func New(arb *arbiter.Arbiter, mbox *mailbox.Mailbox, runner *pattern.Runner, limiter *power.Limiter, driver hwdriver.Driver, statusP *status.Publisher, log zerolog.Logger, fps int) *Controller {
	if fps <= 0 {
		fps = 30
	}
	return &Controller{
		arb:     arb,
		mbox:    mbox,
		runner:  runner,
		limiter: limiter,
		driver:  driver,
		statusP: statusP,
		log:     log,
		fps:     fps,
	}
}

// Run drives the tick loop until ctx is cancelled. On cancellation it
// emits one black frame, logs, and returns nil.
func (c *Controller) Run(ctx context.Context) error {
	period := time.Second / time.Duration(c.fps)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	c.log.Info().Int("fps", c.fps).Msg("controller started")

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

// shutdown emits a single black frame and releases the driver, per the
// spec's cancellation contract.
func (c *Controller) shutdown() {
	snap := c.arb.Current()
	w, h := snap.CanvasSize()
	black := frame.New(w, h)
	phys := c.indexInto(black, snap)
	if err := c.driver.Render(phys, 0); err != nil {
		c.log.Warn().Err(err).Msg("render on shutdown failed")
	}
	if err := c.driver.Close(); err != nil {
		c.log.Warn().Err(err).Msg("driver close failed")
	}
	c.log.Info().Msg("controller stopped")
}

// tick runs one iteration of the loop described in spec.md §4.F.
func (c *Controller) tick(now time.Time) {
	snap := c.arb.Current()
	w, h := snap.CanvasSize()

	if snap.LayoutGeneration() != c.lastLayoutGen {
		c.lastLayoutGen = snap.LayoutGeneration()
		c.lastFrame = nil
		c.emittedAny = false
		c.mbox.SetExpectedDims(w, h)
		c.runner.ResetCounter()
	}

	awake := snap.Schedule == arbiter.Awake
	if awake && c.wasAsleep {
		c.runner.ResetCounter()
	}
	c.wasAsleep = !awake

	// The Arbiter's Snapshot carries the *commanded* selection; the
	// Runner is the engine actually executing it and may have reverted
	// to External on its own after a generator failure. Sync the
	// runner only when the command itself changed, so a sticky revert
	// is not immediately re-armed on the next tick.
	if !sameSelection(snap.Pattern, c.lastCommanded) {
		if err := c.runner.SetSelection(snap.Pattern); err != nil {
			c.log.Warn().Err(err).Str("pattern", snap.Pattern.Name).Msg("pattern selection rejected")
		}
		c.lastCommanded = snap.Pattern
	}

	var chosen *frame.Frame
	var dimensionMismatch bool

	if !awake {
		chosen = frame.New(w, h)
	} else {
		active := c.runner.Selection()
		if active.Internal {
			if f, ok, err := c.runner.Tick(w, h); err != nil {
				c.log.Warn().Err(err).Str("pattern", active.Name).Msg("pattern generator failed")
			} else if ok {
				if err := c.mbox.Submit(f); err != nil {
					c.log.Warn().Err(err).Msg("pattern frame rejected by mailbox")
				}
			}
		}

		taken, _, ok := c.mbox.Take()
		switch {
		case ok && taken.MatchesDims(w, h):
			chosen = taken
		case ok:
			dimensionMismatch = true
			chosen = c.reuseOrBlack(w, h)
		default:
			chosen = c.reuseOrBlack(w, h)
		}
	}

	result := c.limiter.Apply(chosen, snap.Brightness, snap.PowerCeiling)
	phys := c.indexInto(chosen, snap)

	if err := c.driver.Render(phys, result.Applied); err != nil {
		c.log.Warn().Err(err).Msg("hardware render failed")
	}

	c.lastFrame = chosen
	c.emittedAny = true

	c.statusP.RecordTick(now, result.Applied, result.Limited, dimensionMismatch, result.Current, patternName(c.runner.Selection()), snap.Schedule, w, h, snap.LEDCount(), c.runner.LastError())
}

// sameSelection reports whether a and b name the same pattern, ignoring
// parameter values (a params-only change does not reset the counter).
func sameSelection(a, b pattern.Selection) bool {
	return a.Internal == b.Internal && a.Name == b.Name
}

// reuseOrBlack returns the last emitted frame if its dimensions still
// match the active canvas, else a freshly allocated black frame.
func (c *Controller) reuseOrBlack(w, h int) *frame.Frame {
	if c.emittedAny && c.lastFrame != nil && c.lastFrame.MatchesDims(w, h) {
		return c.lastFrame
	}
	return frame.New(w, h)
}

// indexInto builds the physical LED buffer for f using snap's IndexTable.
// Pixels outside any unit (a hole in the layout) are left black.
func (c *Controller) indexInto(f *frame.Frame, snap arbiter.Snapshot) []frame.RGB {
	n := snap.LEDCount()
	phys := make([]frame.RGB, n)
	table := snap.IndexTable
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			p := table.Physical(x, y)
			if p < 0 || p >= n {
				continue
			}
			phys[p] = f.At(x, y)
		}
	}
	return phys
}

func patternName(sel pattern.Selection) string {
	if !sel.Internal {
		return "external"
	}
	return sel.Name
}
