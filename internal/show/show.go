// Package show plays a timed sequence of pattern selections against an
// Arbiter, adapted from the teacher's internal/sequence.Player (clip
// list, running/paused/idle state machine, seek-by-absolute-time). The
// teacher's Player drove a render engine's Hooks (SetRenderer, ArmNext,
// SetCrossfade, per-tick parameter envelopes); this display pipeline
// has no multi-layer compositor to crossfade into; so clip boundaries
// are a hard cut (one SetPattern call) rather than a blend, and the
// per-tick Envelope parameter automation is dropped along with it —
// a Clip's Params are static for its whole duration, matching the
// spec's Selection.Params contract.
package show

import (
	"errors"
	"sync"

	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/pattern"
)

// Clip selects one pattern for DurationS seconds.
type Clip struct {
	Name      string
	Pattern   pattern.Selection
	DurationS float64
}

// Program is a full show: an ordered list of clips, optionally looping.
type Program struct {
	Loop  bool
	Clips []Clip
}

// State enumerates player states.
type State string

const (
	Idle    State = "idle"
	Running State = "running"
	Paused  State = "paused"
)

var ErrEmptyProgram = errors.New("program has no clips")

// Player advances through a Program's clips by wall-clock time,
// committing each clip's Selection to an Arbiter as it becomes active.
type Player struct {
	mu          sync.Mutex
	arb         *arbiter.Arbiter
	reg         *pattern.Registry
	prog        Program
	state       State
	clipElapsed float64 // seconds elapsed within the current clip
	idx         int
}

// NewPlayer returns a Player that will commit selections to arb,
// validating Internal selections against reg.
func NewPlayer(arb *arbiter.Arbiter, reg *pattern.Registry) *Player {
	return &Player{arb: arb, reg: reg, state: Idle}
}

// Load replaces the active program, resetting to Idle at clip 0.
func (p *Player) Load(prog Program) error {
	if len(prog.Clips) == 0 {
		return ErrEmptyProgram
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prog = prog
	p.clipElapsed = 0
	p.idx = 0
	p.state = Idle
	return nil
}

// Start moves to Running and commits the first clip's selection.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running {
		return nil
	}
	if len(p.prog.Clips) == 0 {
		return ErrEmptyProgram
	}
	p.state = Running
	return p.arb.SetPattern(p.prog.Clips[p.idx].Pattern, p.reg)
}

// Pause freezes playback without resetting position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Running {
		p.state = Paused
	}
}

// Resume continues playback from the paused position.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Paused {
		p.state = Running
	}
}

// Stop resets to the first clip and goes Idle.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Idle
	p.clipElapsed = 0
	p.idx = 0
}

// State returns the current player state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Tick advances the program clock by dt seconds, committing a new
// Selection to the Arbiter whenever playback crosses into the next
// clip. No-op when not Running.
func (p *Player) Tick(dt float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Running || dt <= 0 || len(p.prog.Clips) == 0 {
		return nil
	}
	p.clipElapsed += dt
	clip := p.prog.Clips[p.idx]
	if p.clipElapsed < clip.DurationS {
		return nil
	}
	next := p.nextIndex()
	if next == -1 {
		p.state = Idle
		return nil
	}
	p.idx = next
	p.clipElapsed = 0
	return p.arb.SetPattern(p.prog.Clips[p.idx].Pattern, p.reg)
}

func (p *Player) nextIndex() int {
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}
