// Package pattern owns the active PatternSelection and, when it names an
// internal generator, produces one frame per controller tick. Grounded
// on the teacher's internal/render.Registry/Renderer split (name +
// preset lookup, pure render call) but reshaped to the spec's simpler
// contract: a generator is a pure function of (W, H, frame_counter,
// params), not a stateful Renderer interface.
package pattern

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// Params is the parameter bag passed to a generator.
type Params map[string]float64

// Generator is a pure function from (W, H, frame_counter, params) to a
// PixelFrame. Must not block. Any animation state must be derivable from
// its arguments alone.
type Generator func(w, h, counter int, params Params) (*frame.Frame, error)

// Registry maps generator names to Generator functions.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Generator
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: map[string]Generator{}}
}

// Register adds or replaces the generator under name.
func (r *Registry) Register(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = g
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.m[name]
	return g, ok
}

// List returns the registered generator names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	return out
}

// Selection is either External (use only incoming frames) or an internal
// generator named by Name with Params.
type Selection struct {
	Internal bool
	Name     string
	Params   Params
}

// External is the zero-value selection: use only incoming frames.
var External = Selection{}

// Internal builds a selection naming generator name with params.
func Internal(name string, params Params) Selection {
	return Selection{Internal: true, Name: name, Params: params}
}

// FailureError reports that a generator raised while producing a frame.
type FailureError struct {
	Name string
	Err  error
}

func (e *FailureError) Error() string { return fmt.Sprintf("pattern %q failed: %v", e.Name, e.Err) }
func (e *FailureError) Unwrap() error { return e.Err }

// Runner holds the current Selection and drives the active generator
// one tick at a time.
type Runner struct {
	mu        sync.Mutex
	reg       *Registry
	selection Selection
	counter   int
	lastError error
}

// NewRunner returns a Runner backed by reg, starting in the External
// selection.
func NewRunner(reg *Registry) *Runner {
	return &Runner{reg: reg}
}

// SetSelection replaces the active selection and resets the frame
// counter to 0, per the spec's counter-reset-on-selection-change rule.
func (r *Runner) SetSelection(sel Selection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sel.Internal {
		if _, ok := r.reg.Get(sel.Name); !ok {
			return fmt.Errorf("unknown pattern %q", sel.Name)
		}
	}
	r.selection = sel
	r.counter = 0
	r.lastError = nil
	return nil
}

// Selection returns the currently active selection.
func (r *Runner) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection
}

// LastError returns the most recent PatternFailure, if any.
func (r *Runner) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// ResetCounter clears the frame counter without changing the selection,
// per the spec: cleared on Layout change and on asleep->awake transitions.
func (r *Runner) ResetCounter() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter = 0
}

// Counter returns the current frame counter, mainly for tests asserting
// it does or doesn't advance/reset across a given tick.
func (r *Runner) Counter() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// Tick produces the next frame if the selection names an internal
// generator, advancing the counter. Returns ok=false when the selection
// is External (nothing to do). On generator failure it reverts the
// selection to External and records the error for Status.
func (r *Runner) Tick(w, h int) (f *frame.Frame, ok bool, err error) {
	r.mu.Lock()
	sel := r.selection
	counter := r.counter
	r.mu.Unlock()

	if !sel.Internal {
		return nil, false, nil
	}

	gen, found := r.reg.Get(sel.Name)
	if !found {
		return nil, false, r.fail(sel.Name, errors.New("generator no longer registered"))
	}

	f, genErr := safeGenerate(gen, w, h, counter, sel.Params)
	if genErr != nil {
		return nil, false, r.fail(sel.Name, genErr)
	}
	if !f.MatchesDims(w, h) {
		return nil, false, r.fail(sel.Name, fmt.Errorf("generator returned %dx%d, want %dx%d", f.W, f.H, w, h))
	}

	r.mu.Lock()
	r.counter++
	r.mu.Unlock()
	return f, true, nil
}

func (r *Runner) fail(name string, cause error) error {
	fe := &FailureError{Name: name, Err: cause}
	r.mu.Lock()
	r.selection = External
	r.counter = 0
	r.lastError = fe
	r.mu.Unlock()
	return fe
}

// safeGenerate recovers a panicking generator, treating it as a raised
// error per the spec's generator contract.
func safeGenerate(g Generator, w, h, counter int, params Params) (f *frame.Frame, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generator panicked: %v", p)
		}
	}()
	return g(w, h, counter, params)
}
