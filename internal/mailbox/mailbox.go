// Package mailbox implements the single-slot, latest-wins frame hand-off
// between many producers (ingress adapters, the pattern runner) and the
// one consumer (the display controller). Grounded on the teacher's
// single-owner render buffers and on e7canasta-orion-care-sensor's
// framebus "drop frames, never queue" philosophy, simplified to exactly
// one slot since the controller only ever wants the newest frame.
package mailbox

import (
	"errors"
	"sync"

	"github.com/coreman2200/ledpanel/internal/frame"
)

// ErrDimensionMismatch is returned by Submit when the frame's dimensions
// do not match the mailbox's currently expected canvas size.
var ErrDimensionMismatch = errors.New("frame dimension mismatch")

// Mailbox holds at most one pending frame plus a monotonic tag.
// Submit overwrites any unconsumed prior frame; Take empties the slot.
// Safe for concurrent use by many submitters and one taker.
type Mailbox struct {
	mu      sync.Mutex
	frame   *frame.Frame
	tag     uint64
	nextTag uint64
	expectW int
	expectH int
}

// New returns an empty Mailbox expecting frames of size w×h.
func New(w, h int) *Mailbox {
	return &Mailbox{expectW: w, expectH: h}
}

// SetExpectedDims updates the dimensions Submit validates against. Call
// this when the active Layout changes.
func (m *Mailbox) SetExpectedDims(w, h int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectW, m.expectH = w, h
}

// Submit overwrites any unconsumed frame with f. Rejects f whose
// dimensions do not match the expected canvas.
func (m *Mailbox) Submit(f *frame.Frame) error {
	if f == nil {
		return errors.New("nil frame")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !f.MatchesDims(m.expectW, m.expectH) {
		return ErrDimensionMismatch
	}
	m.frame = f
	m.nextTag++
	m.tag = m.nextTag
	return nil
}

// Take empties the slot and returns the held frame, if any. Non-blocking.
func (m *Mailbox) Take() (f *frame.Frame, tag uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return nil, 0, false
	}
	f, tag = m.frame, m.tag
	m.frame = nil
	return f, tag, true
}
