package mailbox_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/mailbox"
)

func TestLatestWins(t *testing.T) {
	m := mailbox.New(2, 2)
	f1 := frame.New(2, 2)
	f1.Set(0, 0, frame.RGB{R: 1})
	f2 := frame.New(2, 2)
	f2.Set(0, 0, frame.RGB{R: 2})

	assert.NoError(t, m.Submit(f1))
	assert.NoError(t, m.Submit(f2))

	got, _, ok := m.Take()
	assert.True(t, ok)
	assert.Equal(t, uint8(2), got.At(0, 0).R)
}

func TestTakeEmptiesSlot(t *testing.T) {
	m := mailbox.New(1, 1)
	assert.NoError(t, m.Submit(frame.New(1, 1)))
	_, _, ok := m.Take()
	assert.True(t, ok)
	_, _, ok = m.Take()
	assert.False(t, ok)
}

func TestDimensionMismatchRejected(t *testing.T) {
	m := mailbox.New(4, 4)
	err := m.Submit(frame.New(2, 2))
	assert.ErrorIs(t, err, mailbox.ErrDimensionMismatch)
}

func TestSetExpectedDimsAffectsFutureSubmits(t *testing.T) {
	m := mailbox.New(4, 4)
	m.SetExpectedDims(2, 2)
	assert.NoError(t, m.Submit(frame.New(2, 2)))
}
