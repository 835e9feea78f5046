package pattern_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/pattern"
)

func TestExternalSelectionProducesNothing(t *testing.T) {
	r := pattern.NewRunner(pattern.NewRegistry())
	f, ok, err := r.Tick(4, 4)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestCounterIncrementsAndResetsOnSelectionChange(t *testing.T) {
	reg := pattern.NewRegistry()
	var seen []int
	reg.Register("recorder", func(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
		seen = append(seen, counter)
		return frame.New(w, h), nil
	})
	r := pattern.NewRunner(reg)
	assert.NoError(t, r.SetSelection(pattern.Internal("recorder", nil)))
	for i := 0; i < 3; i++ {
		_, ok, err := r.Tick(2, 2)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)

	assert.NoError(t, r.SetSelection(pattern.Internal("recorder", nil)))
	_, _, _ = r.Tick(2, 2)
	assert.Equal(t, []int{0, 1, 2, 0}, seen)
}

func TestGeneratorFailureRevertsToExternal(t *testing.T) {
	reg := pattern.NewRegistry()
	reg.Register("boom", func(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
		if counter >= 2 {
			return nil, errors.New("kaboom")
		}
		return frame.New(w, h), nil
	})
	r := pattern.NewRunner(reg)
	assert.NoError(t, r.SetSelection(pattern.Internal("boom", nil)))
	_, ok, err := r.Tick(2, 2)
	assert.True(t, ok)
	assert.NoError(t, err)
	_, ok, err = r.Tick(2, 2)
	assert.True(t, ok)
	assert.NoError(t, err)
	_, ok, err = r.Tick(2, 2)
	assert.False(t, ok)
	var fe *pattern.FailureError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, pattern.External, r.Selection())
	assert.Error(t, r.LastError())
}

func TestGeneratorPanicIsTreatedAsFailure(t *testing.T) {
	reg := pattern.NewRegistry()
	reg.Register("panicky", func(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
		panic("boom")
	})
	r := pattern.NewRunner(reg)
	assert.NoError(t, r.SetSelection(pattern.Internal("panicky", nil)))
	_, ok, err := r.Tick(2, 2)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, pattern.External, r.Selection())
}

func TestSetSelectionRejectsUnknownGenerator(t *testing.T) {
	r := pattern.NewRunner(pattern.NewRegistry())
	err := r.SetSelection(pattern.Internal("nope", nil))
	assert.Error(t, err)
}

func TestDimensionMismatchFromGeneratorIsFailure(t *testing.T) {
	reg := pattern.NewRegistry()
	reg.Register("wrong-size", func(w, h, counter int, p pattern.Params) (*frame.Frame, error) {
		return frame.New(w+1, h), nil
	})
	r := pattern.NewRunner(reg)
	assert.NoError(t, r.SetSelection(pattern.Internal("wrong-size", nil)))
	_, ok, err := r.Tick(4, 4)
	assert.False(t, ok)
	assert.Error(t, err)
}
