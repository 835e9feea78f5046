package arbiter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/layout"
	"github.com/coreman2200/ledpanel/internal/pattern"
)

func trivialDesc() layout.Description {
	return layout.Description{
		Grid: layout.GridDescription{
			GridWidth: 1, GridHeight: 1,
			PanelWidth: 1, PanelHeight: 1,
			WiringPattern: "sequential",
		},
		Panels: []layout.PanelDescription{
			{ID: 0, Position: [2]int{0, 0}, Rotation: 0},
		},
	}
}

func TestNewBuildsInitialSnapshot(t *testing.T) {
	a, err := arbiter.New(trivialDesc(), 10, true)
	assert.NoError(t, err)
	snap := a.Current()
	assert.Equal(t, uint8(255), snap.Brightness)
	assert.Equal(t, pattern.External, snap.Pattern)
	assert.Equal(t, arbiter.Awake, snap.Schedule)
	w, h := snap.CanvasSize()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}

func TestSetBrightnessValidates(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	assert.Error(t, a.SetBrightness(-1))
	assert.Error(t, a.SetBrightness(256))
	assert.NoError(t, a.SetBrightness(42))
	assert.Equal(t, uint8(42), a.Current().Brightness)
}

func TestSetPatternRejectsUnknown(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	err := a.SetPattern(pattern.Internal("nope", nil), pattern.NewRegistry())
	assert.Error(t, err)
}

func TestSetLayoutRejectsInvalidAndKeepsPrior(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	before := a.Current().Layout

	bad := trivialDesc()
	bad.Grid.GridWidth = 0
	err := a.SetLayout(bad)
	assert.Error(t, err)
	assert.Equal(t, before, a.Current().Layout)
}

func TestSetLayoutPublishesNewIndexTable(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	gen0 := a.Current().LayoutGeneration()

	two := layout.Description{
		Grid: layout.GridDescription{
			GridWidth: 2, GridHeight: 1,
			PanelWidth: 1, PanelHeight: 1,
			WiringPattern: "sequential",
		},
		Panels: []layout.PanelDescription{
			{ID: 0, Position: [2]int{0, 0}, Rotation: 0},
			{ID: 1, Position: [2]int{1, 0}, Rotation: 0},
		},
	}
	assert.NoError(t, a.SetLayout(two))
	snap := a.Current()
	w, h := snap.CanvasSize()
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Greater(t, snap.LayoutGeneration(), gen0)
}

func TestSetPowerCeilingValidates(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	assert.Error(t, a.SetPowerCeiling(0, true))
	assert.NoError(t, a.SetPowerCeiling(0, false))
	assert.NoError(t, a.SetPowerCeiling(3.5, true))
	assert.Equal(t, 3.5, a.Current().PowerCeiling)
}

func TestSetScheduleTogglesState(t *testing.T) {
	a, _ := arbiter.New(trivialDesc(), 10, true)
	a.SetSchedule(arbiter.Asleep)
	assert.Equal(t, arbiter.Asleep, a.Current().Schedule)
	a.SetSchedule(arbiter.Awake)
	assert.Equal(t, arbiter.Awake, a.Current().Schedule)
}
