package status_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/arbiter"
	"github.com/coreman2200/ledpanel/internal/status"
)

func TestRecordTickAccumulates(t *testing.T) {
	p := status.New()
	t0 := time.Unix(1000, 0)
	p.RecordTick(t0, 128, true, false, 2.5, "rainbow", arbiter.Awake, 32, 32, 1024, nil)
	p.RecordTick(t0.Add(10*time.Millisecond), 200, false, true, 1.0, "rainbow", arbiter.Awake, 32, 32, 1024, nil)

	s := p.Current()
	assert.Equal(t, uint64(2), s.FramesEmitted)
	assert.Equal(t, uint8(200), s.BrightnessApplied)
	assert.Equal(t, uint64(1), s.LimitedTotal)
	assert.Equal(t, uint64(1), s.DimensionMismatchCount)
	assert.Equal(t, "rainbow", s.PatternName)
	assert.Equal(t, "awake", s.ScheduleState)
	assert.Equal(t, 1024, s.LEDCount)
}

func TestFPS1sWindowSlides(t *testing.T) {
	p := status.New()
	base := time.Unix(2000, 0)
	for i := 0; i < 30; i++ {
		p.RecordTick(base.Add(time.Duration(i)*33*time.Millisecond), 255, false, false, 0, "external", arbiter.Awake, 1, 1, 1, nil)
	}
	assert.InDelta(t, 30, p.Current().FPS1s, 2)

	p.RecordTick(base.Add(2*time.Second), 255, false, false, 0, "external", arbiter.Awake, 1, 1, 1, nil)
	assert.Equal(t, float64(1), p.Current().FPS1s)
}

func TestLastErrorRecorded(t *testing.T) {
	p := status.New()
	p.RecordTick(time.Unix(0, 0), 0, false, false, 0, "external", arbiter.Asleep, 1, 1, 1, errors.New("boom"))
	assert.Equal(t, "boom", p.Current().LastError)
	assert.Equal(t, "asleep", p.Current().ScheduleState)
}
