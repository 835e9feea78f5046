package power_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/ledpanel/internal/frame"
	"github.com/coreman2200/ledpanel/internal/power"
)

func whiteFrame(n int) *frame.Frame {
	f := frame.New(n, 1)
	for i := range f.Pix {
		f.Pix[i] = frame.RGB{R: 255, G: 255, B: 255}
	}
	return f
}

// Scenario 3 from spec.md §8: 4 panels of 16x16 = 1024 LEDs, full white,
// ceiling 5A, I_idle=0. Expect b_applied = 6.
func TestApplyClampsToCeiling(t *testing.T) {
	f := whiteFrame(1024)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0, Enabled: true}
	res := l.Apply(f, 255, 5.0)
	assert.True(t, res.Limited)
	assert.Equal(t, uint8(6), res.Applied)
	assert.LessOrEqual(t, res.Current, 5.0+1e-9)
}

func TestApplyPassThroughUnderCeiling(t *testing.T) {
	f := whiteFrame(10)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0, Enabled: true}
	res := l.Apply(f, 100, 50.0)
	assert.False(t, res.Limited)
	assert.Equal(t, uint8(100), res.Applied)
}

func TestApplyDisabledIsPassThrough(t *testing.T) {
	f := whiteFrame(1024)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0, Enabled: false}
	res := l.Apply(f, 255, 5.0)
	assert.False(t, res.Limited)
	assert.Equal(t, uint8(255), res.Applied)
}

func TestApplyCeilingBelowIdleIsInfeasible(t *testing.T) {
	f := whiteFrame(1024)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0.01, Enabled: true}
	res := l.Apply(f, 255, 1.0) // 1024*0.01 = 10.24A idle alone already exceeds 1A
	assert.True(t, res.Limited)
	assert.Equal(t, uint8(0), res.Applied)
}

func TestApplyBlackFrameZeroCurrentMinusIdle(t *testing.T) {
	f := frame.New(10, 1)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0, Enabled: true}
	res := l.Apply(f, 0, 5.0)
	assert.Equal(t, uint8(0), res.Applied)
	assert.Equal(t, 0.0, res.Current)
}

func TestApplyIdempotent(t *testing.T) {
	f := whiteFrame(1024)
	l := &power.Limiter{IMaxPerLED: 0.06, IIdle: 0, Enabled: true}
	r1 := l.Apply(f, 255, 5.0)
	r2 := l.Apply(f, 255, 5.0)
	assert.Equal(t, r1.Applied, r2.Applied)
}
