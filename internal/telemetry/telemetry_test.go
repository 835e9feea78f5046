package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const procStatFixture = `cpu  100 0 50 850 0 0 0 0 0 0
cpu0 50 0 25 425 0 0 0 0 0 0
intr 12345
`

const memInfoFixture = `MemTotal:        8000000 kB
MemFree:         2000000 kB
MemAvailable:    3000000 kB
Buffers:          100000 kB
`

func TestParseProcStat(t *testing.T) {
	idle, total, err := parseProcStat(strings.NewReader(procStatFixture))
	assert.NoError(t, err)
	assert.Equal(t, uint64(850), idle)
	assert.Equal(t, uint64(1000), total)
}

func TestParseProcStatMissingCPULine(t *testing.T) {
	_, _, err := parseProcStat(strings.NewReader("intr 12345\n"))
	assert.Error(t, err)
}

func TestParseMemInfo(t *testing.T) {
	used, total, pct := parseMemInfo(strings.NewReader(memInfoFixture))
	assert.InDelta(t, 8000000.0/1024, total, 0.01)
	assert.InDelta(t, (8000000.0-3000000.0)/1024, used, 0.01)
	assert.InDelta(t, 62.5, pct, 0.01)
}

func TestSamplerCPUPercentRequiresTwoSamples(t *testing.T) {
	s := New()
	pct := s.sampleCPU() // no /proc/stat in most sandboxes, or no prior reading
	assert.Equal(t, 0.0, pct)
}
