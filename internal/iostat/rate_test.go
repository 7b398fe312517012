package iostat_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/pentactl/internal/iostat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mb = 1024 * 1024

func TestFirstSampleReportsZero(t *testing.T) {
	calc := iostat.NewCalculator()

	rate := calc.Update("sda", 100*mb, 50*mb, time.Now())
	assert.Zero(t, rate.RxMBps)
	assert.Zero(t, rate.TxMBps)
}

func TestSteadyRate(t *testing.T) {
	calc := iostat.NewCalculator()
	t0 := time.Now()

	calc.Update("sda", 100*mb, 100*mb, t0)
	rate := calc.Update("sda", 110*mb, 105*mb, t0.Add(5*time.Second))

	assert.InDelta(t, 2.0, rate.RxMBps, 1e-9)
	assert.InDelta(t, 1.0, rate.TxMBps, 1e-9)
}

func TestNonPositiveElapsedDiscardsSample(t *testing.T) {
	calc := iostat.NewCalculator()
	t0 := time.Now()

	calc.Update("eth0", 100*mb, 0, t0)
	calc.Update("eth0", 110*mb, 0, t0.Add(5*time.Second))

	// A sample that goes backwards in time keeps the prior rate and
	// the prior baseline
	rate := calc.Update("eth0", 200*mb, 0, t0.Add(3*time.Second))
	assert.InDelta(t, 2.0, rate.RxMBps, 1e-9)

	// The next good sample computes against the untouched baseline
	rate = calc.Update("eth0", 120*mb, 0, t0.Add(10*time.Second))
	assert.InDelta(t, 2.0, rate.RxMBps, 1e-9)
}

func TestCounterResetClampsToZeroAndRebaselines(t *testing.T) {
	calc := iostat.NewCalculator()
	t0 := time.Now()

	calc.Update("sda", 110*mb, 110*mb, t0)
	rate := calc.Update("sda", 100*mb, 100*mb, t0.Add(5*time.Second))
	assert.Zero(t, rate.RxMBps)
	assert.Zero(t, rate.TxMBps)

	// The reset sample became the new baseline
	rate = calc.Update("sda", 105*mb, 100*mb, t0.Add(10*time.Second))
	assert.InDelta(t, 1.0, rate.RxMBps, 1e-9)
	assert.Zero(t, rate.TxMBps)
}

func TestRateLookup(t *testing.T) {
	calc := iostat.NewCalculator()

	_, ok := calc.Rate("sda")
	assert.False(t, ok)

	calc.Update("sda", 0, 0, time.Now())
	rate, ok := calc.Rate("sda")
	require.True(t, ok)
	assert.Zero(t, rate.RxMBps)
}

func TestStripPartition(t *testing.T) {
	assert.Equal(t, "sda", iostat.StripPartition("sda1"))
	assert.Equal(t, "sdb", iostat.StripPartition("sdb12"))
	assert.Equal(t, "sda", iostat.StripPartition("sda"))
	// Only sd-style names carry trailing partition digits
	assert.Equal(t, "mmcblk0", iostat.StripPartition("mmcblk0"))
}
