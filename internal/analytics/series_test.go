package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileInterpolation(t *testing.T) {
	values := ramp(10)

	assert.InDelta(t, 5.5, Percentile(values, 50), 1e-12)
	assert.InDelta(t, 3.25, Percentile(values, 25), 1e-12)
	assert.InDelta(t, 1.0, Percentile(values, 0), 1e-12)
	assert.InDelta(t, 10.0, Percentile(values, 100), 1e-12)
}

func TestPercentileIgnoresNaN(t *testing.T) {
	values := []float64{1, math.NaN(), 3}
	assert.InDelta(t, 2.0, Percentile(values, 50), 1e-12)
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestPercentileRank(t *testing.T) {
	assert.InDelta(t, 60.0, PercentileRank([]float64{1, 2, 3, 4, 5}, 3), 1e-12)
	// average rank of ties
	assert.InDelta(t, 62.5, PercentileRank([]float64{1, 2, 2, 3}, 2), 1e-12)
	assert.True(t, math.IsNaN(PercentileRank(nil, 1)))
	assert.True(t, math.IsNaN(PercentileRank([]float64{1, 2}, math.NaN())))
}

func TestPctChange(t *testing.T) {
	changes := pctChange([]float64{100, 110, 99})
	require.Len(t, changes, 3)
	assert.True(t, math.IsNaN(changes[0]))
	assert.InDelta(t, 0.10, changes[1], 1e-12)
	assert.InDelta(t, -0.10, changes[2], 1e-12)
}

func TestPctChangeZeroBase(t *testing.T) {
	changes := pctChange([]float64{0, 5})
	assert.True(t, math.IsNaN(changes[1]))
}

func TestAlignPair(t *testing.T) {
	a := []float64{1, math.NaN(), 3, 4}
	b := []float64{10, 20, math.NaN(), 40, 50}

	outA, outB := alignPair(a, b)
	assert.Equal(t, []float64{1, 4}, outA)
	assert.Equal(t, []float64{10, 40}, outB)
}

func TestRollingApplyMinPeriods(t *testing.T) {
	values := []float64{1, math.NaN(), 3, 4, 5}
	out := rollingApply(values, 3, 2, mean)
	require.Len(t, out, 5)

	assert.True(t, math.IsNaN(out[0]), "single value under min_periods")
	assert.True(t, math.IsNaN(out[1]), "NaN in window does not count")
	assert.InDelta(t, 2.0, out[2], 1e-12)   // {1, 3}
	assert.InDelta(t, 3.5, out[3], 1e-12)   // {3, 4}
	assert.InDelta(t, 4.0, out[4], 1e-12)   // {3, 4, 5}
}

func TestLast(t *testing.T) {
	assert.InDelta(t, 3.0, Last([]float64{1, 2, 3}), 1e-12)
	assert.True(t, math.IsNaN(Last(nil)))
	assert.True(t, math.IsNaN(Last([]float64{math.NaN()})))

	// An undefined tail stays undefined; an older value is never substituted.
	assert.True(t, math.IsNaN(Last([]float64{1, 3, math.NaN()})))
}
