package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stationaryAR1(n int, phi float64, seed int64) []float64 {
	rng := newLCG(seed)
	series := make([]float64, n)
	for i := 1; i < n; i++ {
		series[i] = phi*series[i-1] + rng.normal()
	}
	return series
}

func randomWalk(n int, seed int64) []float64 {
	rng := newLCG(seed)
	series := make([]float64, n)
	for i := 1; i < n; i++ {
		series[i] = series[i-1] + rng.normal()
	}
	return series
}

func TestADFStationarySeries(t *testing.T) {
	series := stationaryAR1(500, 0.5, 21)

	res := ADFTest(series, 0, 0.05)
	require.False(t, res.Undefined())
	assert.True(t, res.IsStationary)
	assert.Less(t, res.PValue, 0.05)
	assert.Less(t, res.Statistic, res.CriticalValues["5%"])
	assert.Greater(t, res.NObs, 400)
}

func TestADFDistinguishesRandomWalk(t *testing.T) {
	stationary := ADFTest(stationaryAR1(500, 0.5, 22), 0, 0.05)
	walk := ADFTest(randomWalk(500, 22), 0, 0.05)

	require.False(t, stationary.Undefined())
	require.False(t, walk.Undefined())
	assert.Less(t, stationary.PValue, walk.PValue)
	assert.Less(t, stationary.Statistic, walk.Statistic)
}

func TestADFInsufficientSamples(t *testing.T) {
	res := ADFTest(ramp(15), 0, 0.05)
	assert.True(t, res.Undefined())
	assert.True(t, math.IsNaN(res.Statistic))
	assert.True(t, math.IsNaN(res.PValue))
	assert.False(t, res.IsStationary)
	assert.Empty(t, res.CriticalValues)
}

func TestADFCriticalValues(t *testing.T) {
	res := ADFTest(stationaryAR1(500, 0.5, 23), 0, 0.05)
	require.False(t, res.Undefined())

	// close to the asymptotic Dickey-Fuller critical values at n=500
	assert.InDelta(t, -3.44, res.CriticalValues["1%"], 0.05)
	assert.InDelta(t, -2.87, res.CriticalValues["5%"], 0.05)
	assert.InDelta(t, -2.57, res.CriticalValues["10%"], 0.05)
}

func TestADFAutolagStaysWithinBound(t *testing.T) {
	res := ADFTest(stationaryAR1(200, 0.3, 24), 6, 0.05)
	require.False(t, res.Undefined())
	assert.GreaterOrEqual(t, res.UsedLag, 0)
	assert.LessOrEqual(t, res.UsedLag, 6)
}

func TestMacKinnonPValueMapping(t *testing.T) {
	// The response surface must reproduce the significance levels at the
	// asymptotic Dickey-Fuller critical values (constant-only case).
	assert.InDelta(t, 0.01, mackinnonPValue(-3.43035), 0.001)
	assert.InDelta(t, 0.05, mackinnonPValue(-2.86154), 0.001)
	assert.InDelta(t, 0.10, mackinnonPValue(-2.56677), 0.002)

	// Monotone in the statistic, saturating at the tails.
	assert.Less(t, mackinnonPValue(-5.0), mackinnonPValue(-3.0))
	assert.Less(t, mackinnonPValue(-3.0), mackinnonPValue(-1.0))
	assert.Equal(t, 0.0, mackinnonPValue(-20))
	assert.Equal(t, 1.0, mackinnonPValue(3))

	// Continuity across the small-p/large-p switch point.
	assert.InDelta(t, mackinnonPValue(-1.6101), mackinnonPValue(-1.6099), 0.001)
}

func TestADFPValueBounds(t *testing.T) {
	res := ADFTest(stationaryAR1(500, 0.1, 25), 0, 0.05)
	require.False(t, res.Undefined())
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}
