package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lcg is a tiny deterministic generator so expectations never drift.
type lcg struct{ state uint64 }

func newLCG(seed int64) *lcg {
	return &lcg{state: uint64(seed)*6364136223846793005 + 1442695040888963407}
}

func (r *lcg) next() float64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return float64(r.state>>11) / (1 << 53)
}

func (r *lcg) normal() float64 {
	sum := 0.0
	for i := 0; i < 12; i++ {
		sum += r.next()
	}
	return sum - 6
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestHedgeRatioOLSExactFit(t *testing.T) {
	x := ramp(30)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2.5 * v
	}

	ratio, rSquared, pValue := HedgeRatio(y, x, MethodOLS)
	assert.InDelta(t, 2.5, ratio, 1e-12)
	assert.InDelta(t, 1.0, rSquared, 1e-12)
	assert.Zero(t, pValue, "an exact fit has no slope uncertainty")
}

func TestHedgeRatioOLSNoisyRecovery(t *testing.T) {
	rng := newLCG(7)
	x := make([]float64, 200)
	y := make([]float64, 200)
	for i := range x {
		x[i] = 100 + float64(i)*0.1 + rng.normal()
		y[i] = 2*x[i] + rng.normal()*0.5
	}

	ratio, rSquared, pValue := HedgeRatio(y, x, MethodOLS)
	assert.InDelta(t, 2.0, ratio, 0.05)
	assert.Greater(t, rSquared, 0.99)
	assert.Less(t, pValue, 0.05)
}

func TestHedgeRatioTLS(t *testing.T) {
	x := ramp(30)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v + 5
	}

	ratio, rSquared, pValue := HedgeRatio(y, x, MethodTLS)
	assert.InDelta(t, 2.0, ratio, 1e-12)
	assert.InDelta(t, 1.0, rSquared, 1e-12)
	assert.True(t, math.IsNaN(pValue))
}

func TestHedgeRatioInsufficientSamples(t *testing.T) {
	ratio, rSquared, pValue := HedgeRatio(ramp(10), ramp(10), MethodOLS)
	assert.True(t, math.IsNaN(ratio))
	assert.True(t, math.IsNaN(rSquared))
	assert.True(t, math.IsNaN(pValue))
}

func TestHedgeRatioDropsNaNPairs(t *testing.T) {
	x := ramp(25)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3 * v
	}
	x[5] = math.NaN()
	y[12] = math.NaN()

	ratio, _, _ := HedgeRatio(y, x, MethodOLS)
	assert.InDelta(t, 3.0, ratio, 1e-12)
}

func TestSpread(t *testing.T) {
	spread := Spread([]float64{10, 12}, []float64{2, 3}, 2)
	require.Len(t, spread, 2)
	assert.InDelta(t, 6.0, spread[0], 1e-12)
	assert.InDelta(t, 6.0, spread[1], 1e-12)
}

func TestZScoreRolling(t *testing.T) {
	z := ZScore([]float64{1, 2, 3, 4}, 3, 2)
	require.Len(t, z, 4)

	assert.True(t, math.IsNaN(z[0]), "one observation is under min_periods")
	assert.InDelta(t, 0.5/math.Sqrt(0.5), z[1], 1e-12)
	assert.InDelta(t, 1.0, z[2], 1e-12)
	assert.InDelta(t, 1.0, z[3], 1e-12)
}

func TestZScoreConstantSeries(t *testing.T) {
	z := ZScore([]float64{5, 5, 5, 5, 5}, 3, 2)
	for i, v := range z {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}
}

func TestRollingCorrelation(t *testing.T) {
	a := ramp(10)
	b := make([]float64, len(a))
	for i, v := range a {
		b[i] = -2 * v
	}

	corr := RollingCorrelation(a, b, 5)
	require.Len(t, corr, 10)
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(corr[i]), "index %d", i)
	}
	for i := 4; i < 10; i++ {
		assert.InDelta(t, -1.0, corr[i], 1e-12, "index %d", i)
	}
}

func TestRollingCorrelationShortSeries(t *testing.T) {
	corr := RollingCorrelation(ramp(3), ramp(3), 5)
	for _, v := range corr {
		assert.True(t, math.IsNaN(v))
	}
}

func TestHalfLifeExactAR1(t *testing.T) {
	// s[t] = 0.5*s[t-1] halves the spread every step
	spread := make([]float64, 30)
	spread[0] = 100
	for i := 1; i < len(spread); i++ {
		spread[i] = 0.5 * spread[i-1]
	}
	assert.InDelta(t, 1.0, HalfLife(spread), 1e-9)
}

func TestHalfLifeNoMeanReversion(t *testing.T) {
	assert.True(t, math.IsInf(HalfLife(ramp(30)), 1))
}

func TestHalfLifeInsufficientSamples(t *testing.T) {
	assert.True(t, math.IsNaN(HalfLife(ramp(10))))
}

func TestSharpeRatioAnnualized(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03, 0.04}
	want := mean(returns) / stdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, want, SharpeRatio(returns, 0, 252), 1e-12)

	assert.True(t, math.IsNaN(SharpeRatio([]float64{0.01}, 0, 252)))
	assert.True(t, math.IsNaN(SharpeRatio([]float64{0.01, 0.01}, 0, 252)), "zero variance")
}

func TestVWAP(t *testing.T) {
	assert.InDelta(t, 17.5, VWAP([]float64{10, 20}, []float64{1, 3}), 1e-12)
	assert.True(t, math.IsNaN(VWAP([]float64{10, 20}, []float64{0, 0})))
	assert.True(t, math.IsNaN(VWAP(nil, nil)))
}

func TestTradeImbalance(t *testing.T) {
	assert.InDelta(t, 0.2, TradeImbalance(60, 40), 1e-12)
	assert.InDelta(t, -1.0, TradeImbalance(0, 10), 1e-12)
	assert.Zero(t, TradeImbalance(0, 0))
}

func TestRealizedVolatility(t *testing.T) {
	rv := RealizedVolatility([]float64{100, 110, 99}, 2)
	assert.InDelta(t, math.Sqrt(0.01+0.01), rv, 1e-12)

	assert.True(t, math.IsNaN(RealizedVolatility([]float64{100, 110}, 5)))
}

func TestRollingVolatilityAnnualized(t *testing.T) {
	prices := []float64{100, 110, 99, 104, 101, 108}
	plain := RollingVolatility(prices, 3, false, 252)
	annual := RollingVolatility(prices, 3, true, 252)
	require.Len(t, annual, len(plain))

	last := len(plain) - 1
	assert.InDelta(t, plain[last]*math.Sqrt(252), annual[last], 1e-12)
}
