package analytics

import (
	"math"
)

// HedgeRatioMethod selects the regression used for the hedge ratio.
type HedgeRatioMethod string

const (
	MethodOLS HedgeRatioMethod = "ols" // no-intercept least squares
	MethodTLS HedgeRatioMethod = "tls" // slope of a degree-1 polynomial fit
)

const minHedgeSamples = 20

// HedgeRatio regresses y on x and returns the hedge ratio, the fit quality
// and the p-value of the slope. OLS fits y = beta*x without an intercept and
// reports the uncentered r-squared. TLS fits a degree-1 polynomial and
// reports the squared Pearson correlation with a NaN p-value. Fewer than 20
// aligned samples yields NaN for all three.
func HedgeRatio(y, x []float64, method HedgeRatioMethod) (ratio, rSquared, pValue float64) {
	ya, xa := alignPair(y, x)
	if len(ya) < minHedgeSamples {
		return math.NaN(), math.NaN(), math.NaN()
	}

	if method == MethodTLS {
		slope, _ := polyfitLine(xa, ya)
		r := pearson(xa, ya)
		return slope, r * r, math.NaN()
	}

	var sxy, sxx, syy float64
	for i := range xa {
		sxy += xa[i] * ya[i]
		sxx += xa[i] * xa[i]
		syy += ya[i] * ya[i]
	}
	if sxx == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	beta := sxy / sxx

	ssr := 0.0
	for i := range xa {
		resid := ya[i] - beta*xa[i]
		ssr += resid * resid
	}
	r2 := math.NaN()
	if syy > 0 {
		r2 = 1 - ssr/syy
	}

	// slope t-test with n-1 degrees of freedom (single regressor, no intercept)
	n := float64(len(xa))
	dof := n - 1
	p := math.NaN()
	if dof > 0 && ssr >= 0 {
		sigma2 := ssr / dof
		se := math.Sqrt(sigma2 / sxx)
		if se > 0 {
			p = studentTPValueTwoSided(beta/se, dof)
		} else if beta != 0 {
			p = 0
		}
	}
	return beta, r2, p
}

// Spread computes price1 - hedgeRatio*price2 over index-aligned samples.
func Spread(price1, price2 []float64, hedgeRatio float64) []float64 {
	p1, p2 := alignPair(price1, price2)
	out := make([]float64, len(p1))
	for i := range p1 {
		out[i] = p1[i] - hedgeRatio*p2[i]
	}
	return out
}

// ZScore computes the rolling z-score of a series. Positions with fewer than
// minPeriods observations in the trailing window are NaN, as are positions
// where the rolling standard deviation is zero.
func ZScore(series []float64, window, minPeriods int) []float64 {
	if len(series) < minPeriods {
		return nanSlice(len(series))
	}
	rollMean := rollingApply(series, window, minPeriods, mean)
	rollStd := rollingApply(series, window, minPeriods, stdDev)
	out := make([]float64, len(series))
	for i := range series {
		if math.IsNaN(series[i]) || math.IsNaN(rollMean[i]) || math.IsNaN(rollStd[i]) || rollStd[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (series[i] - rollMean[i]) / rollStd[i]
	}
	return out
}

// RollingCorrelation computes the rolling Pearson correlation of two series
// after aligning them. Series shorter than the window produce all NaN.
func RollingCorrelation(series1, series2 []float64, window int) []float64 {
	s1, s2 := alignPair(series1, series2)
	if len(s1) < window {
		return nanSlice(len(s1))
	}
	out := make([]float64, len(s1))
	for i := range s1 {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = pearson(s1[i-window+1:i+1], s2[i-window+1:i+1])
	}
	return out
}

// HalfLife estimates the mean-reversion half-life of a spread from an AR(1)
// fit of its first difference on its lag. A non-negative AR coefficient means
// no mean reversion and returns +Inf. Too few samples returns NaN.
func HalfLife(spread []float64) float64 {
	clean := dropNaN(spread)
	if len(clean) < 20 {
		return math.NaN()
	}

	// delta[t] regressed on spread[t-1], no intercept
	var slr, sll float64
	pairs := 0
	for t := 1; t < len(clean); t++ {
		lag := clean[t-1]
		ret := clean[t] - clean[t-1]
		slr += lag * ret
		sll += lag * lag
		pairs++
	}
	if pairs < 10 || sll == 0 {
		return math.NaN()
	}
	lambda := slr / sll
	if lambda >= 0 {
		return math.Inf(1)
	}
	return -math.Log(2) / math.Log(1+lambda)
}

// SharpeRatio computes the annualized Sharpe ratio of a return series.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	clean := dropNaN(returns)
	if len(clean) < 2 {
		return math.NaN()
	}
	perPeriodRF := riskFreeRate / float64(periodsPerYear)
	excess := make([]float64, len(clean))
	for i, r := range clean {
		excess[i] = r - perPeriodRF
	}
	sd := stdDev(excess)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return mean(excess) / sd * math.Sqrt(float64(periodsPerYear))
}

// VWAP computes the volume-weighted average price.
func VWAP(prices, volumes []float64) float64 {
	p, v := alignPair(prices, volumes)
	if len(p) == 0 {
		return math.NaN()
	}
	var pv, vol float64
	for i := range p {
		pv += p[i] * v[i]
		vol += v[i]
	}
	if vol == 0 {
		return math.NaN()
	}
	return pv / vol
}

// TradeImbalance is (buy - sell) / total volume, in [-1, 1].
func TradeImbalance(buyVolume, sellVolume float64) float64 {
	total := buyVolume + sellVolume
	if total == 0 {
		return 0
	}
	return (buyVolume - sellVolume) / total
}

// RollingVolatility computes the rolling standard deviation of returns,
// optionally annualized.
func RollingVolatility(prices []float64, window int, annualize bool, periodsPerYear int) []float64 {
	returns := pctChange(prices)
	vol := rollingApply(returns, window, window, stdDev)
	if annualize {
		factor := math.Sqrt(float64(periodsPerYear))
		for i := range vol {
			vol[i] *= factor
		}
	}
	return vol
}

// RealizedVolatility is the square root of the sum of squared returns over
// the trailing window.
func RealizedVolatility(prices []float64, window int) float64 {
	returns := dropNaN(pctChange(prices))
	if len(returns) < window {
		return math.NaN()
	}
	ss := 0.0
	for _, r := range returns[len(returns)-window:] {
		ss += r * r
	}
	return math.Sqrt(ss)
}

// pearson computes the Pearson correlation of two equal-length slices.
func pearson(a, b []float64) float64 {
	n := len(a)
	if n < 2 || n != len(b) {
		return math.NaN()
	}
	ma := mean(a)
	mb := mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(va*vb)
}

// polyfitLine fits y = slope*x + intercept by least squares.
func polyfitLine(x, y []float64) (slope, intercept float64) {
	mx := mean(x)
	my := mean(y)
	var cov, varx float64
	for i := range x {
		dx := x[i] - mx
		cov += dx * (y[i] - my)
		varx += dx * dx
	}
	if varx == 0 {
		return math.NaN(), math.NaN()
	}
	slope = cov / varx
	return slope, my - slope*mx
}
