package alerts

import (
	"math"

	"github.com/quantpair/statarb/internal/analytics"
)

// Context carries the extra analytics some conditions need. Conditions that
// require missing context simply do not trigger.
type Context struct {
	HistoricalVol float64
	SpreadSeries  []float64
}

// Condition decides whether a rule fires for the given value.
type Condition func(value, threshold float64, ctx *Context) bool

// ZScoreAbove triggers when |value| exceeds the threshold.
func ZScoreAbove(value, threshold float64, _ *Context) bool {
	return math.Abs(value) > threshold
}

// ZScoreExit triggers when |value| drops under the threshold, signalling
// mean reversion completion.
func ZScoreExit(value, threshold float64, _ *Context) bool {
	return math.Abs(value) < threshold
}

// CorrelationBreak triggers when correlation falls below the threshold.
func CorrelationBreak(value, threshold float64, _ *Context) bool {
	return value < threshold
}

// VolatilitySpike triggers when current volatility exceeds threshold times
// the historical volatility from the context.
func VolatilitySpike(value, threshold float64, ctx *Context) bool {
	if ctx == nil || ctx.HistoricalVol <= 0 {
		return false
	}
	return value/ctx.HistoricalVol > threshold
}

// SpreadPercentile triggers when the latest spread sits in an extreme
// percentile of the context series, on either tail.
func SpreadPercentile(_, threshold float64, ctx *Context) bool {
	if ctx == nil || len(ctx.SpreadSeries) == 0 {
		return false
	}
	last := ctx.SpreadSeries[len(ctx.SpreadSeries)-1]
	pct := analytics.PercentileRank(ctx.SpreadSeries, last)
	if math.IsNaN(pct) {
		return false
	}
	return pct > threshold || pct < 100-threshold
}
