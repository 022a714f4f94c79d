package analytics

import "math"

// VolRegime classifies the current volatility environment.
type VolRegime string

const (
	RegimeLow     VolRegime = "low"
	RegimeNormal  VolRegime = "normal"
	RegimeHigh    VolRegime = "high"
	RegimeUnknown VolRegime = "unknown"
)

// TrendDirection classifies the short-term price direction.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendFlat    TrendDirection = "flat"
	TrendUnknown TrendDirection = "unknown"
)

// TrendResult carries the trend classification with its regression fit.
type TrendResult struct {
	Direction TrendDirection `json:"direction"`
	Slope     float64        `json:"slope"`
	RSquared  float64        `json:"r_squared"`
}

// flat when the per-period drift is under a basis point of price
const flatSlopeEpsilon = 0.0001

// VolatilityRegime compares trailing return volatility against full-history
// volatility. A ratio above threshold is high, below 1/threshold is low.
// Fewer than window returns yields RegimeUnknown.
func VolatilityRegime(prices []float64, window int, threshold float64) VolRegime {
	returns := dropNaN(pctChange(prices))
	if len(returns) < window {
		return RegimeUnknown
	}
	currentVol := stdDev(returns[len(returns)-window:])
	historicalVol := stdDev(returns)

	ratio := 1.0
	if historicalVol > 0 {
		ratio = currentVol / historicalVol
	}
	switch {
	case ratio < 1/threshold:
		return RegimeLow
	case ratio > threshold:
		return RegimeHigh
	default:
		return RegimeNormal
	}
}

// Trend fits a line through the trailing window of prices and classifies the
// direction from the slope normalized by the mean price.
func Trend(prices []float64, window int) TrendResult {
	if len(prices) < window {
		return TrendResult{Direction: TrendUnknown}
	}
	recent := prices[len(prices)-window:]
	x := make([]float64, len(recent))
	for i := range x {
		x[i] = float64(i)
	}
	slope, _ := polyfitLine(x, recent)
	r := pearson(x, recent)
	r2 := r * r
	if math.IsNaN(r2) {
		r2 = 0
	}

	normSlope := 0.0
	if m := mean(recent); m > 0 && !math.IsNaN(slope) {
		normSlope = slope / m
	}

	direction := TrendFlat
	if math.Abs(normSlope) >= flatSlopeEpsilon {
		if normSlope > 0 {
			direction = TrendUp
		} else {
			direction = TrendDown
		}
	}
	return TrendResult{Direction: direction, Slope: normSlope, RSquared: r2}
}
