// Package signal condenses the statistical state of a pair into a single
// 0-100 confidence score for the current arbitrage signal.
package signal

import (
	"math"
)

// QualityLevel classifies the composite score.
type QualityLevel string

const (
	LevelExceptional QualityLevel = "Exceptional"
	LevelStrong      QualityLevel = "Strong"
	LevelModerate    QualityLevel = "Moderate"
	LevelWeak        QualityLevel = "Weak"
	LevelPoor        QualityLevel = "Poor"
)

// Composite score thresholds for the quality levels.
const (
	ExceptionalThreshold = 90
	StrongThreshold      = 75
	ModerateThreshold    = 60
	WeakThreshold        = 40
)

// Weights distributes the composite score across the five components.
// The values are not required to sum to one.
type Weights struct {
	ZScore        float64 `json:"zscore"`
	Correlation   float64 `json:"correlation"`
	Stability     float64 `json:"stability"`
	Cointegration float64 `json:"cointegration"`
	Historical    float64 `json:"historical"`
}

// DefaultWeights emphasizes signal strength and pair relationship.
func DefaultWeights() Weights {
	return Weights{
		ZScore:        0.25,
		Correlation:   0.25,
		Stability:     0.20,
		Cointegration: 0.15,
		Historical:    0.15,
	}
}

// Components holds the individual sub-scores, each rounded to one decimal.
type Components struct {
	ZScore        float64 `json:"zscore_score"`
	Correlation   float64 `json:"correlation_score"`
	Stability     float64 `json:"stability_score"`
	Cointegration float64 `json:"cointegration_score"`
	Historical    float64 `json:"historical_score"`
}

// Result is the composite assessment of signal quality.
type Result struct {
	CompositeScore float64      `json:"composite_score"`
	Level          QualityLevel `json:"quality_level"`
	Confidence     string       `json:"confidence"`
	Recommendation string       `json:"recommendation"`
	Components     Components   `json:"components"`
	Weights        Weights      `json:"weights"`
}

// Input carries everything the scorer consumes. NaN marks a missing value
// and scores its component neutrally where the formulas allow.
type Input struct {
	ZScore       float64
	Correlation  float64
	Spread       []float64
	ADFPValue    float64
	HalfLife     float64
	WinRate      float64 // percentage, 0-100
	ProfitFactor float64
	TotalTrades  int
}

// Scorer computes composite signal quality scores.
type Scorer struct {
	weights        Weights
	entryThreshold float64
	corrThreshold  float64
	lookback       int
}

// NewScorer creates a scorer with the given weights, entry threshold and
// correlation threshold (the band edge where co-movement counts as good).
func NewScorer(weights Weights, entryThreshold, corrThreshold float64) *Scorer {
	if entryThreshold <= 0 {
		entryThreshold = 2.0
	}
	if corrThreshold <= 0.2 || corrThreshold >= 1 {
		corrThreshold = 0.70
	}
	return &Scorer{
		weights:        weights,
		entryThreshold: entryThreshold,
		corrThreshold:  corrThreshold,
		lookback:       60,
	}
}

// ZScoreScore scales signal strength: below the entry threshold the score
// grows linearly to 50, above it the next full unit of z carries it to 100.
func (s *Scorer) ZScoreScore(zscore float64) float64 {
	if math.IsNaN(zscore) {
		return 0
	}
	abs := math.Abs(zscore)
	var score float64
	if abs < s.entryThreshold {
		score = abs / s.entryThreshold * 50
	} else {
		excess := abs - s.entryThreshold
		score = 50 + math.Min(excess, 1.0)*50
	}
	return math.Min(score, 100)
}

// CorrelationScore rewards tightly co-moving pairs with banded scoring
// around the configured correlation threshold: the good band starts at the
// threshold, the excellent band 0.15 above it, the weak band 0.20 below.
// At the default threshold of 0.70 the band edges sit at 0.50, 0.70 and 0.85.
func (s *Scorer) CorrelationScore(correlation float64) float64 {
	if math.IsNaN(correlation) {
		return 0
	}
	abs := math.Abs(correlation)
	high := s.corrThreshold + 0.15
	low := s.corrThreshold - 0.20
	var score float64
	switch {
	case abs >= high:
		score = 90 + (abs-high)/0.15*10
	case abs >= s.corrThreshold:
		score = 70 + (abs-s.corrThreshold)/0.15*20
	case abs >= low:
		score = 40 + (abs-low)/0.20*30
	default:
		score = abs / low * 40
	}
	return math.Min(score, 100)
}

// StabilityScore grades the coefficient of variation of the trailing
// spread: under 0.1 is excellent, over 0.3 decays toward zero. Too little
// history scores a neutral 50, a zero mean scores 0.
func (s *Scorer) StabilityScore(spread []float64) float64 {
	if len(spread) < s.lookback {
		return 50
	}
	recent := spread[len(spread)-s.lookback:]
	m := math.Abs(meanOf(recent))
	sd := stdOf(recent)
	if m == 0 {
		return 0
	}
	cv := sd / m

	var score float64
	switch {
	case cv < 0.1:
		score = 90 + (0.1-cv)/0.1*10
	case cv < 0.3:
		score = 60 + (0.3-cv)/0.2*30
	default:
		score = math.Max(0, 60-(cv-0.3)*100)
	}
	return math.Min(score, 100)
}

// CointegrationScore averages an ADF p-value grade and a half-life grade.
// Either half scores a neutral 50 when its input is missing. The half-life
// sweet spot is 5 to 50 bars, peaking at 20.
func (s *Scorer) CointegrationScore(adfPValue, halfLife float64) float64 {
	adfScore := 50.0
	if !math.IsNaN(adfPValue) {
		switch {
		case adfPValue < 0.01:
			adfScore = 100
		case adfPValue < 0.05:
			adfScore = 80
		case adfPValue < 0.10:
			adfScore = 60
		default:
			adfScore = math.Max(0, 60-(adfPValue-0.10)*200)
		}
	}

	hlScore := 50.0
	if !math.IsNaN(halfLife) && halfLife > 0 {
		switch {
		case halfLife >= 5 && halfLife <= 50:
			hlScore = 100 - math.Abs(halfLife-20)/30*30
		case halfLife < 5:
			hlScore = halfLife / 5 * 70
		default:
			hlScore = math.Max(0, 70-(halfLife-50)*2)
		}
	}

	return math.Min(adfScore*0.5+hlScore*0.5, 100)
}

// HistoricalScore grades the track record: win-rate bands at 50% and 60%,
// scaled by a profit-factor multiplier, then dampened toward the neutral 50
// when fewer than five trades exist.
func (s *Scorer) HistoricalScore(winRate, profitFactor float64, totalTrades int) float64 {
	if totalTrades == 0 || math.IsNaN(winRate) {
		return 50
	}

	var base float64
	switch {
	case winRate >= 60:
		base = 80 + (winRate-60)/40*20
	case winRate >= 50:
		base = 60 + (winRate-50)/10*20
	default:
		base = winRate / 50 * 60
	}

	if !math.IsNaN(profitFactor) {
		var mult float64
		if profitFactor >= 2.0 {
			mult = 1.0 + math.Min((profitFactor-2.0)/3.0, 0.2)
		} else {
			mult = 0.8 + profitFactor/2.0*0.2
		}
		base *= mult
	}

	if totalTrades < 5 {
		base = 50 + (base-50)*float64(totalTrades)/5
	}
	return math.Min(base, 100)
}

// Score computes the weighted composite and its classification.
func (s *Scorer) Score(in Input) Result {
	comp := Components{
		ZScore:        round1(s.ZScoreScore(in.ZScore)),
		Correlation:   round1(s.CorrelationScore(in.Correlation)),
		Stability:     round1(s.StabilityScore(in.Spread)),
		Cointegration: round1(s.CointegrationScore(in.ADFPValue, in.HalfLife)),
		Historical:    round1(s.HistoricalScore(in.WinRate, in.ProfitFactor, in.TotalTrades)),
	}

	w := s.weights
	composite := s.ZScoreScore(in.ZScore)*w.ZScore +
		s.CorrelationScore(in.Correlation)*w.Correlation +
		s.StabilityScore(in.Spread)*w.Stability +
		s.CointegrationScore(in.ADFPValue, in.HalfLife)*w.Cointegration +
		s.HistoricalScore(in.WinRate, in.ProfitFactor, in.TotalTrades)*w.Historical

	var level QualityLevel
	var confidence, recommendation string
	switch {
	case composite >= ExceptionalThreshold:
		level, confidence, recommendation = LevelExceptional, "Very High", "Strong Trade Signal"
	case composite >= StrongThreshold:
		level, confidence, recommendation = LevelStrong, "High", "Trade with Confidence"
	case composite >= ModerateThreshold:
		level, confidence, recommendation = LevelModerate, "Medium", "Consider Trading"
	case composite >= WeakThreshold:
		level, confidence, recommendation = LevelWeak, "Low", "Trade with Caution"
	default:
		level, confidence, recommendation = LevelPoor, "Very Low", "Avoid Trading"
	}

	return Result{
		CompositeScore: round1(composite),
		Level:          level,
		Confidence:     confidence,
		Recommendation: recommendation,
		Components:     comp,
		Weights:        w,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdOf(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := meanOf(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
