package risk

import (
	"math"

	"github.com/quantpair/statarb/internal/analytics"
	"go.uber.org/zap"
)

// VaRMethod selects how value at risk is estimated.
type VaRMethod string

const (
	MethodHistorical VaRMethod = "historical"
	MethodParametric VaRMethod = "parametric"
)

// HealthLevel classifies the composite portfolio health score.
type HealthLevel string

const (
	HealthExcellent HealthLevel = "Excellent"
	HealthGood      HealthLevel = "Good"
	HealthFair      HealthLevel = "Fair"
	HealthPoor      HealthLevel = "Poor"
	HealthCritical  HealthLevel = "Critical"
)

const minVaRSamples = 20

// Config carries the analyzer parameters.
type Config struct {
	RiskFreeRate   float64
	PeriodsPerYear int
}

// DefaultConfig assumes daily periods and a zero risk-free rate.
func DefaultConfig() Config {
	return Config{RiskFreeRate: 0, PeriodsPerYear: 252}
}

// Analyzer computes portfolio risk metrics. Metrics that cannot be computed
// from the available history are NaN rather than errors.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
}

// NewAnalyzer creates a risk analyzer.
func NewAnalyzer(cfg Config, logger *zap.Logger) *Analyzer {
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = 252
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// VaR estimates the maximum expected loss at the given confidence level,
// returned as a positive number. Historical VaR is the empirical quantile,
// parametric VaR assumes normally distributed returns. Fewer than 20
// samples yields NaN.
func (a *Analyzer) VaR(returns []float64, confidence float64, method VaRMethod) float64 {
	if len(returns) < minVaRSamples {
		return math.NaN()
	}
	var v float64
	if method == MethodParametric {
		m := sampleMean(returns)
		sd := sampleStd(returns)
		z := analytics.InvNormCDF(1 - confidence)
		v = m + z*sd
	} else {
		v = analytics.Percentile(returns, (1-confidence)*100)
	}
	return math.Abs(v)
}

// ExpectedShortfall is the average loss beyond the VaR quantile (CVaR),
// returned as a positive number. Fewer than 20 samples yields NaN.
func (a *Analyzer) ExpectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) < minVaRSamples {
		return math.NaN()
	}
	threshold := analytics.Percentile(returns, (1-confidence)*100)
	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return math.Abs(sum / float64(n))
}

// KellyCriterion returns the optimal capital fraction for the given edge,
// clamped to [0, 0.25]. winRate is a fraction in [0, 1].
func (a *Analyzer) KellyCriterion(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 || winRate == 0 {
		return 0
	}
	lossRate := 1 - winRate
	winLossRatio := avgWin / math.Abs(avgLoss)
	kelly := (winRate*winLossRatio - lossRate) / winLossRatio
	return math.Max(0, math.Min(kelly, 0.25))
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. Degenerate inputs return 0.
func (a *Analyzer) SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := a.excessReturns(returns)
	sd := sampleStd(excess)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return sampleMean(excess) / sd * math.Sqrt(float64(a.cfg.PeriodsPerYear))
}

// SortinoRatio is like Sharpe but penalizes only downside deviation.
func (a *Analyzer) SortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := a.excessReturns(returns)
	downside := make([]float64, 0, len(excess))
	for _, r := range excess {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd := sampleStd(downside)
	if len(downside) == 0 || sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return sampleMean(excess) / sd * math.Sqrt(float64(a.cfg.PeriodsPerYear))
}

func (a *Analyzer) excessReturns(returns []float64) []float64 {
	perPeriod := a.cfg.RiskFreeRate / float64(a.cfg.PeriodsPerYear)
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - perPeriod
	}
	return out
}

// DrawdownMetrics describes peak-to-trough equity decline, in absolute
// terms and as a percentage of the running peak.
type DrawdownMetrics struct {
	MaxDrawdown        float64 `json:"max_drawdown"`
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`
	CurrentDrawdown    float64 `json:"current_drawdown"`
	CurrentDrawdownPct float64 `json:"current_drawdown_pct"`
	PeakEquity         float64 `json:"peak_equity"`
}

// MaxDrawdown walks the equity curve against its running maximum.
func (a *Analyzer) MaxDrawdown(equity []float64) DrawdownMetrics {
	if len(equity) < 2 {
		var peak float64
		if len(equity) > 0 {
			peak = equity[0]
		}
		return DrawdownMetrics{PeakEquity: peak}
	}

	runningMax := equity[0]
	var maxDD, maxDDPct float64
	var currDD, currDDPct float64
	for _, e := range equity {
		if e > runningMax {
			runningMax = e
		}
		dd := e - runningMax
		ddPct := 0.0
		if runningMax != 0 {
			ddPct = dd / runningMax * 100
		}
		if dd < maxDD {
			maxDD = dd
		}
		if ddPct < maxDDPct {
			maxDDPct = ddPct
		}
		currDD = dd
		currDDPct = ddPct
	}
	return DrawdownMetrics{
		MaxDrawdown:        math.Abs(maxDD),
		MaxDrawdownPct:     math.Abs(maxDDPct),
		CurrentDrawdown:    math.Abs(currDD),
		CurrentDrawdownPct: math.Abs(currDDPct),
		PeakEquity:         runningMax,
	}
}

// Metrics aggregates the portfolio risk picture.
type Metrics struct {
	VaR95           float64         `json:"var_95"`
	VaR99           float64         `json:"var_99"`
	CVaR95          float64         `json:"cvar_95"`
	KellyPct        float64         `json:"kelly_pct"`
	SharpeRatio     float64         `json:"sharpe_ratio"`
	SortinoRatio    float64         `json:"sortino_ratio"`
	Drawdown        DrawdownMetrics `json:"drawdown"`
	CurrentExposure float64         `json:"current_exposure"`
	MaxExposure     float64         `json:"max_exposure"`
	ExposurePct     float64         `json:"exposure_pct"`
	RiskUtilization float64         `json:"risk_utilization"`
}

// MetricsInput bundles the history needed for ComputeMetrics. WinRate may
// be given as a fraction or a percentage; NaN marks unknown trade stats.
type MetricsInput struct {
	Returns             []float64
	EquityCurve         []float64
	WinRate             float64
	AvgWin              float64
	AvgLoss             float64
	CurrentPositionSize float64
	MaxPositionSize     float64
}

// ComputeMetrics derives the full risk metric set from trade history.
func (a *Analyzer) ComputeMetrics(in MetricsInput) Metrics {
	m := Metrics{
		VaR95:        math.NaN(),
		VaR99:        math.NaN(),
		CVaR95:       math.NaN(),
		KellyPct:     math.NaN(),
		SharpeRatio:  math.NaN(),
		SortinoRatio: math.NaN(),
	}

	if len(in.Returns) >= minVaRSamples {
		m.VaR95 = a.VaR(in.Returns, 0.95, MethodHistorical)
		m.VaR99 = a.VaR(in.Returns, 0.99, MethodHistorical)
		m.CVaR95 = a.ExpectedShortfall(in.Returns, 0.95)
	}

	if !math.IsNaN(in.WinRate) && in.WinRate != 0 &&
		!math.IsNaN(in.AvgWin) && in.AvgWin != 0 &&
		!math.IsNaN(in.AvgLoss) && in.AvgLoss != 0 {
		winRate := in.WinRate
		if winRate > 1 {
			winRate /= 100
		}
		m.KellyPct = a.KellyCriterion(winRate, in.AvgWin, in.AvgLoss) * 100
	}

	if len(in.Returns) >= 2 {
		m.SharpeRatio = a.SharpeRatio(in.Returns)
		m.SortinoRatio = a.SortinoRatio(in.Returns)
	}

	m.Drawdown = a.MaxDrawdown(in.EquityCurve)

	m.CurrentExposure = in.CurrentPositionSize
	m.MaxExposure = in.MaxPositionSize
	if in.MaxPositionSize > 0 {
		m.ExposurePct = in.CurrentPositionSize / in.MaxPositionSize * 100
		if !math.IsNaN(m.VaR95) {
			m.RiskUtilization = m.VaR95 / in.MaxPositionSize * 100
		}
	}
	return m
}

// HealthScore is the composite portfolio health assessment.
type HealthScore struct {
	Score            float64     `json:"health_score"`
	Level            HealthLevel `json:"health_level"`
	DrawdownScore    float64     `json:"drawdown_score"`
	SharpeScore      float64     `json:"sharpe_score"`
	UtilizationScore float64     `json:"utilization_score"`
}

// PortfolioHealthScore condenses drawdown, risk-adjusted return and risk
// budget utilization into a 0-100 score. Weights are 0.40 drawdown, 0.35
// Sharpe, 0.25 utilization.
func (a *Analyzer) PortfolioHealthScore(m Metrics) HealthScore {
	ddPct := m.Drawdown.CurrentDrawdownPct
	var ddScore float64
	switch {
	case ddPct < 5:
		ddScore = 100
	case ddPct < 10:
		ddScore = 90 - (ddPct-5)*2
	case ddPct < 20:
		ddScore = 80 - (ddPct - 10)
	case ddPct < 40:
		ddScore = 70 - (ddPct-20)*1.5
	default:
		ddScore = math.Max(0, 40-(ddPct-40))
	}

	sharpe := m.SharpeRatio
	var sharpeScore float64
	switch {
	case math.IsNaN(sharpe):
		sharpeScore = 50
	case sharpe >= 2.0:
		sharpeScore = 100
	case sharpe >= 1.0:
		sharpeScore = 70 + (sharpe-1.0)*30
	case sharpe >= 0:
		sharpeScore = 50 + sharpe*20
	default:
		sharpeScore = math.Max(0, 50+sharpe*50)
	}

	util := m.RiskUtilization
	if math.IsNaN(util) {
		util = 0
	}
	var utilScore float64
	switch {
	case util >= 50 && util <= 80:
		utilScore = 100
	case util < 50:
		utilScore = 70 + util*0.6
	default:
		utilScore = math.Max(0, 100-(util-80))
	}

	score := ddScore*0.40 + sharpeScore*0.35 + utilScore*0.25

	var level HealthLevel
	switch {
	case score >= 80:
		level = HealthExcellent
	case score >= 65:
		level = HealthGood
	case score >= 50:
		level = HealthFair
	case score >= 35:
		level = HealthPoor
	default:
		level = HealthCritical
	}

	return HealthScore{
		Score:            score,
		Level:            level,
		DrawdownScore:    ddScore,
		SharpeScore:      sharpeScore,
		UtilizationScore: utilScore,
	}
}

func sampleMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := sampleMean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
