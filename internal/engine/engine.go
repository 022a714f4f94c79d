// Package engine ties the analytics, simulator, risk, quality and alert
// components together into a per-pair evaluation loop.
package engine

import (
	"math"
	"time"

	"github.com/quantpair/statarb/internal/alerts"
	"github.com/quantpair/statarb/internal/analytics"
	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/models"
	"github.com/quantpair/statarb/internal/risk"
	"github.com/quantpair/statarb/internal/signal"
	"github.com/quantpair/statarb/internal/simulator"
	"go.uber.org/zap"
)

// Snapshot metric names published to the sinks.
const (
	MetricHedgeRatio    = "hedge_ratio"
	MetricZScore        = "zscore"
	MetricCorrelation   = "correlation"
	MetricCointegration = "cointegration"
	MetricHalfLife      = "half_life"
	MetricVolRegime     = "vol_regime"
	MetricTrend         = "trend"
	MetricUnrealizedPnL = "unrealized_pnl"
	MetricPerformance   = "performance"
	MetricRiskMetrics   = "risk_metrics"
	MetricSignalQuality = "signal_quality"
	MetricHealthScore   = "health_score"
)

// Snapshot TTLs. Slow-moving statistics live longer than mark-to-market
// values.
const (
	ttlSlow = 60 * time.Second
	ttlFast = 10 * time.Second
	ttlMark = 5 * time.Second
)

// PriceSource supplies the per-symbol price history the engine evaluates.
type PriceSource interface {
	Prices(symbol string) []float64
}

// SnapshotSink receives published metric snapshots.
type SnapshotSink interface {
	Put(pair, metric string, value interface{}, ttl time.Duration)
}

// ZScoreSnapshot is the published z-score state.
type ZScoreSnapshot struct {
	ZScore      float64 `json:"zscore"`
	Spread      float64 `json:"spread"`
	SampleCount int     `json:"sample_count"`
}

// HedgeRatioSnapshot is the published hedge ratio state.
type HedgeRatioSnapshot struct {
	Ratio    float64 `json:"ratio"`
	RSquared float64 `json:"r_squared"`
	PValue   float64 `json:"p_value"`
}

// PairEngine evaluates a single trading pair. It is not safe for concurrent
// use; the runner serializes evaluations per pair.
type PairEngine struct {
	pair   models.Pair
	cfg    *config.Config
	logger *zap.Logger

	source PriceSource
	sinks  []SnapshotSink

	sim    *simulator.Simulator
	riskan *risk.Analyzer
	scorer *signal.Scorer
	alerts *alerts.Engine

	entryRuleID string
	corrRuleID  string
}

// NewPairEngine wires the per-pair components and registers the standing
// alert rules.
func NewPairEngine(
	pair models.Pair,
	cfg *config.Config,
	source PriceSource,
	alertEngine *alerts.Engine,
	logger *zap.Logger,
) *PairEngine {
	simCfg := simulator.Config{
		InitialCapital:  cfg.Strategy.InitialCapital,
		EntryThreshold:  cfg.Strategy.EntryThreshold,
		ExitThreshold:   cfg.Strategy.ExitThreshold,
		PositionSizePct: cfg.Strategy.PositionSizePct,
		StopLossPct:     cfg.Strategy.StopLossPct,
		TakeProfitPct:   cfg.Strategy.TakeProfitPct,
	}
	weights := signal.Weights{
		ZScore:        cfg.Quality.ZScoreWeight,
		Correlation:   cfg.Quality.CorrelationWeight,
		Stability:     cfg.Quality.StabilityWeight,
		Cointegration: cfg.Quality.CointegrationWeight,
		Historical:    cfg.Quality.HistoricalWeight,
	}

	e := &PairEngine{
		pair:   pair,
		cfg:    cfg,
		logger: logger.With(zap.String("pair", pair.Name())),
		source: source,
		sim:    simulator.New(pair, simCfg, logger),
		riskan: risk.NewAnalyzer(risk.Config{
			RiskFreeRate:   cfg.Risk.RiskFreeRate,
			PeriodsPerYear: cfg.Risk.PeriodsPerYear,
		}, logger),
		scorer: signal.NewScorer(weights, cfg.Strategy.EntryThreshold, cfg.Quality.CorrelationThreshold),
		alerts: alertEngine,
	}

	entryRule := alerts.MeanReversionEntryRule(pair.Name(), cfg.Alerts.ZScoreThreshold)
	entryRule.Cooldown = cfg.Alerts.EntryCooldown
	corrRule := alerts.CorrelationBreakRule(pair.Name(), cfg.Alerts.CorrelationThreshold)
	corrRule.Cooldown = cfg.Alerts.CorrelationCooldown
	alertEngine.AddRule(entryRule)
	alertEngine.AddRule(corrRule)
	e.entryRuleID = entryRule.RuleID
	e.corrRuleID = corrRule.RuleID

	return e
}

// AddSink registers a snapshot destination.
func (e *PairEngine) AddSink(sink SnapshotSink) {
	e.sinks = append(e.sinks, sink)
}

// Simulator exposes the pair's position simulator.
func (e *PairEngine) Simulator() *simulator.Simulator {
	return e.sim
}

// Pair returns the pair this engine evaluates.
func (e *PairEngine) Pair() models.Pair {
	return e.pair
}

// Evaluate runs one full analytics cycle against the current price history.
// Stages that depend on an undefined statistic are skipped rather than fed
// NaN inputs.
func (e *PairEngine) Evaluate(now time.Time) {
	p1 := e.source.Prices(e.pair.Symbol1)
	p2 := e.source.Prices(e.pair.Symbol2)

	ratio, rSquared, pValue := analytics.HedgeRatio(p1, p2, analytics.MethodOLS)
	if math.IsNaN(ratio) {
		e.logger.Debug("insufficient history for hedge ratio",
			zap.Int("len1", len(p1)),
			zap.Int("len2", len(p2)))
		return
	}
	e.publish(MetricHedgeRatio, HedgeRatioSnapshot{
		Ratio:    ratio,
		RSquared: rSquared,
		PValue:   pValue,
	}, ttlSlow)

	spread := analytics.Spread(p1, p2, ratio)
	zSeries := analytics.ZScore(spread, e.cfg.Analytics.ZScoreWindow, e.cfg.Analytics.ZScoreMinPeriods)
	z := analytics.Last(zSeries)
	lastSpread := analytics.Last(spread)

	corr := analytics.Last(analytics.RollingCorrelation(p1, p2, e.cfg.Analytics.CorrelationWindow))
	coint := analytics.ADFTest(spread, e.cfg.Analytics.ADFMaxLag, e.cfg.Analytics.ADFSignificance)
	halfLife := analytics.HalfLife(spread)
	regime := analytics.VolatilityRegime(spread, e.cfg.Analytics.VolatilityWindow, e.cfg.Analytics.VolRegimeFactor)
	trend := analytics.Trend(p1, e.cfg.Analytics.VolatilityWindow)

	if !math.IsNaN(corr) {
		e.publish(MetricCorrelation, corr, ttlSlow)
	}
	if !coint.Undefined() {
		e.publish(MetricCointegration, coint, ttlSlow)
	}
	e.publish(MetricHalfLife, halfLife, ttlSlow)
	e.publish(MetricVolRegime, string(regime), ttlSlow)
	e.publish(MetricTrend, trend, ttlSlow)

	if math.IsNaN(z) {
		e.logger.Debug("z-score not yet defined", zap.Int("spread_len", len(spread)))
		return
	}
	e.publish(MetricZScore, ZScoreSnapshot{
		ZScore:      z,
		Spread:      lastSpread,
		SampleCount: len(spread),
	}, ttlFast)

	mark := simulator.Mark{
		Price1:     analytics.Last(p1),
		Price2:     analytics.Last(p2),
		HedgeRatio: ratio,
	}
	e.evaluatePosition(z, lastSpread, mark, now)
	perf := e.sim.PerformanceMetrics()

	e.publish(MetricUnrealizedPnL, e.sim.UnrealizedPnL(lastSpread), ttlMark)
	e.publish(MetricPerformance, perf, ttlFast)

	metrics := e.computeRisk(perf)
	e.publish(MetricRiskMetrics, metrics, ttlFast)
	e.publish(MetricHealthScore, e.riskan.PortfolioHealthScore(metrics), ttlFast)

	quality := e.scorer.Score(signal.Input{
		ZScore:       z,
		Correlation:  corr,
		Spread:       spread,
		ADFPValue:    coint.PValue,
		HalfLife:     halfLife,
		WinRate:      perf.WinRate,
		ProfitFactor: perf.ProfitFactor,
		TotalTrades:  perf.TotalTrades,
	})
	e.publish(MetricSignalQuality, quality, ttlFast)

	e.alerts.CheckRule(e.entryRuleID, z, nil)
	if !math.IsNaN(corr) {
		e.alerts.CheckRule(e.corrRuleID, corr, nil)
	}
}

// evaluatePosition advances the position state machine by one step.
func (e *PairEngine) evaluatePosition(z, spread float64, mark simulator.Mark, now time.Time) {
	switch e.sim.State() {
	case models.StateFlat:
		e.sim.CheckEntry(z, spread, mark, now)
	case models.StateOpen:
		e.sim.CheckExit(z, spread, now)
	}
}

// computeRisk assembles the risk metric input from the simulator's history.
func (e *PairEngine) computeRisk(perf simulator.PerformanceMetrics) risk.Metrics {
	trades := e.sim.TradeHistory()
	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		size := t.Size.InexactFloat64()
		if size != 0 {
			returns = append(returns, t.PnL/size)
		}
	}

	var openSize float64
	if pos := e.sim.OpenPosition(); pos != nil {
		openSize = pos.Size.InexactFloat64()
	}

	in := risk.MetricsInput{
		Returns:             returns,
		EquityCurve:         e.sim.EquityCurve(),
		WinRate:             perf.WinRate,
		AvgWin:              perf.AvgWin,
		AvgLoss:             perf.AvgLoss,
		CurrentPositionSize: openSize,
		MaxPositionSize:     e.cfg.Strategy.InitialCapital * e.cfg.Strategy.MaxPositionPct,
	}
	if perf.TotalTrades == 0 {
		in.WinRate = math.NaN()
		in.AvgWin = math.NaN()
		in.AvgLoss = math.NaN()
	}
	return e.riskan.ComputeMetrics(in)
}

// publish fans a snapshot out to every sink.
func (e *PairEngine) publish(metric string, value interface{}, ttl time.Duration) {
	for _, sink := range e.sinks {
		sink.Put(e.pair.Name(), metric, value, ttl)
	}
}
