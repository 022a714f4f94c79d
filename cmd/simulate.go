package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantpair/statarb/internal/analytics"
	"github.com/quantpair/statarb/internal/models"
	"github.com/quantpair/statarb/internal/risk"
	"github.com/quantpair/statarb/internal/signal"
	"github.com/quantpair/statarb/internal/simulator"
	"github.com/quantpair/statarb/pkg/formatters"
)

var (
	simSteps int
	simSeed  int64
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVar(&simSteps, "steps", 2000, "number of synthetic price steps")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "random seed")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a synthetic cointegrated pair through the engine",
	Long: `Generates a synthetic cointegrated price pair, walks it through the
statistics engine and position simulator, and prints the resulting trades,
performance, risk and signal quality.`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	pair := models.Pair{Symbol1: "synthusdt", Symbol2: "pairusdt"}
	if len(cfg.Pairs) > 0 {
		if p, ok := models.ParsePair(cfg.Pairs[0]); ok {
			pair = p
		}
	}

	p1, p2 := syntheticPair(simSteps, simSeed)
	fmt.Printf("🎲 Simulating %s over %d steps (seed %d)\n", pair.Name(), simSteps, simSeed)

	sim := simulator.New(pair, simulator.Config{
		InitialCapital:  cfg.Strategy.InitialCapital,
		EntryThreshold:  cfg.Strategy.EntryThreshold,
		ExitThreshold:   cfg.Strategy.ExitThreshold,
		PositionSizePct: cfg.Strategy.PositionSizePct,
		StopLossPct:     cfg.Strategy.StopLossPct,
		TakeProfitPct:   cfg.Strategy.TakeProfitPct,
	}, logger)

	start := time.Now().Add(-time.Duration(simSteps) * time.Second)
	warmup := cfg.Analytics.ZScoreWindow
	var lastSpread []float64

	for t := warmup; t < simSteps; t++ {
		ratio, _, _ := analytics.HedgeRatio(p1[:t+1], p2[:t+1], analytics.MethodOLS)
		if math.IsNaN(ratio) {
			continue
		}
		spread := analytics.Spread(p1[:t+1], p2[:t+1], ratio)
		z := analytics.Last(analytics.ZScore(spread, cfg.Analytics.ZScoreWindow, cfg.Analytics.ZScoreMinPeriods))
		if math.IsNaN(z) {
			continue
		}
		lastSpread = spread

		ts := start.Add(time.Duration(t) * time.Second)
		switch sim.State() {
		case models.StateFlat:
			sim.CheckEntry(z, analytics.Last(spread), simulator.Mark{
				Price1:     p1[t],
				Price2:     p2[t],
				HedgeRatio: ratio,
			}, ts)
		case models.StateOpen:
			sim.CheckExit(z, analytics.Last(spread), ts)
		}
	}

	perf := sim.PerformanceMetrics()
	fmt.Println(formatters.FormatTradesTable(sim.TradeHistory()))
	fmt.Println(formatters.FormatPerformanceTable(pair, perf))

	// Risk and quality on the final state
	analyzer := risk.NewAnalyzer(risk.Config{
		RiskFreeRate:   cfg.Risk.RiskFreeRate,
		PeriodsPerYear: cfg.Risk.PeriodsPerYear,
	}, logger)
	trades := sim.TradeHistory()
	returns := make([]float64, 0, len(trades))
	for _, tr := range trades {
		if size := tr.Size.InexactFloat64(); size != 0 {
			returns = append(returns, tr.PnL/size)
		}
	}
	in := risk.MetricsInput{
		Returns:         returns,
		EquityCurve:     sim.EquityCurve(),
		WinRate:         perf.WinRate,
		AvgWin:          perf.AvgWin,
		AvgLoss:         perf.AvgLoss,
		MaxPositionSize: cfg.Strategy.InitialCapital * cfg.Strategy.MaxPositionPct,
	}
	if perf.TotalTrades == 0 {
		in.WinRate, in.AvgWin, in.AvgLoss = math.NaN(), math.NaN(), math.NaN()
	}
	metrics := analyzer.ComputeMetrics(in)
	fmt.Println(formatters.FormatRiskTable(pair, metrics, analyzer.PortfolioHealthScore(metrics)))

	if len(lastSpread) > 0 {
		scorer := signal.NewScorer(signal.Weights{
			ZScore:        cfg.Quality.ZScoreWeight,
			Correlation:   cfg.Quality.CorrelationWeight,
			Stability:     cfg.Quality.StabilityWeight,
			Cointegration: cfg.Quality.CointegrationWeight,
			Historical:    cfg.Quality.HistoricalWeight,
		}, cfg.Strategy.EntryThreshold, cfg.Quality.CorrelationThreshold)

		coint := analytics.ADFTest(lastSpread, cfg.Analytics.ADFMaxLag, cfg.Analytics.ADFSignificance)
		quality := scorer.Score(signal.Input{
			ZScore:       analytics.Last(analytics.ZScore(lastSpread, cfg.Analytics.ZScoreWindow, cfg.Analytics.ZScoreMinPeriods)),
			Correlation:  analytics.Last(analytics.RollingCorrelation(p1, p2, cfg.Analytics.CorrelationWindow)),
			Spread:       lastSpread,
			ADFPValue:    coint.PValue,
			HalfLife:     analytics.HalfLife(lastSpread),
			WinRate:      perf.WinRate,
			ProfitFactor: perf.ProfitFactor,
			TotalTrades:  perf.TotalTrades,
		})
		fmt.Println(formatters.FormatQuality(pair, quality))
	}

	return nil
}

// syntheticPair builds a cointegrated pair: a random walk and a second
// series tied to it through a mean-reverting spread.
func syntheticPair(n int, seed int64) (p1, p2 []float64) {
	rng := newLCG(seed)
	p1 = make([]float64, n)
	p2 = make([]float64, n)

	base := 100.0
	spread := 0.0
	for i := 0; i < n; i++ {
		base += rng.normal() * 0.5
		spread = 0.92*spread + rng.normal()*0.4
		p1[i] = base + spread
		p2[i] = base / 2
	}
	return p1, p2
}

// lcg is a small deterministic generator so simulations repeat exactly.
type lcg struct {
	state uint64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: uint64(seed)*6364136223846793005 + 1442695040888963407}
}

func (r *lcg) next() float64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return float64(r.state>>11) / (1 << 53)
}

// normal approximates a standard normal draw by summing uniforms.
func (r *lcg) normal() float64 {
	sum := 0.0
	for i := 0; i < 12; i++ {
		sum += r.next()
	}
	return sum - 6
}
