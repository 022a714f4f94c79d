package simulator

import (
	"math"
	"sync"
	"time"

	"github.com/quantpair/statarb/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Exit reasons, checked in this order on every evaluation.
const (
	ExitMeanReversion = "mean reversion complete"
	ExitZeroCross     = "z-score crossed zero"
	ExitStopLoss      = "stop loss"
	ExitTakeProfit    = "take profit"
)

// Config holds the simulation parameters for one pair.
type Config struct {
	InitialCapital  float64
	EntryThreshold  float64
	ExitThreshold   float64
	PositionSizePct float64
	StopLossPct     float64
	TakeProfitPct   float64
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  10000,
		EntryThreshold:  2.0,
		ExitThreshold:   0.2,
		PositionSizePct: 0.10,
		StopLossPct:     0.05,
		TakeProfitPct:   0.10,
	}
}

// Mark carries the per-leg pricing context at an evaluation step, recorded
// on the position when an entry fires.
type Mark struct {
	Price1     float64
	Price2     float64
	HedgeRatio float64
}

// UnrealizedPnL is a snapshot of the open position's mark-to-market state.
type UnrealizedPnL struct {
	HasPosition  bool                     `json:"has_position"`
	Direction    models.PositionDirection `json:"direction,omitempty"`
	EntryTime    time.Time                `json:"entry_time,omitempty"`
	EntryZScore  float64                  `json:"entry_zscore,omitempty"`
	Size         float64                  `json:"size,omitempty"`
	PnL          float64                  `json:"pnl"`
	PnLPercent   float64                  `json:"pnl_percent"`
	MaxFavorable float64                  `json:"max_favorable,omitempty"`
	MaxAdverse   float64                  `json:"max_adverse,omitempty"`
}

// PerformanceMetrics summarizes the full closed-trade history.
type PerformanceMetrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"`
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturn    float64 `json:"total_return"`
	CurrentCapital float64 `json:"current_capital"`
	PeakCapital    float64 `json:"peak_capital"`
}

// Simulator runs the two-state position machine for a single pair. All
// methods are safe for concurrent use; closing a position updates capital,
// appends the trade and clears the position under one lock.
type Simulator struct {
	mu     sync.Mutex
	pair   models.Pair
	cfg    Config
	logger *zap.Logger

	initialCapital decimal.Decimal
	currentCapital decimal.Decimal
	peakCapital    decimal.Decimal

	position *models.Position
	trades   []models.ClosedTrade

	totalPnL    float64
	winCount    int
	lossCount   int
	maxDrawdown float64
}

// New creates a simulator for the given pair.
func New(pair models.Pair, cfg Config, logger *zap.Logger) *Simulator {
	capital := decimal.NewFromFloat(cfg.InitialCapital)
	return &Simulator{
		pair:           pair,
		cfg:            cfg,
		logger:         logger,
		initialCapital: capital,
		currentCapital: capital,
		peakCapital:    capital,
	}
}

// State reports whether the simulator is flat or holding a position.
func (s *Simulator) State() models.PositionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position != nil {
		return models.StateOpen
	}
	return models.StateFlat
}

// OpenPosition returns a copy of the current position, or nil when flat.
func (s *Simulator) OpenPosition() *models.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return nil
	}
	p := *s.position
	return &p
}

// CheckEntry opens a position when flat and |zscore| exceeds the entry
// threshold. A short spread is opened on positive z, a long spread on
// negative z. Returns true when a position was opened.
func (s *Simulator) CheckEntry(zscore, spread float64, mark Mark, ts time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position != nil {
		return false
	}
	if math.IsNaN(zscore) || math.Abs(zscore) <= s.cfg.EntryThreshold {
		return false
	}
	if spread == 0 {
		// PnL is measured relative to the entry spread, so a zero entry
		// spread would make the position unpriceable
		s.logger.Warn("refusing entry at zero spread",
			zap.String("pair", s.pair.Name()),
			zap.Float64("zscore", zscore))
		return false
	}

	direction := models.Long
	if zscore > 0 {
		direction = models.Short
	}
	size := s.currentCapital.Mul(decimal.NewFromFloat(s.cfg.PositionSizePct))

	s.position = &models.Position{
		Pair:        s.pair,
		Direction:   direction,
		Size:        size,
		EntrySpread: spread,
		EntryZScore: zscore,
		EntryPrice1: mark.Price1,
		EntryPrice2: mark.Price2,
		HedgeRatio:  mark.HedgeRatio,
		EntryTime:   ts,
	}

	s.logger.Info("position opened",
		zap.String("pair", s.pair.Name()),
		zap.String("direction", string(direction)),
		zap.Float64("zscore", zscore),
		zap.Float64("spread", spread),
		zap.String("size", size.StringFixed(2)),
	)
	return true
}

// CheckExit evaluates the exit conditions for the open position in strict
// priority: mean reversion complete, z-score crossed zero, stop loss, take
// profit. It also advances the excursion trackers. Returns the exit reason
// and true when the position was closed.
func (s *Simulator) CheckExit(zscore, spread float64, ts time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position == nil {
		return "", false
	}
	pos := s.position
	pnl, _ := s.markToMarket(spread)

	if pnl > pos.MaxFavorable {
		pos.MaxFavorable = pnl
	}
	if pnl < pos.MaxAdverse {
		pos.MaxAdverse = pnl
	}

	size := pos.Size.InexactFloat64()
	var reason string
	switch {
	case math.Abs(zscore) < s.cfg.ExitThreshold:
		reason = ExitMeanReversion
	case (pos.Direction == models.Long && zscore > 0) ||
		(pos.Direction == models.Short && zscore < 0):
		reason = ExitZeroCross
	case pnl < -(size * s.cfg.StopLossPct):
		reason = ExitStopLoss
	case pnl > size*s.cfg.TakeProfitPct:
		reason = ExitTakeProfit
	default:
		return "", false
	}

	s.closeLocked(zscore, spread, ts, reason)
	return reason, true
}

// markToMarket computes the open position's PnL at the given spread.
// Caller must hold the lock.
func (s *Simulator) markToMarket(spread float64) (pnl, pnlPct float64) {
	pos := s.position
	if pos == nil {
		return 0, 0
	}
	size := pos.Size.InexactFloat64()
	change := spread - pos.EntrySpread
	if pos.Direction == models.Long {
		pnl = size * (change / pos.EntrySpread)
	} else {
		pnl = size * (-change / pos.EntrySpread)
	}
	if size != 0 {
		pnlPct = pnl / size * 100
	}
	return pnl, pnlPct
}

// closeLocked settles the position: capital, ledger and position state
// change together. Caller must hold the lock.
func (s *Simulator) closeLocked(zscore, spread float64, ts time.Time, reason string) {
	pos := s.position
	pnl, pnlPct := s.markToMarket(spread)

	s.currentCapital = s.currentCapital.Add(decimal.NewFromFloat(pnl))
	s.totalPnL += pnl

	if s.currentCapital.GreaterThan(s.peakCapital) {
		s.peakCapital = s.currentCapital
	}
	peak := s.peakCapital.InexactFloat64()
	if peak > 0 {
		drawdown := (peak - s.currentCapital.InexactFloat64()) / peak
		if drawdown > s.maxDrawdown {
			s.maxDrawdown = drawdown
		}
	}

	if pnl > 0 {
		s.winCount++
	} else {
		s.lossCount++
	}

	s.trades = append(s.trades, models.ClosedTrade{
		Pair:         pos.Pair,
		Direction:    pos.Direction,
		Size:         pos.Size,
		EntrySpread:  pos.EntrySpread,
		ExitSpread:   spread,
		EntryZScore:  pos.EntryZScore,
		ExitZScore:   zscore,
		EntryPrice1:  pos.EntryPrice1,
		EntryPrice2:  pos.EntryPrice2,
		HedgeRatio:   pos.HedgeRatio,
		EntryTime:    pos.EntryTime,
		ExitTime:     ts,
		PnL:          pnl,
		PnLPercent:   pnlPct,
		ExitReason:   reason,
		MaxFavorable: pos.MaxFavorable,
		MaxAdverse:   pos.MaxAdverse,
	})
	s.position = nil

	s.logger.Info("position closed",
		zap.String("pair", s.pair.Name()),
		zap.String("reason", reason),
		zap.Float64("zscore", zscore),
		zap.Float64("pnl", pnl),
		zap.Float64("pnl_pct", pnlPct),
		zap.Float64("total_pnl", s.totalPnL),
	)
}

// UnrealizedPnL marks the open position to the given spread without
// mutating the excursion trackers.
func (s *Simulator) UnrealizedPnL(spread float64) UnrealizedPnL {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.position == nil {
		return UnrealizedPnL{}
	}
	pnl, pnlPct := s.markToMarket(spread)
	pos := s.position
	return UnrealizedPnL{
		HasPosition:  true,
		Direction:    pos.Direction,
		EntryTime:    pos.EntryTime,
		EntryZScore:  pos.EntryZScore,
		Size:         pos.Size.InexactFloat64(),
		PnL:          pnl,
		PnLPercent:   pnlPct,
		MaxFavorable: pos.MaxFavorable,
		MaxAdverse:   pos.MaxAdverse,
	}
}

// TradeHistory returns a copy of the closed-trade ledger.
func (s *Simulator) TradeHistory() []models.ClosedTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClosedTrade, len(s.trades))
	copy(out, s.trades)
	return out
}

// EquityCurve returns capital after each closed trade, starting from the
// initial capital.
func (s *Simulator) EquityCurve() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	curve := make([]float64, 0, len(s.trades)+1)
	equity := s.initialCapital.InexactFloat64()
	curve = append(curve, equity)
	for _, t := range s.trades {
		equity += t.PnL
		curve = append(curve, equity)
	}
	return curve
}

// CurrentCapital returns the capital after all settled trades.
func (s *Simulator) CurrentCapital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCapital.InexactFloat64()
}

// PerformanceMetrics recomputes the summary statistics from the entire
// trade history.
func (s *Simulator) PerformanceMetrics() PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := PerformanceMetrics{
		TotalTrades:    len(s.trades),
		CurrentCapital: s.currentCapital.InexactFloat64(),
		PeakCapital:    s.peakCapital.InexactFloat64(),
	}
	if len(s.trades) == 0 {
		return m
	}

	m.WinRate = float64(s.winCount) / float64(len(s.trades)) * 100
	m.TotalPnL = s.totalPnL
	m.MaxDrawdown = s.maxDrawdown * 100

	initial := s.initialCapital.InexactFloat64()
	if initial > 0 {
		m.TotalReturn = (m.CurrentCapital - initial) / initial * 100
	}

	var winSum, lossSum float64
	var wins, losses int
	returns := make([]float64, 0, len(s.trades))
	for _, t := range s.trades {
		size := t.Size.InexactFloat64()
		if size != 0 {
			returns = append(returns, t.PnL/size*100)
		}
		if t.PnL > 0 {
			winSum += t.PnL
			wins++
		} else if t.PnL < 0 {
			lossSum += -t.PnL
			losses++
		}
	}
	if wins > 0 {
		m.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = lossSum / float64(losses)
	}
	if lossSum > 0 {
		m.ProfitFactor = winSum / lossSum
	}

	// trade-level Sharpe, annualized assuming one round trip per day
	if len(returns) > 1 {
		meanRet := 0.0
		for _, r := range returns {
			meanRet += r
		}
		meanRet /= float64(len(returns))
		varRet := 0.0
		for _, r := range returns {
			d := r - meanRet
			varRet += d * d
		}
		stdRet := math.Sqrt(varRet / float64(len(returns)))
		if stdRet > 0 {
			m.SharpeRatio = meanRet / stdRet * math.Sqrt(252)
		}
	}
	return m
}
