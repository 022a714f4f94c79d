package simulator

import (
	"math"
	"testing"
	"time"

	"github.com/quantpair/statarb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testPair = models.Pair{Symbol1: "btcusdt", Symbol2: "ethusdt"}

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	return New(testPair, DefaultConfig(), zaptest.NewLogger(t))
}

func testMark() Mark {
	return Mark{Price1: 50000, Price2: 3000, HedgeRatio: 2.1}
}

func TestCheckEntryBelowThreshold(t *testing.T) {
	sim := newTestSimulator(t)

	assert.False(t, sim.CheckEntry(1.5, 100, testMark(), time.Now()))
	assert.False(t, sim.CheckEntry(-1.9, 100, testMark(), time.Now()))
	// the threshold itself is not enough
	assert.False(t, sim.CheckEntry(2.0, 100, testMark(), time.Now()))
	assert.Equal(t, models.StateFlat, sim.State())
}

func TestCheckEntryRejectsBadInputs(t *testing.T) {
	sim := newTestSimulator(t)

	assert.False(t, sim.CheckEntry(math.NaN(), 100, testMark(), time.Now()))
	assert.False(t, sim.CheckEntry(2.5, 0, testMark(), time.Now()), "zero spread is unpriceable")
	assert.Equal(t, models.StateFlat, sim.State())
}

func TestCheckEntryShortOnPositiveZScore(t *testing.T) {
	sim := newTestSimulator(t)

	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))
	assert.Equal(t, models.StateOpen, sim.State())

	pos := sim.OpenPosition()
	require.NotNil(t, pos)
	assert.Equal(t, models.Short, pos.Direction)
	assert.InDelta(t, 1000.0, pos.Size.InexactFloat64(), 1e-9) // 10% of 10k
	assert.Equal(t, 100.0, pos.EntrySpread)
	assert.Equal(t, 2.5, pos.EntryZScore)
	assert.Equal(t, 50000.0, pos.EntryPrice1)
	assert.Equal(t, 3000.0, pos.EntryPrice2)
	assert.Equal(t, 2.1, pos.HedgeRatio)

	// already open, second entry refused
	assert.False(t, sim.CheckEntry(3.0, 110, testMark(), time.Now()))
}

func TestCheckEntryLongOnNegativeZScore(t *testing.T) {
	sim := newTestSimulator(t)

	require.True(t, sim.CheckEntry(-2.5, 100, testMark(), time.Now()))
	pos := sim.OpenPosition()
	require.NotNil(t, pos)
	assert.Equal(t, models.Long, pos.Direction)
}

func TestMeanReversionExit(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	// spread narrowed and |z| dipped under the exit threshold
	reason, closed := sim.CheckExit(0.1, 95, time.Now())
	require.True(t, closed)
	assert.Equal(t, ExitMeanReversion, reason)
	assert.Equal(t, models.StateFlat, sim.State())

	trades := sim.TradeHistory()
	require.Len(t, trades, 1)
	assert.InDelta(t, 50.0, trades[0].PnL, 1e-9) // short, spread -5%
	assert.InDelta(t, 5.0, trades[0].PnLPercent, 1e-9)
	assert.Equal(t, 50000.0, trades[0].EntryPrice1)
	assert.Equal(t, 3000.0, trades[0].EntryPrice2)
	assert.Equal(t, 2.1, trades[0].HedgeRatio)
	assert.InDelta(t, 10050.0, sim.CurrentCapital(), 1e-9)
}

func TestZeroCrossExit(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	// z flipped sign but is still outside the exit band
	reason, closed := sim.CheckExit(-0.5, 99, time.Now())
	require.True(t, closed)
	assert.Equal(t, ExitZeroCross, reason)

	trades := sim.TradeHistory()
	require.Len(t, trades, 1)
	assert.InDelta(t, 10.0, trades[0].PnL, 1e-9)
}

func TestStopLossExit(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	// short position, spread widened 6% against us: loss of 60 on size 1000
	reason, closed := sim.CheckExit(2.8, 106, time.Now())
	require.True(t, closed)
	assert.Equal(t, ExitStopLoss, reason)

	trades := sim.TradeHistory()
	require.Len(t, trades, 1)
	assert.InDelta(t, -60.0, trades[0].PnL, 1e-9)
	assert.InDelta(t, 9940.0, sim.CurrentCapital(), 1e-9)
}

func TestTakeProfitExit(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	// spread narrowed 11%: gain of 110 on size 1000, above the 10% target
	reason, closed := sim.CheckExit(1.0, 89, time.Now())
	require.True(t, closed)
	assert.Equal(t, ExitTakeProfit, reason)

	trades := sim.TradeHistory()
	require.Len(t, trades, 1)
	assert.InDelta(t, 110.0, trades[0].PnL, 1e-9)
}

func TestExitPriorityMeanReversionWins(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	// both mean reversion and take profit hold; mean reversion is reported
	reason, closed := sim.CheckExit(0.1, 89, time.Now())
	require.True(t, closed)
	assert.Equal(t, ExitMeanReversion, reason)
}

func TestNoExitWhileConditionsHold(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	reason, closed := sim.CheckExit(2.2, 101, time.Now())
	assert.False(t, closed)
	assert.Empty(t, reason)
	assert.Equal(t, models.StateOpen, sim.State())
}

func TestExcursionTracking(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	_, closed := sim.CheckExit(1.5, 98, time.Now()) // +20 favorable
	require.False(t, closed)
	_, closed = sim.CheckExit(2.8, 103, time.Now()) // -30 adverse
	require.False(t, closed)

	u := sim.UnrealizedPnL(103)
	require.True(t, u.HasPosition)
	assert.InDelta(t, -30.0, u.PnL, 1e-9)
	assert.InDelta(t, -3.0, u.PnLPercent, 1e-9)
	assert.InDelta(t, 20.0, u.MaxFavorable, 1e-9)
	assert.InDelta(t, -30.0, u.MaxAdverse, 1e-9)
}

func TestUnrealizedPnLWhenFlat(t *testing.T) {
	sim := newTestSimulator(t)
	u := sim.UnrealizedPnL(100)
	assert.False(t, u.HasPosition)
	assert.Zero(t, u.PnL)
}

func TestZeroPnLCountsAsLoss(t *testing.T) {
	sim := newTestSimulator(t)
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), time.Now()))

	_, closed := sim.CheckExit(-0.5, 100, time.Now())
	require.True(t, closed)

	perf := sim.PerformanceMetrics()
	assert.Equal(t, 1, perf.TotalTrades)
	assert.Zero(t, perf.WinRate)
}

func TestPerformanceMetrics(t *testing.T) {
	sim := newTestSimulator(t)
	ts := time.Now()

	// win: +50
	require.True(t, sim.CheckEntry(2.5, 100, testMark(), ts))
	_, closed := sim.CheckExit(0.1, 95, ts.Add(time.Minute))
	require.True(t, closed)

	// loss: -60.3 (size compounds to 1005)
	require.True(t, sim.CheckEntry(-2.5, 200, testMark(), ts.Add(2*time.Minute)))
	_, closed = sim.CheckExit(-2.8, 188, ts.Add(3*time.Minute))
	require.True(t, closed)

	perf := sim.PerformanceMetrics()
	assert.Equal(t, 2, perf.TotalTrades)
	assert.InDelta(t, 50.0, perf.WinRate, 1e-9)
	assert.InDelta(t, 50.0, perf.AvgWin, 1e-9)
	assert.InDelta(t, 60.3, perf.AvgLoss, 1e-9)
	assert.InDelta(t, 50.0/60.3, perf.ProfitFactor, 1e-9)
	assert.InDelta(t, -10.3, perf.TotalPnL, 1e-9)
	assert.InDelta(t, 9989.7, perf.CurrentCapital, 1e-9)
	assert.InDelta(t, 10050.0, perf.PeakCapital, 1e-9)
	assert.InDelta(t, 60.3/10050.0*100, perf.MaxDrawdown, 1e-9)

	// per-trade returns are +5% and -6%, population std
	meanRet := (5.0 - 6.0) / 2
	std := math.Sqrt((math.Pow(5.0-meanRet, 2) + math.Pow(-6.0-meanRet, 2)) / 2)
	assert.InDelta(t, meanRet/std*math.Sqrt(252), perf.SharpeRatio, 1e-9)

	curve := sim.EquityCurve()
	require.Len(t, curve, 3)
	assert.InDelta(t, 10000.0, curve[0], 1e-9)
	assert.InDelta(t, 10050.0, curve[1], 1e-9)
	assert.InDelta(t, 9989.7, curve[2], 1e-9)
}

func TestPerformanceMetricsEmpty(t *testing.T) {
	sim := newTestSimulator(t)
	perf := sim.PerformanceMetrics()
	assert.Zero(t, perf.TotalTrades)
	assert.Zero(t, perf.WinRate)
	assert.InDelta(t, 10000.0, perf.CurrentCapital, 1e-9)
}
