package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpair/statarb/internal/models"
)

func makeTick(symbol string, price float64, ts time.Time) models.Tick {
	return models.Tick{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(price),
		Size:      decimal.NewFromFloat(1),
		Timestamp: ts,
	}
}

func TestBufferPushAndRead(t *testing.T) {
	buf := NewBuffer(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	buf.Push(makeTick("btcusdt", 50000, base))
	buf.Push(makeTick("btcusdt", 50010, base.Add(time.Second)))
	buf.Push(makeTick("ethusdt", 3000, base))

	assert.Equal(t, 2, buf.Len("btcusdt"))
	assert.Equal(t, 1, buf.Len("ethusdt"))
	assert.Equal(t, 0, buf.Len("solusdt"))

	last, ok := buf.LastTick("btcusdt")
	require.True(t, ok)
	assert.Equal(t, 50010.0, last.Price.InexactFloat64())
	assert.Equal(t, base.Add(time.Second), last.Timestamp)

	_, ok = buf.LastTick("solusdt")
	assert.False(t, ok)

	assert.Equal(t, []float64{50000, 50010}, buf.Prices("btcusdt"))
	assert.Empty(t, buf.Prices("solusdt"))
}

func TestBufferEviction(t *testing.T) {
	buf := NewBuffer(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		buf.Push(makeTick("btcusdt", 100+float64(i), base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, buf.Len("btcusdt"))
	assert.Equal(t, []float64{102, 103, 104}, buf.Prices("btcusdt"))
}

func TestBufferMinimumSize(t *testing.T) {
	buf := NewBuffer(0)
	buf.Push(makeTick("btcusdt", 100, time.Now()))
	buf.Push(makeTick("btcusdt", 101, time.Now()))
	assert.Equal(t, []float64{101}, buf.Prices("btcusdt"))
}

func TestBufferTicksReturnsCopy(t *testing.T) {
	buf := NewBuffer(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.Push(makeTick("btcusdt", 100, base))

	ticks := buf.Ticks("btcusdt")
	require.Len(t, ticks, 1)
	ticks[0].Symbol = "mutated"

	again := buf.Ticks("btcusdt")
	assert.Equal(t, "btcusdt", again[0].Symbol)
}

func TestBufferPricePoints(t *testing.T) {
	buf := NewBuffer(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.Push(makeTick("btcusdt", 100, base))
	buf.Push(makeTick("btcusdt", 101, base.Add(time.Second)))

	points := buf.PricePoints("btcusdt")
	require.Len(t, points, 2)
	assert.Equal(t, base, points[0].Timestamp)
	assert.Equal(t, 100.0, points[0].Price)
	assert.Equal(t, base.Add(time.Second), points[1].Timestamp)
	assert.Equal(t, 101.0, points[1].Price)
}

func TestBufferSymbolsAndClear(t *testing.T) {
	buf := NewBuffer(10)
	buf.Push(makeTick("btcusdt", 100, time.Now()))
	buf.Push(makeTick("ethusdt", 3000, time.Now()))

	assert.ElementsMatch(t, []string{"btcusdt", "ethusdt"}, buf.Symbols())

	buf.Clear()
	assert.Empty(t, buf.Symbols())
	assert.Equal(t, 0, buf.Len("btcusdt"))
}
