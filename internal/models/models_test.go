package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	pair, ok := ParsePair("btcusdt:ethusdt")
	require.True(t, ok)
	assert.Equal(t, "btcusdt", pair.Symbol1)
	assert.Equal(t, "ethusdt", pair.Symbol2)
	assert.Equal(t, "btcusdt:ethusdt", pair.Name())

	pair, ok = ParsePair(" BTCUSDT : ETHUSDT ")
	require.True(t, ok)
	assert.Equal(t, "btcusdt:ethusdt", pair.Name())

	for _, bad := range []string{"", "btcusdt", "btcusdt:", ":ethusdt", ":"} {
		_, ok := ParsePair(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestHoldingPeriod(t *testing.T) {
	entry := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trade := ClosedTrade{
		EntryTime: entry,
		ExitTime:  entry.Add(90 * time.Minute),
	}
	assert.Equal(t, 90*time.Minute, trade.HoldingPeriod())
}
