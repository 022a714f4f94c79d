package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/models"
)

func newTestClient(t *testing.T) (*StreamClient, *[]models.Tick) {
	cfg := config.IngestConfig{
		WebsocketURL: "wss://example.invalid/ws",
		MaxTickAge:   5 * time.Minute,
	}
	client := NewStreamClient(cfg, zaptest.NewLogger(t))

	var received []models.Tick
	client.RegisterHandler(func(tick models.Tick) {
		received = append(received, tick)
	})
	return client, &received
}

func aggTradeJSON(symbol string, price, qty string, tsMs int64) []byte {
	return []byte(fmt.Sprintf(
		`{"e":"aggTrade","s":"%s","a":101,"p":"%s","q":"%s","T":%d,"m":true}`,
		symbol, price, qty, tsMs))
}

func TestProcessMessageDispatchesTick(t *testing.T) {
	client, received := newTestClient(t)
	now := time.Now()

	client.processMessage(aggTradeJSON("BTCUSDT", "50123.45", "0.25", now.UnixMilli()))

	require.Len(t, *received, 1)
	tick := (*received)[0]
	assert.Equal(t, "btcusdt", tick.Symbol)
	assert.True(t, tick.Price.Equal(decimal.RequireFromString("50123.45")))
	assert.True(t, tick.Size.Equal(decimal.RequireFromString("0.25")))
	assert.Equal(t, int64(101), tick.TradeID)
	assert.True(t, tick.IsBuyerMaker)
	assert.Equal(t, time.UTC, tick.Timestamp.Location())
	assert.WithinDuration(t, now, tick.Timestamp, time.Second)
}

func TestProcessMessageUnwrapsCombinedStream(t *testing.T) {
	client, received := newTestClient(t)

	inner := aggTradeJSON("ETHUSDT", "3000", "1", time.Now().UnixMilli())
	wrapped := []byte(fmt.Sprintf(`{"stream":"ethusdt@aggTrade","data":%s}`, inner))
	client.processMessage(wrapped)

	require.Len(t, *received, 1)
	assert.Equal(t, "ethusdt", (*received)[0].Symbol)
}

func TestProcessMessageIgnoresOtherEvents(t *testing.T) {
	client, received := newTestClient(t)

	client.processMessage([]byte(`{"e":"markPriceUpdate","s":"BTCUSDT","p":"50000"}`))
	client.processMessage([]byte(`{"result":null,"id":1}`))
	client.processMessage([]byte(`not json`))

	assert.Empty(t, *received)
}

func TestProcessMessageDropsInvalidTicks(t *testing.T) {
	client, received := newTestClient(t)
	now := time.Now().UnixMilli()

	client.processMessage(aggTradeJSON("BTCUSDT", "0", "1", now))
	client.processMessage(aggTradeJSON("BTCUSDT", "-5", "1", now))
	client.processMessage(aggTradeJSON("BTCUSDT", "50000", "0", now))
	assert.Empty(t, *received)

	stale := time.Now().Add(-10 * time.Minute).UnixMilli()
	client.processMessage(aggTradeJSON("BTCUSDT", "50000", "1", stale))
	assert.Empty(t, *received)

	client.processMessage(aggTradeJSON("BTCUSDT", "50000", "1", now))
	assert.Len(t, *received, 1)
}

func TestValidate(t *testing.T) {
	client, _ := newTestClient(t)
	now := time.Now()

	valid := models.Tick{
		Symbol:    "btcusdt",
		Price:     decimal.NewFromInt(50000),
		Size:      decimal.NewFromInt(1),
		Timestamp: now,
	}
	assert.NoError(t, client.validate(valid))

	missing := valid
	missing.Symbol = ""
	assert.ErrorContains(t, client.validate(missing), "missing symbol")

	free := valid
	free.Price = decimal.Zero
	assert.ErrorContains(t, client.validate(free), "non-positive price")

	empty := valid
	empty.Size = decimal.NewFromInt(-1)
	assert.ErrorContains(t, client.validate(empty), "non-positive size")

	old := valid
	old.Timestamp = now.Add(-time.Hour)
	assert.ErrorContains(t, client.validate(old), "old")
}

func TestSubscribeStagesBeforeConnect(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.Subscribe([]string{"BTCUSDT", "ethusdt"}))
	assert.False(t, client.IsConnected())

	assert.True(t, client.subscriptions["btcusdt"])
	assert.True(t, client.subscriptions["ethusdt"])
	assert.ElementsMatch(t,
		[]string{"btcusdt@aggTrade", "ethusdt@aggTrade"},
		client.streamNames())

	require.NoError(t, client.Unsubscribe([]string{"BTCUSDT"}))
	assert.ElementsMatch(t, []string{"ethusdt@aggTrade"}, client.streamNames())
}

func TestCloseWithoutConnect(t *testing.T) {
	client, _ := newTestClient(t)
	assert.NoError(t, client.Close())
}
