package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PositionDirection represents which side of the spread a position is on.
type PositionDirection string

const (
	Long  PositionDirection = "long"  // long symbol1, short symbol2
	Short PositionDirection = "short" // short symbol1, long symbol2
)

// PositionState represents the simulator state machine.
type PositionState string

const (
	StateFlat PositionState = "flat"
	StateOpen PositionState = "open"
)

// Tick represents a single normalized trade from the exchange stream.
type Tick struct {
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	Timestamp    time.Time       `json:"timestamp"`
	TradeID      int64           `json:"trade_id"`
	IsBuyerMaker bool            `json:"is_buyer_maker"`
}

// Bar represents an OHLCV bar resampled from ticks.
type Bar struct {
	Symbol     string          `json:"symbol"`
	Open       decimal.Decimal `json:"o"`
	High       decimal.Decimal `json:"h"`
	Low        decimal.Decimal `json:"l"`
	Close      decimal.Decimal `json:"c"`
	Volume     decimal.Decimal `json:"v"`
	Timestamp  time.Time       `json:"t"`
	TradeCount int64           `json:"n"`
	VWAP       decimal.Decimal `json:"vw"`
}

// PricePoint is a timestamped price sample used by the analytics layer.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Pair identifies a traded spread between two symbols.
type Pair struct {
	Symbol1 string `json:"symbol1"`
	Symbol2 string `json:"symbol2"`
}

// ParsePair parses "btcusdt:ethusdt" into a Pair.
func ParsePair(s string) (Pair, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, false
	}
	return Pair{
		Symbol1: strings.ToLower(strings.TrimSpace(parts[0])),
		Symbol2: strings.ToLower(strings.TrimSpace(parts[1])),
	}, true
}

// Name returns the canonical pair identifier used in cache keys and logs.
func (p Pair) Name() string {
	return p.Symbol1 + ":" + p.Symbol2
}

// Position represents an open spread position.
type Position struct {
	Pair         Pair              `json:"pair"`
	Direction    PositionDirection `json:"direction"`
	Size         decimal.Decimal   `json:"size"`
	EntrySpread  float64           `json:"entry_spread"`
	EntryZScore  float64           `json:"entry_zscore"`
	EntryPrice1  float64           `json:"entry_price_1"`
	EntryPrice2  float64           `json:"entry_price_2"`
	HedgeRatio   float64           `json:"hedge_ratio"`
	EntryTime    time.Time         `json:"entry_time"`
	MaxFavorable float64           `json:"max_favorable_excursion"`
	MaxAdverse   float64           `json:"max_adverse_excursion"`
}

// ClosedTrade is an immutable record of a completed round trip.
type ClosedTrade struct {
	Pair         Pair              `json:"pair"`
	Direction    PositionDirection `json:"direction"`
	Size         decimal.Decimal   `json:"size"`
	EntrySpread  float64           `json:"entry_spread"`
	ExitSpread   float64           `json:"exit_spread"`
	EntryZScore  float64           `json:"entry_zscore"`
	ExitZScore   float64           `json:"exit_zscore"`
	EntryPrice1  float64           `json:"entry_price_1"`
	EntryPrice2  float64           `json:"entry_price_2"`
	HedgeRatio   float64           `json:"hedge_ratio"`
	EntryTime    time.Time         `json:"entry_time"`
	ExitTime     time.Time         `json:"exit_time"`
	PnL          float64           `json:"pnl"`
	PnLPercent   float64           `json:"pnl_percent"`
	ExitReason   string            `json:"exit_reason"`
	MaxFavorable float64           `json:"max_favorable_excursion"`
	MaxAdverse   float64           `json:"max_adverse_excursion"`
}

// HoldingPeriod returns the round-trip duration.
func (t ClosedTrade) HoldingPeriod() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
