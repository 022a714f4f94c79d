package ingest

import (
	"sync"

	"github.com/quantpair/statarb/internal/models"
)

// Buffer holds a bounded history of ticks per symbol. Writers push ticks as
// they arrive from the stream and the analytics engine reads price series
// snapshots from it.
type Buffer struct {
	mu      sync.RWMutex
	maxSize int
	ticks   map[string][]models.Tick
}

// NewBuffer creates a buffer that keeps at most maxSize ticks per symbol.
func NewBuffer(maxSize int) *Buffer {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Buffer{
		maxSize: maxSize,
		ticks:   make(map[string][]models.Tick),
	}
}

// Push appends a tick, evicting the oldest entry once the symbol's buffer
// is full.
func (b *Buffer) Push(tick models.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.ticks[tick.Symbol]
	buf = append(buf, tick)
	if len(buf) > b.maxSize {
		buf = buf[len(buf)-b.maxSize:]
	}
	b.ticks[tick.Symbol] = buf
}

// Len reports the number of buffered ticks for a symbol.
func (b *Buffer) Len(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ticks[symbol])
}

// LastTick returns the most recent tick for a symbol.
func (b *Buffer) LastTick(symbol string) (models.Tick, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.ticks[symbol]
	if len(buf) == 0 {
		return models.Tick{}, false
	}
	return buf[len(buf)-1], true
}

// Ticks returns a copy of the buffered ticks for a symbol, oldest first.
func (b *Buffer) Ticks(symbol string) []models.Tick {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.ticks[symbol]
	out := make([]models.Tick, len(buf))
	copy(out, buf)
	return out
}

// Prices returns the buffered price series for a symbol as float64 values,
// oldest first.
func (b *Buffer) Prices(symbol string) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.ticks[symbol]
	out := make([]float64, len(buf))
	for i, t := range buf {
		out[i] = t.Price.InexactFloat64()
	}
	return out
}

// PricePoints returns the buffered series with timestamps, oldest first.
func (b *Buffer) PricePoints(symbol string) []models.PricePoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	buf := b.ticks[symbol]
	out := make([]models.PricePoint, len(buf))
	for i, t := range buf {
		out[i] = models.PricePoint{
			Timestamp: t.Timestamp,
			Price:     t.Price.InexactFloat64(),
		}
	}
	return out
}

// Symbols lists symbols with at least one buffered tick.
func (b *Buffer) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.ticks))
	for s, buf := range b.ticks {
		if len(buf) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Clear drops all buffered ticks.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks = make(map[string][]models.Tick)
}
