package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/quantpair/statarb/internal/models"
	"go.uber.org/zap"
)

const (
	batchFlushSize     = 500
	batchFlushInterval = 2 * time.Second
)

// BatchWriter accumulates ticks and flushes them to the store in batches,
// keeping the hot tick path free of database round trips.
type BatchWriter struct {
	store  *TickStore
	logger *zap.Logger

	mu      sync.Mutex
	pending []models.Tick

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBatchWriter starts a writer that flushes on size or interval.
func NewBatchWriter(ctx context.Context, store *TickStore, logger *zap.Logger) *BatchWriter {
	wctx, cancel := context.WithCancel(ctx)
	w := &BatchWriter{
		store:   store,
		logger:  logger,
		pending: make([]models.Tick, 0, batchFlushSize),
		ctx:     wctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Enqueue adds a tick to the pending batch.
func (w *BatchWriter) Enqueue(tick models.Tick) {
	w.mu.Lock()
	w.pending = append(w.pending, tick)
	full := len(w.pending) >= batchFlushSize
	w.mu.Unlock()

	if full {
		w.flush()
	}
}

// loop flushes on a timer until the writer is closed.
func (w *BatchWriter) loop() {
	defer close(w.done)
	ticker := time.NewTicker(batchFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// flush writes the pending batch. Failures are logged and the batch is
// dropped rather than retried, favoring freshness over completeness.
func (w *BatchWriter) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make([]models.Tick, 0, batchFlushSize)
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.store.InsertTicks(ctx, batch); err != nil {
		w.logger.Warn("tick batch insert failed",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
	}
}

// Close stops the timer and flushes what remains.
func (w *BatchWriter) Close() {
	w.cancel()
	<-w.done
	w.flush()
}
