package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner drives a set of pair engines on a fixed evaluation interval.
type Runner struct {
	engines  []*PairEngine
	interval time.Duration
	logger   *zap.Logger
}

// NewRunner creates a runner over the given engines.
func NewRunner(engines []*PairEngine, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{
		engines:  engines,
		interval: interval,
		logger:   logger,
	}
}

// Run evaluates every pair on each tick until the context is canceled.
// Each pair runs on its own goroutine so a slow evaluation does not stall
// the others.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, eng := range r.engines {
		wg.Add(1)
		go func(eng *PairEngine) {
			defer wg.Done()
			r.runPair(ctx, eng)
		}(eng)
	}
	wg.Wait()
}

func (r *Runner) runPair(ctx context.Context, eng *PairEngine) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("evaluation loop started",
		zap.String("pair", eng.Pair().Name()),
		zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("evaluation loop stopped", zap.String("pair", eng.Pair().Name()))
			return
		case now := <-ticker.C:
			eng.Evaluate(now)
		}
	}
}
