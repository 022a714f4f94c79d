package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantpair/statarb/internal/alerts"
	rediscache "github.com/quantpair/statarb/internal/cache/redis"
	"github.com/quantpair/statarb/internal/engine"
	"github.com/quantpair/statarb/internal/models"
	"github.com/quantpair/statarb/internal/notify"
	"github.com/quantpair/statarb/internal/store/postgres"
	"github.com/quantpair/statarb/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live signal engine",
	Long: `Connects to the exchange trade stream, evaluates every configured
pair on the evaluation interval, and publishes statistics, simulated
positions, risk metrics, signal quality and alerts.`,
	RunE: runEngine,
}

func runEngine(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pairs, err := configuredPairs()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs configured")
	}

	alertEngine := alerts.NewEngine(logger)
	alertEngine.RegisterListener(notify.Listener(notify.NewLogNotifier(logger), 5*time.Second))
	if cfg.Notify.DiscordWebhookURL != "" {
		alertEngine.RegisterListener(notify.Listener(
			notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL), 10*time.Second))
	}

	engines := make([]*engine.PairEngine, 0, len(pairs))
	for _, pair := range pairs {
		eng := engine.NewPairEngine(pair, cfg, tickBuffer, alertEngine, logger)
		eng.AddSink(snapshots)
		engines = append(engines, eng)
	}

	// Optional Redis snapshot sink and tick fan-out
	if cfg.Redis.Enabled {
		redisCache, rerr := rediscache.New(ctx, cfg.Redis)
		if rerr != nil {
			return fmt.Errorf("redis: %w", rerr)
		}
		defer redisCache.Close()

		sink := engine.NewRedisSink(redisCache, logger)
		for _, eng := range engines {
			eng.AddSink(sink)
		}
		streamClient.RegisterHandler(func(tick models.Tick) {
			tctx, tcancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer tcancel()
			if perr := redisCache.PushTick(tctx, tick); perr != nil {
				logger.Debug("redis tick push failed", zap.Error(perr))
			}
		})
		logger.Info("redis sink enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Optional Postgres tick persistence
	if cfg.Postgres.Enabled {
		store, serr := postgres.New(ctx, cfg.Postgres, logger)
		if serr != nil {
			return fmt.Errorf("postgres: %w", serr)
		}
		defer store.Close()
		if serr = store.EnsureSchema(ctx); serr != nil {
			return fmt.Errorf("postgres schema: %w", serr)
		}

		writer := postgres.NewBatchWriter(ctx, store, logger)
		defer writer.Close()
		streamClient.RegisterHandler(writer.Enqueue)
		logger.Info("postgres tick store enabled", zap.String("host", cfg.Postgres.Host))
	}

	symbols := pairSymbols(pairs)
	fmt.Printf("📡 Connecting to %s...\n", cfg.Ingest.WebsocketURL)
	if err := streamClient.Subscribe(symbols); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := streamClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer streamClient.Close()

	fmt.Printf("✅ Watching %d pairs (%s), evaluating every %s\n",
		len(pairs),
		strings.Join(cfg.Pairs, ", "),
		cfg.EvalInterval)

	runner := engine.NewRunner(engines, cfg.EvalInterval, logger)
	go runner.Run(ctx)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n👋 Shutting down...")
	cancel()

	for _, eng := range engines {
		perf := eng.Simulator().PerformanceMetrics()
		if perf.TotalTrades > 0 {
			fmt.Println(formatters.FormatPerformanceTable(eng.Pair(), perf))
		}
	}
	return nil
}
