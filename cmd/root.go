package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quantpair/statarb/internal/cache"
	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/ingest"
	"github.com/quantpair/statarb/internal/models"
)

var (
	// Global instances
	cfg          *config.Config
	logger       *zap.Logger
	snapshots    *cache.Cache
	tickBuffer   *ingest.Buffer
	streamClient *ingest.StreamClient

	cfgFile  string
	logLevel zap.AtomicLevel
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "statarb",
	Short: "Statistical arbitrage signal and risk engine",
	Long: `statarb watches crypto pairs on the Binance futures trade stream,
computes cointegration statistics and z-scores, simulates a mean-reversion
position machine, and publishes signal quality, risk metrics and alerts.`,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, optional)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
}

// initLogger builds the logger before any command runs. Default INFO,
// DEBUG if the DEBUG env is truthy.
func initLogger() {
	verbose := false
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" || v == "yes" {
		verbose = true
	}

	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zcfg.Level = logLevel

	var err error
	logger, err = zcfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
}

// initializeApp sets up the shared dependencies
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// DEBUG env wins over the configured level
	if os.Getenv("DEBUG") == "" {
		if lvl, lerr := zapcore.ParseLevel(cfg.LogLevel); lerr == nil {
			logLevel.SetLevel(lvl)
		}
	}

	snapshots = cache.New(cfg.Cache.DefaultTTL)
	tickBuffer = ingest.NewBuffer(cfg.Ingest.BufferSize)
	streamClient = ingest.NewStreamClient(cfg.Ingest, logger)
	streamClient.RegisterHandler(tickBuffer.Push)

	return nil
}

// configuredPairs parses the configured pair list.
func configuredPairs() ([]models.Pair, error) {
	pairs := make([]models.Pair, 0, len(cfg.Pairs))
	for _, raw := range cfg.Pairs {
		pair, ok := models.ParsePair(raw)
		if !ok {
			return nil, fmt.Errorf("invalid pair %q, expected sym1:sym2", raw)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// pairSymbols returns the deduplicated symbols across all pairs.
func pairSymbols(pairs []models.Pair) []string {
	seen := make(map[string]bool)
	symbols := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		for _, s := range []string{p.Symbol1, p.Symbol2} {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	return symbols
}
