package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantpair/statarb/internal/models"
	"github.com/quantpair/statarb/pkg/formatters"
)

func init() {
	rootCmd.AddCommand(streamCmd)
}

var streamCmd = &cobra.Command{
	Use:   "stream [symbols...]",
	Short: "Stream live trades",
	Long: `Streams the aggregate trade feed for the given symbols and prints
each tick. With no symbols, streams every symbol in the configured pairs.`,
	RunE: runStream,
}

func runStream(cmd *cobra.Command, args []string) error {
	symbols := make([]string, 0, len(args))
	for _, s := range args {
		symbols = append(symbols, strings.ToLower(s))
	}
	if len(symbols) == 0 {
		pairs, err := configuredPairs()
		if err != nil {
			return err
		}
		symbols = pairSymbols(pairs)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to stream")
	}

	fmt.Printf("📡 Connecting to %s...\n", cfg.Ingest.WebsocketURL)

	streamClient.RegisterHandler(func(tick models.Tick) {
		side := formatters.ColorGreen.Sprint("BUY ")
		if tick.IsBuyerMaker {
			side = formatters.ColorRed.Sprint("SELL")
		}
		fmt.Printf("[%s] %s %s %s @ %s\n",
			formatters.FormatTimestamp(tick.Timestamp),
			formatters.ColorBlue.Sprint(tick.Symbol),
			side,
			tick.Size.String(),
			tick.Price.String())
	})

	if err := streamClient.Subscribe(symbols); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := streamClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer streamClient.Close()

	fmt.Printf("✅ Streaming %d symbols: %s\n", len(symbols), strings.Join(symbols, ", "))
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n👋 Stream stopped")
	return nil
}
