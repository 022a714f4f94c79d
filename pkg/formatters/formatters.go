package formatters

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/quantpair/statarb/internal/alerts"
	"github.com/quantpair/statarb/internal/models"
	"github.com/quantpair/statarb/internal/risk"
	"github.com/quantpair/statarb/internal/signal"
	"github.com/quantpair/statarb/internal/simulator"
)

// Colors for different values
var (
	ColorGreen  = text.FgGreen
	ColorRed    = text.FgRed
	ColorYellow = text.FgYellow
	ColorBlue   = text.FgCyan
	ColorWhite  = text.FgWhite
	ColorGray   = text.FgHiBlack
)

// FormatPercent formats a percentage with color
func FormatPercent(percent float64) string {
	if math.IsNaN(percent) {
		return ColorGray.Sprint("n/a")
	}

	sign := ""
	if percent > 0 {
		sign = "+"
	}
	percentStr := fmt.Sprintf("%s%.2f%%", sign, percent)

	if percent > 0 {
		return ColorGreen.Sprint(percentStr)
	} else if percent < 0 {
		return ColorRed.Sprint(percentStr)
	}
	return percentStr
}

// FormatDollarAmount formats a dollar amount with appropriate color
func FormatDollarAmount(amount float64) string {
	if math.IsNaN(amount) {
		return ColorGray.Sprint("n/a")
	}

	amountStr := fmt.Sprintf("$%.2f", math.Abs(amount))
	if amount < 0 {
		return ColorRed.Sprint("-" + amountStr)
	}
	return ColorGreen.Sprint(amountStr)
}

// FormatFloat formats a plain metric, rendering NaN as n/a
func FormatFloat(v float64, decimals int) string {
	if math.IsNaN(v) {
		return ColorGray.Sprint("n/a")
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// FormatZScore colors the z-score by how far it sits from the mean
func FormatZScore(z, entryThreshold float64) string {
	if math.IsNaN(z) {
		return ColorGray.Sprint("n/a")
	}

	zStr := fmt.Sprintf("%+.2f", z)
	if math.Abs(z) >= entryThreshold {
		return ColorRed.Sprint(zStr)
	} else if math.Abs(z) >= entryThreshold*0.75 {
		return ColorYellow.Sprint(zStr)
	}
	return zStr
}

// FormatPerformanceTable creates a pretty performance summary
func FormatPerformanceTable(pair models.Pair, perf simulator.PerformanceMetrics) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"Pair", text.Bold.Sprint(pair.Name())})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total Trades", perf.TotalTrades})
	t.AppendRow(table.Row{"Win Rate", FormatFloat(perf.WinRate, 1) + "%"})
	t.AppendRow(table.Row{"Avg Win", FormatDollarAmount(perf.AvgWin)})
	t.AppendRow(table.Row{"Avg Loss", FormatDollarAmount(perf.AvgLoss)})
	t.AppendRow(table.Row{"Profit Factor", FormatFloat(perf.ProfitFactor, 2)})
	t.AppendRow(table.Row{"Sharpe Ratio", FormatFloat(perf.SharpeRatio, 2)})
	t.AppendRow(table.Row{"Max Drawdown", FormatFloat(perf.MaxDrawdown, 2) + "%"})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Total P&L", FormatDollarAmount(perf.TotalPnL)})
	t.AppendRow(table.Row{"Total Return", FormatPercent(perf.TotalReturn)})
	t.AppendRow(table.Row{"Current Capital", fmt.Sprintf("$%.2f", perf.CurrentCapital)})
	t.AppendRow(table.Row{"Peak Capital", fmt.Sprintf("$%.2f", perf.PeakCapital)})

	return t.Render()
}

// FormatTradesTable creates a pretty closed-trade table
func FormatTradesTable(trades []models.ClosedTrade) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{
		"Entry", "Exit", "Dir", "Size", "Entry Z", "Exit Z", "P&L", "Reason"})

	totalPnL := 0.0
	for _, trade := range trades {
		dirColor := ColorGreen
		if trade.Direction == models.Short {
			dirColor = ColorRed
		}

		t.AppendRow(table.Row{
			trade.EntryTime.Format("01-02 15:04:05"),
			trade.ExitTime.Format("01-02 15:04:05"),
			dirColor.Sprint(strings.ToUpper(string(trade.Direction))),
			fmt.Sprintf("$%.2f", trade.Size.InexactFloat64()),
			fmt.Sprintf("%+.2f", trade.EntryZScore),
			fmt.Sprintf("%+.2f", trade.ExitZScore),
			FormatDollarAmount(trade.PnL),
			trade.ExitReason,
		})
		totalPnL += trade.PnL
	}

	if len(trades) == 0 {
		t.AppendRow(table.Row{"No trades", "", "", "", "", "", "", ""})
	} else {
		t.AppendSeparator()
		t.AppendRow(table.Row{
			"TOTAL", "", "", "", "", "", FormatDollarAmount(totalPnL), ""})
	}

	return t.Render()
}

// FormatQuality creates a pretty signal quality summary
func FormatQuality(pair models.Pair, result signal.Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	levelColor := ColorWhite
	switch result.Level {
	case signal.LevelExceptional:
		levelColor = ColorGreen
	case signal.LevelStrong:
		levelColor = ColorBlue
	case signal.LevelModerate:
		levelColor = ColorYellow
	case signal.LevelWeak, signal.LevelPoor:
		levelColor = ColorRed
	}

	t.AppendRow(table.Row{"Pair", text.Bold.Sprint(pair.Name())})
	t.AppendRow(table.Row{"Composite Score", fmt.Sprintf("%.1f / 100", result.CompositeScore)})
	t.AppendRow(table.Row{"Quality", levelColor.Sprint(result.Level)})
	t.AppendRow(table.Row{"Recommendation", result.Recommendation})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Z-Score", FormatFloat(result.Components.ZScore, 1)})
	t.AppendRow(table.Row{"Correlation", FormatFloat(result.Components.Correlation, 1)})
	t.AppendRow(table.Row{"Stability", FormatFloat(result.Components.Stability, 1)})
	t.AppendRow(table.Row{"Cointegration", FormatFloat(result.Components.Cointegration, 1)})
	t.AppendRow(table.Row{"Historical", FormatFloat(result.Components.Historical, 1)})

	return t.Render()
}

// FormatRiskTable creates a pretty risk metric summary
func FormatRiskTable(pair models.Pair, m risk.Metrics, health risk.HealthScore) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	healthColor := ColorGreen
	switch health.Level {
	case risk.HealthFair:
		healthColor = ColorYellow
	case risk.HealthPoor, risk.HealthCritical:
		healthColor = ColorRed
	}

	t.AppendRow(table.Row{"Pair", text.Bold.Sprint(pair.Name())})
	t.AppendRow(table.Row{"Health", healthColor.Sprintf("%s (%.0f)", health.Level, health.Score)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"VaR 95%", FormatPercent(scalePct(m.VaR95))})
	t.AppendRow(table.Row{"VaR 99%", FormatPercent(scalePct(m.VaR99))})
	t.AppendRow(table.Row{"CVaR 95%", FormatPercent(scalePct(m.CVaR95))})
	t.AppendRow(table.Row{"Kelly Fraction", FormatFloat(m.KellyPct, 2) + "%"})
	t.AppendRow(table.Row{"Sharpe Ratio", FormatFloat(m.SharpeRatio, 2)})
	t.AppendRow(table.Row{"Sortino Ratio", FormatFloat(m.SortinoRatio, 2)})
	t.AppendRow(table.Row{"Max Drawdown", FormatFloat(m.Drawdown.MaxDrawdownPct, 2) + "%"})
	t.AppendRow(table.Row{"Risk Utilization", FormatFloat(m.RiskUtilization, 1) + "%"})

	return t.Render()
}

// FormatAlertsTable creates a pretty alert history table
func FormatAlertsTable(alertList []alerts.Alert) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Time", "Severity", "Symbol", "Message"})

	for _, a := range alertList {
		sevColor := ColorWhite
		switch a.Severity {
		case alerts.SeverityCritical:
			sevColor = ColorRed
		case alerts.SeverityWarning:
			sevColor = ColorYellow
		}

		t.AppendRow(table.Row{
			a.Timestamp.Format("15:04:05"),
			sevColor.Sprint(strings.ToUpper(string(a.Severity))),
			a.Symbol,
			TruncateString(a.Message, 60),
		})
	}

	if len(alertList) == 0 {
		t.AppendRow(table.Row{"No alerts", "", "", ""})
	}

	return t.Render()
}

// scalePct converts a return fraction to a percentage, passing NaN through
func scalePct(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return v * 100
}

// FormatTimestamp formats a timestamp for display
func FormatTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// TruncateString truncates a string to specified length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
