package alerts

import (
	"fmt"
	"time"
)

// ZScoreThresholdRule builds a rule that fires whenever the z-score
// magnitude exceeds the threshold.
func ZScoreThresholdRule(symbol string, threshold float64, severity Severity) Rule {
	return Rule{
		RuleID:          fmt.Sprintf("zscore_%s_%g", symbol, threshold),
		Type:            TypeZScoreThreshold,
		Symbol:          symbol,
		Condition:       ZScoreAbove,
		Threshold:       threshold,
		Severity:        severity,
		Cooldown:        60 * time.Second,
		MessageTemplate: "Z-score for {symbol} = {value} (threshold: {threshold})",
		Enabled:         true,
	}
}

// MeanReversionEntryRule builds a critical entry-signal rule with a longer
// cooldown so repeated entries do not spam.
func MeanReversionEntryRule(symbol string, entryThreshold float64) Rule {
	return Rule{
		RuleID:          fmt.Sprintf("mr_entry_%s", symbol),
		Type:            TypeZScoreThreshold,
		Symbol:          symbol,
		Condition:       ZScoreAbove,
		Threshold:       entryThreshold,
		Severity:        SeverityCritical,
		Cooldown:        120 * time.Second,
		MessageTemplate: "ENTRY SIGNAL: {symbol} z-score = {value} (target: {threshold})",
		Enabled:         true,
	}
}

// CorrelationBreakRule builds a rule that fires when pair correlation
// degrades below the threshold.
func CorrelationBreakRule(symbol string, threshold float64) Rule {
	return Rule{
		RuleID:          fmt.Sprintf("corr_break_%s", symbol),
		Type:            TypeCorrelationBreak,
		Symbol:          symbol,
		Condition:       CorrelationBreak,
		Threshold:       threshold,
		Severity:        SeverityWarning,
		Cooldown:        300 * time.Second,
		MessageTemplate: "Correlation dropped: {symbol} = {value} (threshold: {threshold})",
		Enabled:         true,
	}
}
