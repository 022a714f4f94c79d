// Package alerts implements rule-based notifications on analytics values,
// with per-rule cooldowns, alert history and pluggable listeners.
package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type enumerates the supported alert categories.
type Type string

const (
	TypeZScoreThreshold  Type = "zscore_threshold"
	TypeSpreadBreakout   Type = "spread_breakout"
	TypeVolatilitySpike  Type = "volatility_spike"
	TypeCorrelationBreak Type = "correlation_break"
	TypeCustom           Type = "custom"
)

// Severity levels for triggered alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rule defines when an alert fires. The message template may reference
// {symbol}, {value} and {threshold}.
type Rule struct {
	RuleID          string
	Type            Type
	Symbol          string
	Condition       Condition
	Threshold       float64
	Severity        Severity
	Cooldown        time.Duration
	MessageTemplate string
	Enabled         bool
}

// Alert is a triggered rule instance.
type Alert struct {
	RuleID    string    `json:"rule_id"`
	Type      Type      `json:"alert_type"`
	Symbol    string    `json:"symbol"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives every triggered alert. A failing or panicking listener
// never blocks rule evaluation or the other listeners.
type Listener func(Alert) error

// Engine evaluates alert rules against analytics values.
type Engine struct {
	mu        sync.Mutex
	logger    *zap.Logger
	rules     map[string]*Rule
	history   []Alert
	lastFired map[string]time.Time
	listeners []Listener
	now       func() time.Time
}

// NewEngine creates an alert engine using the wall clock.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger:    logger,
		rules:     make(map[string]*Rule),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetClock overrides the engine clock, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// AddRule registers or replaces a rule keyed by its RuleID.
func (e *Engine) AddRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := rule
	e.rules[r.RuleID] = &r
	e.logger.Info("alert rule added",
		zap.String("rule_id", r.RuleID),
		zap.String("symbol", r.Symbol))
}

// RemoveRule deletes a rule. Unknown IDs are ignored.
func (e *Engine) RemoveRule(ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[ruleID]; ok {
		delete(e.rules, ruleID)
		e.logger.Info("alert rule removed", zap.String("rule_id", ruleID))
	}
}

// EnableRule re-enables a disabled rule.
func (e *Engine) EnableRule(ruleID string) { e.setEnabled(ruleID, true) }

// DisableRule stops a rule from firing without removing it.
func (e *Engine) DisableRule(ruleID string) { e.setEnabled(ruleID, false) }

func (e *Engine) setEnabled(ruleID string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.rules[ruleID]; ok {
		r.Enabled = enabled
	}
}

// RegisterListener appends a listener invoked for every triggered alert,
// in registration order.
func (e *Engine) RegisterListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// CheckRule evaluates the named rule against the current value. It returns
// the triggered alert, or nil when the rule is unknown, disabled, cooling
// down, or its condition does not hold. The cooldown check and update are
// atomic so concurrent checks of the same rule fire at most once per window.
func (e *Engine) CheckRule(ruleID string, value float64, ctx *Context) *Alert {
	e.mu.Lock()
	rule, ok := e.rules[ruleID]
	if !ok || !rule.Enabled {
		e.mu.Unlock()
		return nil
	}

	now := e.now()
	if last, fired := e.lastFired[ruleID]; fired && now.Sub(last) < rule.Cooldown {
		e.mu.Unlock()
		return nil
	}

	triggered := e.evalCondition(rule, value, ctx)
	if !triggered {
		e.mu.Unlock()
		return nil
	}

	alert := Alert{
		RuleID:    rule.RuleID,
		Type:      rule.Type,
		Symbol:    rule.Symbol,
		Severity:  rule.Severity,
		Message:   renderMessage(rule.MessageTemplate, rule.Symbol, value, rule.Threshold),
		Value:     value,
		Threshold: rule.Threshold,
		Timestamp: now,
	}
	e.lastFired[ruleID] = now
	e.history = append(e.history, alert)
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	e.logger.Warn("alert triggered",
		zap.String("rule_id", alert.RuleID),
		zap.String("symbol", alert.Symbol),
		zap.String("severity", string(alert.Severity)),
		zap.Float64("value", alert.Value),
		zap.String("message", alert.Message))

	for _, l := range listeners {
		e.notify(l, alert)
	}
	return &alert
}

// evalCondition runs the rule condition, recovering from panics so a bad
// predicate cannot take the engine down. Caller must hold the lock.
func (e *Engine) evalCondition(rule *Rule, value float64, ctx *Context) (triggered bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alert condition panicked",
				zap.String("rule_id", rule.RuleID),
				zap.Any("panic", r))
			triggered = false
		}
	}()
	if rule.Condition == nil {
		return false
	}
	return rule.Condition(value, rule.Threshold, ctx)
}

func (e *Engine) notify(l Listener, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("alert listener panicked",
				zap.String("rule_id", alert.RuleID),
				zap.Any("panic", r))
		}
	}()
	if err := l(alert); err != nil {
		e.logger.Error("alert listener failed",
			zap.String("rule_id", alert.RuleID),
			zap.Error(err))
	}
}

// RecentAlerts returns alerts triggered within the last N minutes.
func (e *Engine) RecentAlerts(minutes int) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-time.Duration(minutes) * time.Minute)
	out := make([]Alert, 0)
	for _, a := range e.history {
		if a.Timestamp.After(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// AlertsBySymbol returns every alert recorded for a symbol.
func (e *Engine) AlertsBySymbol(symbol string) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, 0)
	for _, a := range e.history {
		if a.Symbol == symbol {
			out = append(out, a)
		}
	}
	return out
}

// History returns a copy of the full alert history.
func (e *Engine) History() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alert, len(e.history))
	copy(out, e.history)
	return out
}

// ClearHistory drops all recorded alerts. Cooldown state is kept.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
	e.logger.Info("alert history cleared")
}

// renderMessage substitutes {symbol}, {value} and {threshold} placeholders.
func renderMessage(template, symbol string, value, threshold float64) string {
	if template == "" {
		return fmt.Sprintf("Alert triggered for %s", symbol)
	}
	r := strings.NewReplacer(
		"{symbol}", symbol,
		"{value}", strconv.FormatFloat(value, 'f', 2, 64),
		"{threshold}", strconv.FormatFloat(threshold, 'g', -1, 64),
	)
	return r.Replace(template)
}
