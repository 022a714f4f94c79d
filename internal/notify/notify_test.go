package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/quantpair/statarb/internal/alerts"
)

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		RuleID:    "mean_reversion_entry_btcusdt:ethusdt",
		Type:      alerts.TypeZScoreThreshold,
		Symbol:    "btcusdt:ethusdt",
		Severity:  alerts.SeverityCritical,
		Message:   "Z-score for btcusdt:ethusdt = 2.50 (threshold: 2)",
		Value:     2.5,
		Threshold: 2.0,
		Timestamp: time.Now(),
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zaptest.NewLogger(t))
	assert.NoError(t, n.Notify(context.Background(), sampleAlert()))

	warn := sampleAlert()
	warn.Severity = alerts.SeverityWarning
	assert.NoError(t, n.Notify(context.Background(), warn))

	info := sampleAlert()
	info.Severity = alerts.SeverityInfo
	assert.NoError(t, n.Notify(context.Background(), info))
}

func TestDiscordNotifierPostsPayload(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	require.NoError(t, n.Notify(context.Background(), sampleAlert()))
	assert.Equal(t, "[critical] Z-score for btcusdt:ethusdt = 2.50 (threshold: 2)", got.Content)
}

func TestDiscordNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	err := n.Notify(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestListenerAdapter(t *testing.T) {
	var received alerts.Alert
	fake := notifierFunc(func(_ context.Context, a alerts.Alert) error {
		received = a
		return nil
	})

	listener := Listener(fake, time.Second)
	require.NoError(t, listener(sampleAlert()))
	assert.Equal(t, "btcusdt:ethusdt", received.Symbol)
}

type notifierFunc func(context.Context, alerts.Alert) error

func (f notifierFunc) Notify(ctx context.Context, a alerts.Alert) error {
	return f(ctx, a)
}
