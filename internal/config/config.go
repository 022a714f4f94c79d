package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Pairs        []string      `mapstructure:"pairs"`
	EvalInterval time.Duration `mapstructure:"eval_interval"`
	LogLevel     string        `mapstructure:"log_level"`

	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Quality   QualityConfig   `mapstructure:"quality"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// StrategyConfig drives the position simulator.
type StrategyConfig struct {
	InitialCapital  float64 `mapstructure:"initial_capital"`
	EntryThreshold  float64 `mapstructure:"entry_threshold"`
	ExitThreshold   float64 `mapstructure:"exit_threshold"`
	PositionSizePct float64 `mapstructure:"position_size_pct"`
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MaxPositionPct  float64 `mapstructure:"max_position_pct"`
}

// AnalyticsConfig parameterizes the statistics engine.
type AnalyticsConfig struct {
	ZScoreWindow      int     `mapstructure:"zscore_window"`
	ZScoreMinPeriods  int     `mapstructure:"zscore_min_periods"`
	CorrelationWindow int     `mapstructure:"correlation_window"`
	ADFMaxLag         int     `mapstructure:"adf_max_lag"`
	ADFSignificance   float64 `mapstructure:"adf_significance"`
	VolatilityWindow  int     `mapstructure:"volatility_window"`
	VolRegimeFactor   float64 `mapstructure:"vol_regime_factor"`
}

// RiskConfig parameterizes the risk analyzer.
type RiskConfig struct {
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
}

// QualityConfig holds the signal quality component weights and the
// correlation band edge used by the correlation component.
type QualityConfig struct {
	ZScoreWeight         float64 `mapstructure:"zscore_weight"`
	CorrelationWeight    float64 `mapstructure:"correlation_weight"`
	StabilityWeight      float64 `mapstructure:"stability_weight"`
	CointegrationWeight  float64 `mapstructure:"cointegration_weight"`
	HistoricalWeight     float64 `mapstructure:"historical_weight"`
	CorrelationThreshold float64 `mapstructure:"correlation_threshold"`
}

// AlertsConfig holds rule thresholds and cooldowns.
type AlertsConfig struct {
	ZScoreThreshold      float64       `mapstructure:"zscore_threshold"`
	CorrelationThreshold float64       `mapstructure:"correlation_threshold"`
	ZScoreCooldown       time.Duration `mapstructure:"zscore_cooldown"`
	EntryCooldown        time.Duration `mapstructure:"entry_cooldown"`
	CorrelationCooldown  time.Duration `mapstructure:"correlation_cooldown"`
}

// IngestConfig configures the exchange stream.
type IngestConfig struct {
	WebsocketURL      string        `mapstructure:"websocket_url"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	BufferSize        int           `mapstructure:"buffer_size"`
	MaxTickAge        time.Duration `mapstructure:"max_tick_age"`
}

// CacheConfig configures the in-memory snapshot cache.
type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// RedisConfig configures the optional Redis sink.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig configures the optional tick store.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// NotifyConfig configures external alert delivery.
type NotifyConfig struct {
	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
}

// Load reads configuration from an optional YAML file, layered under
// STATARB_-prefixed environment variables. A .env file in the working
// directory is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STATARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pairs", []string{"btcusdt:ethusdt"})
	v.SetDefault("eval_interval", "5s")
	v.SetDefault("log_level", "info")

	v.SetDefault("strategy.initial_capital", 10000.0)
	v.SetDefault("strategy.entry_threshold", 2.0)
	v.SetDefault("strategy.exit_threshold", 0.2)
	v.SetDefault("strategy.position_size_pct", 0.10)
	v.SetDefault("strategy.stop_loss_pct", 0.05)
	v.SetDefault("strategy.take_profit_pct", 0.10)
	v.SetDefault("strategy.max_position_pct", 0.20)

	v.SetDefault("analytics.zscore_window", 60)
	v.SetDefault("analytics.zscore_min_periods", 20)
	v.SetDefault("analytics.correlation_window", 100)
	v.SetDefault("analytics.adf_max_lag", 0)
	v.SetDefault("analytics.adf_significance", 0.05)
	v.SetDefault("analytics.volatility_window", 60)
	v.SetDefault("analytics.vol_regime_factor", 1.5)

	v.SetDefault("risk.risk_free_rate", 0.0)
	v.SetDefault("risk.periods_per_year", 252)

	v.SetDefault("quality.zscore_weight", 0.25)
	v.SetDefault("quality.correlation_weight", 0.25)
	v.SetDefault("quality.stability_weight", 0.20)
	v.SetDefault("quality.cointegration_weight", 0.15)
	v.SetDefault("quality.historical_weight", 0.15)
	v.SetDefault("quality.correlation_threshold", 0.70)

	v.SetDefault("alerts.zscore_threshold", 2.0)
	v.SetDefault("alerts.correlation_threshold", 0.7)
	v.SetDefault("alerts.zscore_cooldown", "60s")
	v.SetDefault("alerts.entry_cooldown", "120s")
	v.SetDefault("alerts.correlation_cooldown", "300s")

	v.SetDefault("ingest.websocket_url", "wss://fstream.binance.com/ws")
	v.SetDefault("ingest.reconnect_delay", "1s")
	v.SetDefault("ingest.max_reconnect_delay", "60s")
	v.SetDefault("ingest.max_reconnects", 0)
	v.SetDefault("ingest.buffer_size", 1000)
	v.SetDefault("ingest.max_tick_age", "5m")

	v.SetDefault("cache.default_ttl", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "statarb")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "statarb")
	v.SetDefault("postgres.ssl_mode", "disable")

	v.SetDefault("notify.discord_webhook_url", "")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one pair must be configured")
	}
	for _, p := range c.Pairs {
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("malformed pair %q, expected \"sym1:sym2\"", p)
		}
	}
	if c.EvalInterval <= 0 {
		return fmt.Errorf("eval_interval must be positive")
	}
	if c.Strategy.InitialCapital <= 0 {
		return fmt.Errorf("strategy.initial_capital must be positive")
	}
	if c.Strategy.EntryThreshold <= 0 {
		return fmt.Errorf("strategy.entry_threshold must be positive")
	}
	if c.Strategy.ExitThreshold < 0 || c.Strategy.ExitThreshold >= c.Strategy.EntryThreshold {
		return fmt.Errorf("strategy.exit_threshold must be in [0, entry_threshold)")
	}
	if c.Strategy.PositionSizePct <= 0 || c.Strategy.PositionSizePct > 1 {
		return fmt.Errorf("strategy.position_size_pct must be in (0, 1]")
	}
	if c.Strategy.StopLossPct <= 0 || c.Strategy.TakeProfitPct <= 0 {
		return fmt.Errorf("strategy stop_loss_pct and take_profit_pct must be positive")
	}
	if c.Analytics.ZScoreWindow < 2 || c.Analytics.ZScoreMinPeriods < 2 {
		return fmt.Errorf("analytics z-score window and min_periods must be at least 2")
	}
	if c.Analytics.ZScoreMinPeriods > c.Analytics.ZScoreWindow {
		return fmt.Errorf("analytics.zscore_min_periods cannot exceed zscore_window")
	}
	if c.Analytics.CorrelationWindow < 2 {
		return fmt.Errorf("analytics.correlation_window must be at least 2")
	}
	if c.Analytics.ADFSignificance <= 0 || c.Analytics.ADFSignificance >= 1 {
		return fmt.Errorf("analytics.adf_significance must be in (0, 1)")
	}
	if c.Analytics.VolRegimeFactor <= 1 {
		return fmt.Errorf("analytics.vol_regime_factor must exceed 1")
	}
	if c.Ingest.BufferSize < 2 {
		return fmt.Errorf("ingest.buffer_size must be at least 2")
	}
	return nil
}

// QualityWeightsSum is used by callers that display the weight breakdown.
func (c *Config) QualityWeightsSum() float64 {
	q := c.Quality
	return q.ZScoreWeight + q.CorrelationWeight + q.StabilityWeight +
		q.CointegrationWeight + q.HistoricalWeight
}

// DSN assembles the connection string for the tick store.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
