// Package postgres persists ticks and resampled OHLCV bars in TimescaleDB.
// It degrades to plain PostgreSQL when the timescaledb extension is absent.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantpair/statarb/internal/config"
	"github.com/quantpair/statarb/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Interval identifies a supported OHLCV resolution. The value doubles as
// the table name suffix, so only the listed constants are accepted.
type Interval string

const (
	Interval1s Interval = "1s"
	Interval1m Interval = "1m"
	Interval5m Interval = "5m"
)

var intervalSeconds = map[Interval]int{
	Interval1s: 1,
	Interval1m: 60,
	Interval5m: 300,
}

// TickStore persists raw ticks and serves resampled price history.
type TickStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects the pool and verifies the connection.
func New(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*TickStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid connection config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}
	return &TickStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *TickStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the ticks and OHLCV tables. Hypertable conversion is
// attempted but failure only logs, so the store works on vanilla Postgres.
func (s *TickStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE"); err != nil {
		s.logger.Debug("timescaledb extension unavailable", zap.Error(err))
	}

	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ticks (
			time TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			size DOUBLE PRECISION NOT NULL,
			trade_id BIGINT,
			is_buyer_maker BOOLEAN,
			PRIMARY KEY (time, symbol, trade_id)
		)`); err != nil {
		return fmt.Errorf("postgres: failed to create ticks table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
		SELECT create_hypertable('ticks', 'time',
			chunk_time_interval => INTERVAL '1 hour', if_not_exists => TRUE)`); err != nil {
		s.logger.Debug("ticks hypertable setup skipped", zap.Error(err))
	}
	if _, err := s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_ticks_symbol_time ON ticks (symbol, time DESC)`); err != nil {
		return fmt.Errorf("postgres: failed to create ticks index: %w", err)
	}

	for interval := range intervalSeconds {
		table := "ohlcv_" + string(interval)
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				time TIMESTAMPTZ NOT NULL,
				symbol TEXT NOT NULL,
				open DOUBLE PRECISION NOT NULL,
				high DOUBLE PRECISION NOT NULL,
				low DOUBLE PRECISION NOT NULL,
				close DOUBLE PRECISION NOT NULL,
				volume DOUBLE PRECISION NOT NULL,
				trade_count INTEGER,
				PRIMARY KEY (time, symbol)
			)`, table)); err != nil {
			return fmt.Errorf("postgres: failed to create %s table: %w", table, err)
		}
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
			SELECT create_hypertable('%s', 'time',
				chunk_time_interval => INTERVAL '1 day', if_not_exists => TRUE)`, table)); err != nil {
			s.logger.Debug("hypertable setup skipped", zap.String("table", table), zap.Error(err))
		}
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_symbol_time ON %s (symbol, time DESC)`,
			table, table)); err != nil {
			return fmt.Errorf("postgres: failed to create %s index: %w", table, err)
		}
	}

	s.logger.Info("database schema initialized")
	return nil
}

// InsertTicks writes a batch with duplicate trade IDs silently skipped.
func (s *TickStore) InsertTicks(ctx context.Context, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(`
			INSERT INTO ticks (time, symbol, price, size, trade_id, is_buyer_maker)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (time, symbol, trade_id) DO NOTHING`,
			t.Timestamp, t.Symbol, t.Price.InexactFloat64(), t.Size.InexactFloat64(),
			t.TradeID, t.IsBuyerMaker)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to insert tick batch: %w", err)
	}
	return nil
}

// BulkLoadTicks streams a large backfill through the COPY protocol. Unlike
// InsertTicks it does not tolerate duplicate primary keys.
func (s *TickStore) BulkLoadTicks(ctx context.Context, ticks []models.Tick) (int64, error) {
	rows := make([][]interface{}, len(ticks))
	for i, t := range ticks {
		rows[i] = []interface{}{
			t.Timestamp, t.Symbol, t.Price.InexactFloat64(), t.Size.InexactFloat64(),
			t.TradeID, t.IsBuyerMaker,
		}
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"ticks"},
		[]string{"time", "symbol", "price", "size", "trade_id", "is_buyer_maker"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy failed: %w", err)
	}
	return n, nil
}

// RecentTicks fetches ticks for a symbol within the lookback, oldest first.
func (s *TickStore) RecentTicks(ctx context.Context, symbol string, lookback time.Duration) ([]models.Tick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT time, symbol, price, size, COALESCE(trade_id, 0), COALESCE(is_buyer_maker, false)
		FROM ticks
		WHERE symbol = $1 AND time > NOW() - $2::interval
		ORDER BY time`, symbol, lookback.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query ticks for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []models.Tick
	for rows.Next() {
		var t models.Tick
		var price, size float64
		if err := rows.Scan(&t.Timestamp, &t.Symbol, &price, &size, &t.TradeID, &t.IsBuyerMaker); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan tick: %w", err)
		}
		t.Price = decimal.NewFromFloat(price)
		t.Size = decimal.NewFromFloat(size)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResampleAndStore aggregates new ticks into OHLCV bars for the interval,
// upserting buckets that already exist.
func (s *TickStore) ResampleAndStore(ctx context.Context, symbol string, interval Interval) error {
	secs, ok := intervalSeconds[interval]
	if !ok {
		return fmt.Errorf("postgres: invalid interval %q", interval)
	}
	table := "ohlcv_" + string(interval)

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (time, symbol, open, high, low, close, volume, trade_count)
		SELECT
			to_timestamp(floor(extract(epoch FROM time) / %d) * %d) AS bucket,
			symbol,
			(array_agg(price ORDER BY time))[1],
			max(price),
			min(price),
			(array_agg(price ORDER BY time DESC))[1],
			sum(size),
			count(*)::int
		FROM ticks
		WHERE symbol = $1
		  AND time > COALESCE(
			(SELECT max(time) FROM %s WHERE symbol = $1),
			NOW() - INTERVAL '1 hour')
		GROUP BY bucket, symbol
		ON CONFLICT (time, symbol) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			trade_count = EXCLUDED.trade_count`,
		table, secs, secs, table), symbol)
	if err != nil {
		return fmt.Errorf("postgres: failed to resample %s for %s: %w", interval, symbol, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Debug("resampled bars",
			zap.String("symbol", symbol),
			zap.String("interval", string(interval)),
			zap.Int64("bars", n))
	}
	return nil
}

// Closes returns the close price series for a symbol at the interval over
// the lookback window, oldest first.
func (s *TickStore) Closes(ctx context.Context, symbol string, interval Interval, lookback time.Duration) ([]models.PricePoint, error) {
	if _, ok := intervalSeconds[interval]; !ok {
		return nil, fmt.Errorf("postgres: invalid interval %q", interval)
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT time, close FROM ohlcv_%s
		WHERE symbol = $1 AND time > NOW() - $2::interval
		ORDER BY time`, interval), symbol, lookback.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query closes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan close: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
