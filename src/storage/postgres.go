package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// -----------------------------------------------------------------------------

type PostgresBarStore struct {
	Config   *models.MConfig
	DB       *sql.DB
	Schema   string
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresBarStore(cfg *models.MConfig, cal *utils.TradingCalendar, log *logger.Logger) *PostgresBarStore {
	schema := cfg.Storage.Schema
	if schema == "" {
		schema = "screener"
	}
	return &PostgresBarStore{
		Config:   cfg,
		Schema:   schema,
		Calendar: cal,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) Name() string {
	return "postgres"
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) table() string {
	return fmt.Sprintf(`"%s"."bars"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol TEXT NOT NULL,
			bar_interval TEXT NOT NULL,
			ts BIGINT NOT NULL,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume BIGINT,
			PRIMARY KEY (symbol, bar_interval, ts)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create bars: %w", err)
	}

	d.Logger.Info("PostgresBarStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

// CleanupOldData drops bars older than the given number of days.
func (d *PostgresBarStore) CleanupOldData(retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	res, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE ts < $1", d.table()), cutoff)
	if err != nil {
		d.Logger.Error("Cleanup bars error: %v", err)
		return helpers.NewDatabaseError("cleanup bars", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed: removed %d bars older than %d days", n, retentionDays)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) SaveBars(series models.MBarSeries) error {
	if len(series.Bars) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (symbol, bar_interval, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, bar_interval, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`, d.table()))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range series.Bars {
		_, err := stmt.Exec(series.Symbol, string(series.Interval), b.Timestamp.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return errors.Wrapf(err, "insert %s bar", series.Symbol)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// FetchBars reads stored bars in [start, end) with one array-bound query.
func (d *PostgresBarStore) FetchBars(
	ctx context.Context,
	symbols []string,
	interval models.Interval,
	start, end time.Time,
	_ bool,
) (map[string]models.MBarSeries, error) {
	query := fmt.Sprintf(`
		SELECT symbol, ts, open, high, low, close, volume
		FROM %s
		WHERE symbol = ANY($1) AND bar_interval = $2 AND ts >= $3 AND ts < $4
		ORDER BY symbol, ts
	`, d.table())

	rows, err := d.DB.QueryContext(ctx, query, pq.Array(symbols), string(interval), start.Unix(), end.Unix())
	if err != nil {
		return nil, helpers.NewDatabaseError("query bars", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, interval, d.Calendar.Location())
	if err != nil {
		return nil, helpers.NewDatabaseError("scan bars", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresBarStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
