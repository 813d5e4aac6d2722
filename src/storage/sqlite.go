package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"market-screener/src/helpers"
	"market-screener/src/logger"
	"market-screener/src/models"
	"market-screener/src/utils"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLite batch constants
const (
	sqliteMaxVars   = 32000
	sqliteFixedVars = 3                               // bar_interval, from, to
	sqliteBatchSize = sqliteMaxVars - sqliteFixedVars // symbols per IN list
)

// -----------------------------------------------------------------------------

type SQLiteBarStore struct {
	Config   *models.MConfig
	DB       *sql.DB
	Calendar *utils.TradingCalendar
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteBarStore(cfg *models.MConfig, cal *utils.TradingCalendar, log *logger.Logger) *SQLiteBarStore {
	return &SQLiteBarStore{
		Config:   cfg,
		Calendar: cal,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteBarStore) Name() string {
	return "sqlite"
}

// -----------------------------------------------------------------------------

func (d *SQLiteBarStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite", err)
	}

	if err := db.Ping(); err != nil {
		return helpers.NewDatabaseError("ping sqlite", err)
	}

	// Each connection to :memory: is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteBarStore) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			bar_interval TEXT NOT NULL,
			ts INTEGER NOT NULL,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume INTEGER,
			PRIMARY KEY (symbol, bar_interval, ts)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create bars", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteBarStore) SaveBars(series models.MBarSeries) error {
	if len(series.Bars) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO bars (symbol, bar_interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, bar_interval, ts) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
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

// FetchBars reads stored bars for the symbols in [start, end).
func (d *SQLiteBarStore) FetchBars(
	ctx context.Context,
	symbols []string,
	interval models.Interval,
	start, end time.Time,
	_ bool,
) (map[string]models.MBarSeries, error) {
	out := make(map[string]models.MBarSeries, len(symbols))

	for _, chunk := range utils.ChunkSymbols(symbols, sqliteBatchSize) {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := `
			SELECT symbol, ts, open, high, low, close, volume
			FROM bars
			WHERE bar_interval = ? AND ts >= ? AND ts < ? AND symbol IN (` + placeholders + `)
			ORDER BY symbol, ts
		`

		args := make([]any, 0, len(chunk)+sqliteFixedVars)
		args = append(args, string(interval), start.Unix(), end.Unix())
		for _, s := range chunk {
			args = append(args, s)
		}

		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, helpers.NewDatabaseError("query bars", err)
		}
		found, err := scanBars(rows, interval, d.Calendar.Location())
		rows.Close()
		if err != nil {
			return nil, helpers.NewDatabaseError("scan bars", err)
		}
		for sym, series := range found {
			out[sym] = series
		}
	}

	return out, nil
}

// -----------------------------------------------------------------------------

// CleanupOldData drops bars older than the given number of days.
func (d *SQLiteBarStore) CleanupOldData(retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	res, err := d.DB.Exec("DELETE FROM bars WHERE ts < ?", cutoff)
	if err != nil {
		d.Logger.Error("Cleanup bars error: %v", err)
		return helpers.NewDatabaseError("cleanup bars", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed: removed %d bars older than %d days", n, retentionDays)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteBarStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
