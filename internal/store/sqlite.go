// Package store persists the trade journal. Journal writes are
// best-effort: the trading path logs failures and moves on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fyers-orb-bot/internal/models"
	"fyers-orb-bot/pkg/utils"
)

// writeTimeout bounds journal writes so a locked database can never
// stall the trading path.
const writeTimeout = 5 * time.Second

// SQLiteStore is the trade journal backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		realized_pnl REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		trade_date TEXT NOT NULL,
		is_paper INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trade_date);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordClosedTrade appends one journal row, retrying briefly on
// transient write failures. Implements the risk engine's Journal
// interface.
func (s *SQLiteStore) RecordClosedTrade(trade models.ClosedTrade) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	isPaper := 0
	if trade.IsPaper {
		isPaper = 1
	}

	retryCfg := utils.DefaultRetryConfig()
	err := utils.Retry(ctx, retryCfg, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO trades (symbol, direction, quantity, entry_price, exit_price, realized_pnl, exit_reason, entry_time, exit_time, trade_date, is_paper)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, trade.Symbol, string(trade.Direction), trade.Quantity, trade.EntryPrice, trade.ExitPrice,
			trade.RealizedPnL, trade.ExitReason, trade.EntryTime, trade.ExitTime,
			trade.ExitTime.Format("2006-01-02"), isPaper)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

// GetTrades returns the most recent journal rows, newest first.
func (s *SQLiteStore) GetTrades(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, direction, quantity, entry_price, exit_price, realized_pnl, exit_reason, entry_time, exit_time, is_paper
		FROM trades ORDER BY exit_time DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.ClosedTrade
	for rows.Next() {
		var t models.ClosedTrade
		var direction string
		var isPaper int
		if err := rows.Scan(&t.ID, &t.Symbol, &direction, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.RealizedPnL, &t.ExitReason, &t.EntryTime, &t.ExitTime, &isPaper); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Direction = models.Direction(direction)
		t.IsPaper = isPaper == 1
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetDailySummary aggregates the journal for one trading date
// (IST, "2006-01-02").
func (s *SQLiteStore) GetDailySummary(ctx context.Context, date string) (models.DailySummary, error) {
	summary := models.DailySummary{Date: date}

	var pnl sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(realized_pnl) FROM trades WHERE trade_date = ?
	`, date).Scan(&summary.Trades, &pnl)
	if err != nil && err != sql.ErrNoRows {
		return summary, fmt.Errorf("failed to get daily summary: %w", err)
	}
	if pnl.Valid {
		summary.RealizedPnL = pnl.Float64
	}

	return summary, nil
}

// GetRecentSummaries returns per-day aggregates for the most recent
// trading days, newest first.
func (s *SQLiteStore) GetRecentSummaries(ctx context.Context, days int) ([]models.DailySummary, error) {
	if days <= 0 {
		days = 30
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_date, COUNT(*), SUM(realized_pnl)
		FROM trades GROUP BY trade_date ORDER BY trade_date DESC LIMIT ?
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.DailySummary
	for rows.Next() {
		var d models.DailySummary
		var pnl sql.NullFloat64
		if err := rows.Scan(&d.Date, &d.Trades, &pnl); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if pnl.Valid {
			d.RealizedPnL = pnl.Float64
		}
		summaries = append(summaries, d)
	}

	return summaries, rows.Err()
}
