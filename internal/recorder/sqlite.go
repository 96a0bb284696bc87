package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"MarketBacktest/internal/model"
)

// SQLiteRecorder persists backtest summaries to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// RunRecord is one row of backtest_runs.
type RunRecord struct {
	RunID          string
	Symbol         string
	Model          string
	InitialDate    string
	FinalDate      string
	InitialBalance float64
	FinalBalance   float64
	FinalProfitPct float64
	TotalOps       int
	ExecutedAt     time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id           TEXT PRIMARY KEY,
			executed_at      INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			model            TEXT NOT NULL,
			initial_date     TEXT NOT NULL,
			final_date       TEXT NOT NULL,
			initial_balance  REAL,
			final_balance    REAL,
			final_profit     REAL,
			final_profit_pct REAL,
			total_buy        INTEGER,
			total_sell       INTEGER,
			total_ops        INTEGER,
			max_drawdown_pct REAL,
			sharpe_ratio     REAL,
			buy_hold_pct     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_executed ON backtest_runs(executed_at)`,

		`CREATE TABLE IF NOT EXISTS backtest_history (
			run_id     TEXT NOT NULL,
			date       TEXT NOT NULL,
			balance    REAL,
			profit     REAL,
			profit_pct REAL,
			action     INTEGER,
			PRIMARY KEY (run_id, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Log stores the summary and its history in one transaction.
func (r *SQLiteRecorder) Log(ctx context.Context, s *model.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO backtest_runs
		(run_id, executed_at, symbol, model, initial_date, final_date,
		 initial_balance, final_balance, final_profit, final_profit_pct,
		 total_buy, total_sell, total_ops,
		 max_drawdown_pct, sharpe_ratio, buy_hold_pct)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.RunID, s.ExecutedAt.Unix(), s.Symbol, s.Model, s.InitialDate, s.FinalDate,
		s.InitialBalance, s.FinalBalance, s.FinalProfit, s.FinalProfitPct,
		s.TotalBuy, s.TotalSell, s.Total,
		s.MaxDrawdownPct, s.SharpeRatio, s.BuyAndHoldPct,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO backtest_history
		(run_id, date, balance, profit, profit_pct, action) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer stmt.Close()

	dates := make([]string, 0, len(s.History))
	for d := range s.History {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		h := s.History[d]
		if _, err := stmt.ExecContext(ctx, s.RunID, d, h.Balance, h.Profit, h.ProfitPct, int(h.Options)); err != nil {
			return fmt.Errorf("insert history %s: %w", d, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentRuns returns the latest n runs, newest first.
func (r *SQLiteRecorder) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		run_id, symbol, model, initial_date, final_date,
		initial_balance, final_balance, final_profit_pct, total_ops, executed_at
		FROM backtest_runs ORDER BY executed_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rr RunRecord
		var executed int64
		if err := rows.Scan(&rr.RunID, &rr.Symbol, &rr.Model, &rr.InitialDate, &rr.FinalDate,
			&rr.InitialBalance, &rr.FinalBalance, &rr.FinalProfitPct, &rr.TotalOps, &executed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rr.ExecutedAt = time.Unix(executed, 0)
		runs = append(runs, rr)
	}
	return runs, rows.Err()
}

// History returns the stored per-date rows of a run.
func (r *SQLiteRecorder) History(ctx context.Context, runID string) (map[string]model.HistoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, balance, profit, profit_pct, action
		FROM backtest_history WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := make(map[string]model.HistoryRow)
	for rows.Next() {
		var date string
		var h model.HistoryRow
		var opt int
		if err := rows.Scan(&date, &h.Balance, &h.Profit, &h.ProfitPct, &opt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Options = model.Option(opt)
		history[date] = h
	}
	return history, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
