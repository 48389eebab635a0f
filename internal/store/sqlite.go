package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"abyss/internal/backtest"
	"abyss/internal/logger"
	"abyss/internal/screener"
)

// Store 把扫描结果落到 SQLite，供人工复盘与 HTTP 查询。
// 只在扫描全部结束后由父流程单线程写入，worker 之间不存在并发写。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open 打开（或创建）数据库并执行迁移。
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL：HTTP 查询与落库互不阻塞。
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Infof("store opened: %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id           TEXT PRIMARY KEY,
			period       TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			universe     INTEGER NOT NULL,
			skipped      INTEGER NOT NULL,
			launched     INTEGER NOT NULL,
			stage_counts TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			stage      TEXT NOT NULL,
			path       TEXT NOT NULL,
			last_close REAL,
			last_date  INTEGER,
			evidence   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id)`,

		`CREATE TABLE IF NOT EXISTS backtests (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT NOT NULL,
			symbol              TEXT NOT NULL,
			signals             INTEGER NOT NULL,
			trades              INTEGER NOT NULL,
			win_rate            REAL,
			avg_pnl_pct         REAL,
			avg_max_profit_pct  REAL,
			avg_drawdown_pct    REAL,
			avg_periods_to_peak REAL,
			detail              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtests_run ON backtests(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RunRecord 是 scan_runs 的一行。
type RunRecord struct {
	ID          string         `json:"id"`
	Period      string         `json:"period"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Universe    int            `json:"universe"`
	Skipped     int            `json:"skipped"`
	Launched    int            `json:"launched"`
	StageCounts map[string]int `json:"stage_counts"`
}

// SignalRecord 是 signals 的一行；Evidence 为原始 JSON。
type SignalRecord struct {
	RunID     string          `json:"run_id"`
	Symbol    string          `json:"symbol"`
	Stage     string          `json:"stage"`
	Path      string          `json:"path"`
	LastClose float64         `json:"last_close"`
	LastDate  time.Time       `json:"last_date"`
	Evidence  json.RawMessage `json:"evidence,omitempty"`
}

// BacktestRecord 是 backtests 的一行。
type BacktestRecord struct {
	RunID            string  `json:"run_id"`
	Symbol           string  `json:"symbol"`
	Signals          int     `json:"signals"`
	Trades           int     `json:"trades"`
	WinRate          float64 `json:"win_rate"`
	AvgPnLPct        float64 `json:"avg_pnl_pct"`
	AvgMaxProfitPct  float64 `json:"avg_max_profit_pct"`
	AvgDrawdownPct   float64 `json:"avg_drawdown_pct"`
	AvgPeriodsToPeak float64 `json:"avg_periods_to_peak"`
}

// SaveRun 落库一轮扫描：汇总行 + 全部标的的漏斗结果。
func (s *Store) SaveRun(ctx context.Context, sum screener.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(sum.StageCounts))
	for stage, c := range sum.StageCounts {
		counts[stage.String()] = c
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal stage counts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_runs (id, period, started_at, finished_at, universe, skipped, launched, stage_counts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, string(sum.Period), sum.StartedAt.Unix(), sum.FinishedAt.Unix(),
		sum.Universe, sum.Skipped, len(sum.Launched()), string(countsJSON)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range sum.Results {
		evidence, err := json.Marshal(r.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence for %s: %w", r.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signals (run_id, symbol, stage, path, last_close, last_date, evidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID, r.Symbol, r.HighestStage.String(), string(r.Path),
			r.LastClose, r.LastDate.Unix(), string(evidence)); err != nil {
			return fmt.Errorf("insert signal %s: %w", r.Symbol, err)
		}
	}
	return tx.Commit()
}

// SaveVerifications 落库终态标的的历史回测统计。
func (s *Store) SaveVerifications(ctx context.Context, runID string, list []backtest.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, v := range list {
		detail, err := json.Marshal(v.Trades)
		if err != nil {
			return fmt.Errorf("marshal trades for %s: %w", v.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backtests (run_id, symbol, signals, trades, win_rate, avg_pnl_pct,
			                        avg_max_profit_pct, avg_drawdown_pct, avg_periods_to_peak, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, v.Symbol, v.Signals, v.Stats.Trades, v.Stats.WinRate, v.Stats.AvgPnLPct,
			v.Stats.AvgMaxProfitPct, v.Stats.AvgDrawdownPct, v.Stats.AvgPeriodsToPeak,
			string(detail)); err != nil {
			return fmt.Errorf("insert backtest %s: %w", v.Symbol, err)
		}
	}
	return tx.Commit()
}

// LatestRun 返回最近一轮扫描；没有任何记录时返回 sql.ErrNoRows。
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, period, started_at, finished_at, universe, skipped, launched, stage_counts
		 FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	return scanRun(row)
}

// Runs 返回最近 limit 轮扫描，按时间倒序。
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, period, started_at, finished_at, universe, skipped, launched, stage_counts
		 FROM scan_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Signals 返回一轮扫描的信号行；stage 非空时按阶段过滤。
func (s *Store) Signals(ctx context.Context, runID, stage string) ([]SignalRecord, error) {
	query := `SELECT run_id, symbol, stage, path, last_close, last_date, evidence
	          FROM signals WHERE run_id = ?`
	args := []any{runID}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY symbol`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var lastDate int64
		var evidence sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Symbol, &rec.Stage, &rec.Path,
			&rec.LastClose, &lastDate, &evidence); err != nil {
			return nil, err
		}
		rec.LastDate = time.Unix(lastDate, 0)
		if evidence.Valid {
			rec.Evidence = json.RawMessage(evidence.String)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Backtests 返回一轮扫描的回测统计行。
func (s *Store) Backtests(ctx context.Context, runID string) ([]BacktestRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, symbol, signals, trades, win_rate, avg_pnl_pct,
		        avg_max_profit_pct, avg_drawdown_pct, avg_periods_to_peak
		 FROM backtests WHERE run_id = ? ORDER BY symbol`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BacktestRecord
	for rows.Next() {
		var rec BacktestRecord
		if err := rows.Scan(&rec.RunID, &rec.Symbol, &rec.Signals, &rec.Trades,
			&rec.WinRate, &rec.AvgPnLPct, &rec.AvgMaxProfitPct,
			&rec.AvgDrawdownPct, &rec.AvgPeriodsToPeak); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var started, finished int64
	var countsJSON string
	if err := row.Scan(&rec.ID, &rec.Period, &started, &finished,
		&rec.Universe, &rec.Skipped, &rec.Launched, &countsJSON); err != nil {
		return RunRecord{}, err
	}
	rec.StartedAt = time.Unix(started, 0)
	rec.FinishedAt = time.Unix(finished, 0)
	if err := json.Unmarshal([]byte(countsJSON), &rec.StageCounts); err != nil {
		return RunRecord{}, fmt.Errorf("decode stage counts: %w", err)
	}
	return rec, nil
}
