package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists screening history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
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

	// WAL lets dashboards read while the screener writes.
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
		`CREATE TABLE IF NOT EXISTS screen_runs (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			policy      TEXT NOT NULL,
			ranking     TEXT NOT NULL,
			scanned     INTEGER,
			eligible    INTEGER,
			skipped     INTEGER,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screen_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS screen_candidates (
			run_id             TEXT NOT NULL REFERENCES screen_runs(id),
			position           INTEGER NOT NULL,
			ticker             TEXT NOT NULL,
			price              REAL,
			ma50               REAL,
			ma200              REAL,
			distance_from_high REAL,
			volume_ratio       REAL,
			rsi                REAL,
			volume_spike       INTEGER,
			obv_trend          INTEGER,
			score              REAL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_ticker ON screen_candidates(ticker)`,

		`CREATE TABLE IF NOT EXISTS analyses (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			ticker     TEXT NOT NULL,
			favorable  INTEGER,
			close      REAL,
			ma50       REAL,
			ma200      REAL,
			rsi        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ticker ON analyses(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) RecordScreen(run *ScreenRun) (string, error) {
	if run == nil || run.Result == nil {
		return "", fmt.Errorf("record screen: empty run")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	res := run.Result

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO screen_runs
		(id, source, policy, ranking, scanned, eligible, skipped, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, string(run.Trigger), string(res.Policy), string(res.Ranking),
		res.Scanned, res.Eligible, len(res.Skipped),
		res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, c := range res.Candidates {
		if _, err := tx.Exec(`INSERT INTO screen_candidates
			(run_id, position, ticker, price, ma50, ma200, distance_from_high, volume_ratio,
			 rsi, volume_spike, obv_trend, score)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, i+1, c.Ticker, c.Price, nullable(c.MA50), nullable(c.MA200),
			nullable(c.DistanceFromHigh), nullable(c.VolumeRatio), nullable(c.RSI),
			c.VolumeSpike, c.OBVTrend, c.Score,
		); err != nil {
			return "", fmt.Errorf("insert candidate %s: %w", c.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	r.log.Debug("screen run recorded", zap.String("run_id", run.ID), zap.Int("candidates", len(res.Candidates)))
	return run.ID, nil
}

func (r *SQLiteRecorder) RecordAnalysis(evt *AnalysisEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := evt.Recommendation
	_, err := r.db.Exec(`INSERT INTO analyses
		(timestamp, ticker, favorable, close, ma50, ma200, rsi)
		VALUES (?,?,?,?,?,?,?)`,
		at.Unix(), evt.Ticker, rec.Favorable, rec.Close,
		nullable(rec.MA50), nullable(rec.MA200), nullable(evt.RSI),
	)
	return err
}

func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT r.id, r.source, r.policy, r.ranking, r.scanned, r.eligible, r.skipped,
			r.started_at, r.finished_at,
			COALESCE((SELECT group_concat(c.ticker, ',' ORDER BY c.position)
				FROM screen_candidates c WHERE c.run_id = r.id), '')
		FROM screen_runs r
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := make([]RunSummary, 0, limit)
	for rows.Next() {
		var (
			s                 RunSummary
			trigger           string
			started, finished int64
		)
		if err := rows.Scan(&s.ID, &trigger, &s.Policy, &s.Ranking, &s.Scanned, &s.Eligible, &s.Skipped,
			&started, &finished, &s.Top); err != nil {
			return nil, err
		}
		s.Trigger = Trigger(trigger)
		s.Top = strings.ReplaceAll(s.Top, ",", ", ")
		s.StartedAt = time.UnixMilli(started)
		s.FinishedAt = time.UnixMilli(finished)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
