package recorder

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"BullionLedger/internal/logger"
	"BullionLedger/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.With("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

//go:embed migrations/*.sql
var migrations embed.FS

func (r *SQLiteRecorder) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.Get())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(r.db, "migrations")
}

// RecordRun stores the summary, its per-commodity results and every
// observation in one transaction.
func (r *SQLiteRecorder) RecordRun(s *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(id, run_date, started_at, finished_at, succeeded, failed)
		VALUES (?,?,?,?,?,?)`,
		s.ID, s.Date.Format(model.DateLayout), s.StartedAt.Unix(), s.FinishedAt.Unix(),
		s.Succeeded(), s.Failed(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, res := range s.Results {
		var kind, msg string
		if !res.OK() {
			kind = string(model.KindOf(res.Err))
			msg = res.Err.Error()
		}
		if _, err := tx.Exec(`INSERT INTO commodity_results
			(run_id, commodity, ok, error_kind, message)
			VALUES (?,?,?,?,?)`,
			s.ID, res.Commodity, res.OK(), kind, msg,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		for _, o := range res.Observations {
			if _, err := tx.Exec(`INSERT INTO observations
				(run_id, commodity, obs_date, sub_key, unit, value, source)
				VALUES (?,?,?,?,?,?,?)`,
				s.ID, res.Commodity, o.DateKey(), o.SubKey(), string(o.Unit), o.Value, o.Source,
			); err != nil {
				return fmt.Errorf("insert observation: %w", err)
			}
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, run_date, started_at, finished_at, succeeded, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Date, &started, &finished, &rec.Succeeded, &rec.Failed); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0)
		rec.FinishedAt = time.Unix(finished, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Get().Info("closing sqlite recorder")
	return r.db.Close()
}
