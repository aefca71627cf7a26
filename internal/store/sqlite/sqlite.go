// Package sqlite implements store.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/internal/store"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store is a SQLite-backed fetch cache.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSeries returns the cached series for indicator and year, if any.
func (s *Store) LoadSeries(ctx context.Context, indicator series.Indicator, year int) (series.Series, bool, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id FROM cached_years WHERE indicator = ? AND year = ?",
		string(indicator), year,
	).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return series.Series{}, false, nil
	}
	if err != nil {
		return series.Series{}, false, fmt.Errorf("reading cached year %s/%d: %w", indicator, year, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT period, value FROM observations WHERE indicator = ? AND year = ? ORDER BY period",
		string(indicator), year,
	)
	if err != nil {
		return series.Series{}, false, fmt.Errorf("reading cached observations %s/%d: %w", indicator, year, err)
	}
	defer func() { _ = rows.Close() }()

	var observations []series.Observation
	for rows.Next() {
		var period string
		var value sql.NullFloat64
		if err := rows.Scan(&period, &value); err != nil {
			return series.Series{}, false, err
		}
		t, err := time.Parse(datetime.DateTimeLayout, period)
		if err != nil {
			return series.Series{}, false, fmt.Errorf("cached period %q: %w", period, err)
		}
		obs := series.Observation{Period: t}
		if value.Valid {
			v := value.Float64
			obs.Value = &v
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return series.Series{}, false, err
	}

	result, err := series.New(indicator, observations)
	if err != nil {
		return series.Series{}, false, err
	}
	return result, true, nil
}

// SaveSeries replaces the cached series for its indicator and year.
func (s *Store) SaveSeries(ctx context.Context, sr series.Series, year int, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"observations", "cached_years"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE indicator = ? AND year = ?",
			string(sr.Indicator), year,
		); err != nil {
			return fmt.Errorf("clearing cached year: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO cached_years (indicator, year, run_id, fetched_at) VALUES (?, ?, ?, ?)",
		string(sr.Indicator), year, runID, now,
	); err != nil {
		return fmt.Errorf("inserting cached year: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO observations (indicator, year, period, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, obs := range sr.Observations {
		var value sql.NullFloat64
		if obs.Value != nil {
			value = sql.NullFloat64{Float64: *obs.Value, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, string(sr.Indicator), year, datetime.FormatPeriod(obs.Period), value); err != nil {
			return fmt.Errorf("inserting observation %s: %w", datetime.FormatPeriod(obs.Period), err)
		}
	}

	return tx.Commit()
}

// RecordTask stores the outcome of a fetch task.
func (s *Store) RecordTask(ctx context.Context, record store.TaskRecord) error {
	finished := record.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_tasks (run_id, indicator, year, status, attempts, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, indicator, year) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		record.RunID, string(record.Indicator), record.Year, record.Status, record.Attempts,
		record.Error, finished.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording task %s/%d: %w", record.Indicator, record.Year, err)
	}
	return nil
}

// ListTasks returns the task outcomes of a run ordered by indicator and year.
func (s *Store) ListTasks(ctx context.Context, runID string) ([]store.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indicator, year, status, attempts, COALESCE(error, ''), finished_at
		FROM fetch_tasks WHERE run_id = ? ORDER BY indicator, year`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []store.TaskRecord
	for rows.Next() {
		var r store.TaskRecord
		var indicator, finished string
		if err := rows.Scan(&indicator, &r.Year, &r.Status, &r.Attempts, &r.Error, &finished); err != nil {
			return nil, err
		}
		r.RunID = runID
		r.Indicator = series.Indicator(indicator)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		records = append(records, r)
	}
	return records, rows.Err()
}
