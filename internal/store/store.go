// Package store persists scenario run history so past reproductions can be
// inspected without re-running against the broker.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/store/postgresql"
	"github.com/loykin/dqtprobe/internal/store/sqlite"
)

// DbFileName is the default filename for the run history database.
const DbFileName = "dqtprobe.db"

const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

const (
	tableRuns  = "scenario_runs"
	tableSteps = "step_results"
)

// Dialect abstracts the SQL differences between the supported backends.
type Dialect interface {
	Connect(dsn string) (*sql.DB, error)
	Placeholder(index int) string
	EnsureStatements(runs, steps string) []string
	BoolToStorage(b bool) any
	TimeToStorage(t time.Time) any
	SupportsReturning() bool
	Name() string
}

type Config struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// StepRecord is one persisted step result.
type StepRecord struct {
	Seq       int
	Name      string
	Kind      string
	Status    string
	Code      int
	Reason    string
	Pass      bool
	Detail    string
	Tolerated bool
}

// RunRecord is a whole run to persist.
type RunRecord struct {
	Scenario   string
	Passed     bool
	Aborted    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepRecord
}

// Run is a persisted run as read back from the database.
type Run struct {
	ID         int64
	Scenario   string
	Passed     bool
	Aborted    bool
	StartedAt  string
	FinishedAt string
}

// Store persists scenario runs through one of the dialect backends.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *common.Logger
}

// Open connects the configured backend and ensures the schema exists.
func Open(cfg Config) (*Store, error) {
	var dialect Dialect
	var dsn string
	switch cfg.Driver {
	case DriverPostgresql:
		dialect = postgresql.NewDialect()
		dsn = cfg.PostgresDSN
	case DriverSqlite, "":
		dialect = sqlite.NewDialect()
		dsn = sqlite.DSN(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := dialect.Connect(dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  common.GetLogger().WithStore(dialect.Name()),
	}
	if err := s.ensure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensure() error {
	for _, q := range s.dialect.EnsureStatements(tableRuns, tableSteps) {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to ensure run history schema: %w", err)
		}
	}
	return nil
}

// RecordRun persists a run and its step results, returning the run id.
func (s *Store) RecordRun(rec RunRecord) (int64, error) {
	d := s.dialect
	insertRun := fmt.Sprintf(
		"INSERT INTO %s(scenario, passed, aborted, started_at, finished_at) VALUES(%s, %s, %s, %s, %s)",
		tableRuns,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5))

	args := []any{
		rec.Scenario,
		d.BoolToStorage(rec.Passed),
		d.BoolToStorage(rec.Aborted),
		d.TimeToStorage(rec.StartedAt),
		d.TimeToStorage(rec.FinishedAt),
	}

	var runID int64
	if d.SupportsReturning() {
		row := s.db.QueryRow(insertRun+" RETURNING id", args...)
		if err := row.Scan(&runID); err != nil {
			return 0, fmt.Errorf("failed to record run: %w", err)
		}
	} else {
		res, err := s.db.Exec(insertRun, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to record run: %w", err)
		}
		runID, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	}

	insertStep := fmt.Sprintf(
		"INSERT INTO %s(run_id, seq, name, kind, status, code, reason, pass, detail, tolerated) VALUES(%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
		tableSteps,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5),
		d.Placeholder(6), d.Placeholder(7), d.Placeholder(8), d.Placeholder(9), d.Placeholder(10))

	for _, st := range rec.Steps {
		_, err := s.db.Exec(insertStep,
			runID, st.Seq, st.Name, st.Kind, st.Status, st.Code, st.Reason,
			d.BoolToStorage(st.Pass), st.Detail, d.BoolToStorage(st.Tolerated))
		if err != nil {
			return runID, fmt.Errorf("failed to record step %d: %w", st.Seq, err)
		}
	}

	s.logger.Debug("run recorded", "run_id", runID, "scenario", rec.Scenario, "passed", rec.Passed)
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := fmt.Sprintf(
		"SELECT id, scenario, passed, aborted, started_at, finished_at FROM %s ORDER BY id DESC LIMIT %s",
		tableRuns, s.dialect.Placeholder(1))
	rows, err := s.db.Query(q, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Passed, &r.Aborted, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadSteps returns the step results of a run in execution order.
func (s *Store) LoadSteps(runID int64) ([]StepRecord, error) {
	q := fmt.Sprintf(
		"SELECT seq, name, kind, status, code, reason, pass, detail, tolerated FROM %s WHERE run_id = %s ORDER BY seq ASC",
		tableSteps, s.dialect.Placeholder(1))
	rows, err := s.db.Query(q, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []StepRecord
	for rows.Next() {
		var st StepRecord
		if err := rows.Scan(&st.Seq, &st.Name, &st.Kind, &st.Status, &st.Code, &st.Reason, &st.Pass, &st.Detail, &st.Tolerated); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
