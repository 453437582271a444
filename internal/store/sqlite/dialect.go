package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS    = 5000
	foreignKeysParam = "_fk=1"
)

// DSN builds a SQLite DSN for the given file path; an empty path means an
// in-memory database, which tests rely on.
func DSN(path string) string {
	if path == "" {
		return ":memory:"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&%s", path, busyTimeoutMS, foreignKeysParam)
}

// Dialect implements the store SQL dialect for SQLite
type Dialect struct{}

// NewDialect creates a new SQLite dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Connect opens the SQLite database
func (s *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return db, nil
}

// Placeholder returns SQLite-style placeholders (?)
func (s *Dialect) Placeholder(_ int) string {
	return "?"
}

// BoolToStorage converts bool to SQLite storage format (integer 0/1)
func (s *Dialect) BoolToStorage(b bool) any {
	if b {
		return 1
	}
	return 0
}

// TimeToStorage converts time to SQLite storage format (RFC3339 text)
func (s *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC().Format(time.RFC3339Nano)
}

// SupportsReturning reports whether inserts should use RETURNING; SQLite
// relies on LastInsertId instead.
func (s *Dialect) SupportsReturning() bool {
	return false
}

// EnsureStatements returns SQLite-specific table creation statements
func (s *Dialect) EnsureStatements(runs, steps string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scenario TEXT NOT NULL,
			passed INTEGER NOT NULL,
			aborted INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`, runs),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			code INTEGER NOT NULL,
			reason TEXT NOT NULL,
			pass INTEGER NOT NULL,
			detail TEXT NOT NULL,
			tolerated INTEGER NOT NULL,
			PRIMARY KEY(run_id, seq)
		)`, steps),
	}
}

// Name returns the driver name for logging
func (s *Dialect) Name() string {
	return "sqlite"
}
