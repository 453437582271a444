package postgresql

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect implements the store SQL dialect for PostgreSQL
type Dialect struct{}

// NewDialect creates a new PostgreSQL dialect
func NewDialect() *Dialect {
	return &Dialect{}
}

// Connect establishes a connection to PostgreSQL with conservative pooling;
// a single sequential run never needs more than a few connections.
func (p *Dialect) Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return db, nil
}

// Placeholder returns PostgreSQL-style placeholders ($1, $2, ...)
func (p *Dialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// BoolToStorage converts bool to PostgreSQL storage format (native bool)
func (p *Dialect) BoolToStorage(b bool) any {
	return b
}

// TimeToStorage converts time to PostgreSQL storage format (native time.Time)
func (p *Dialect) TimeToStorage(t time.Time) any {
	return t.UTC()
}

// SupportsReturning reports that inserts should use RETURNING for ids.
func (p *Dialect) SupportsReturning() bool {
	return true
}

// EnsureStatements returns PostgreSQL-specific table creation statements
func (p *Dialect) EnsureStatements(runs, steps string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			scenario TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			aborted BOOLEAN NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)`, runs),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id BIGINT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			code INTEGER NOT NULL,
			reason TEXT NOT NULL,
			pass BOOLEAN NOT NULL,
			detail TEXT NOT NULL,
			tolerated BOOLEAN NOT NULL,
			PRIMARY KEY(run_id, seq)
		)`, steps),
	}
}

// Name returns the driver name for logging
func (p *Dialect) Name() string {
	return "postgresql"
}
