package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/lib/pq"              // PostgreSQL driver "postgres"
	_ "github.com/mattn/go-sqlite3"    // SQLite driver "sqlite3"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// DefaultTable is the table SQL sinks write to.
const DefaultTable = "registry_health_reports"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLSink stores every published report as a row.
type SQLSink struct {
	db       *sql.DB
	table    string
	postgres bool
}

// OpenSQLSink opens a database with driver ("sqlite3", "postgres" or "pgx") and creates
// the report table if needed.
func OpenSQLSink(ctx context.Context, driver, dsn, table string) (*SQLSink, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	sink, err := NewSQLSink(db, driver, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := sink.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// NewSQLSink wraps an open database. driver selects the placeholder style.
func NewSQLSink(db *sql.DB, driver, table string) (*SQLSink, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	switch driver {
	case "sqlite3", "postgres", "pgx":
	default:
		return nil, fmt.Errorf("unsupported driver %q (supported: sqlite3, postgres, pgx)", driver)
	}
	return &SQLSink{db: db, table: table, postgres: driver != "sqlite3"}, nil
}

// Initialize ensures the report table exists
func (s *SQLSink) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id VARCHAR(36) PRIMARY KEY,
	generated_at TIMESTAMP NOT NULL,
	sound BOOLEAN NOT NULL,
	errors INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	summary TEXT NOT NULL,
	report TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_generated_at ON %[1]s(generated_at);
`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize %s table: %w", s.table, err)
	}
	return nil
}

func (s *SQLSink) placeholders(n int) []any {
	out := make([]any, n)
	for i := range out {
		if s.postgres {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// Publish inserts report.
func (s *SQLSink) Publish(ctx context.Context, report *registry.HealthReport) error {
	data, err := encode(report)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, generated_at, sound, errors, warnings, summary, report) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		append([]any{s.table}, s.placeholders(7)...)...)
	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.GeneratedAt.UTC(),
		report.IsStructurallySound(),
		len(report.Errors),
		len(report.Warnings),
		report.Summary(),
		string(data))
	if err != nil {
		return fmt.Errorf("failed to record health report %s: %w", report.ID, err)
	}
	return nil
}

// Latest returns the most recently generated report.
func (s *SQLSink) Latest(ctx context.Context) (*registry.HealthReport, error) {
	query := fmt.Sprintf("SELECT report FROM %s ORDER BY generated_at DESC LIMIT 1", s.table)

	var data string
	err := s.db.QueryRowContext(ctx, query).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest health report: %w", err)
	}
	return decode([]byte(data))
}

// Count returns the number of stored reports.
func (s *SQLSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count health reports: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *SQLSink) Close() error {
	return s.db.Close()
}
