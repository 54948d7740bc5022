package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL backend behind a DSN.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DetectDialect picks the backend from the DSN: postgres:// and postgresql://
// URLs are Postgres, everything else (file:, :memory:, a plain path) is SQLite.
func DetectDialect(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Open opens a pooled *sql.DB for dsn and verifies connectivity.
// The process should hold exactly one of these and inject it.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	d := DetectDialect(dsn)

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, d, fmt.Errorf("open %s database: %w", d, err)
	}

	switch d {
	case DialectPostgres:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(30 * time.Minute)
	case DialectSQLite:
		// single writer
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, d, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, d, fmt.Errorf("ping %s database: %w", d, err)
	}

	return db, d, nil
}
