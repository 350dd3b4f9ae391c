// Package repomanager provides a RepositoryManager for PostgreSQL (pgx) and
// SQLite, wiring together repository constructors and database migrations
// (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dualwallet/internal/dbx"
	"github.com/dmitrijs2005/dualwallet/internal/migrations"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/accounts"
	"github.com/dmitrijs2005/dualwallet/internal/repositories/transactions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// SQLRepositoryManager vends SQL-backed repository implementations
// and exposes a schema migration hook.
type SQLRepositoryManager struct {
	dialect  string
	lockRows bool
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewSQLRepository(db, m.lockRows)
}

// Transactions returns a transactions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Transactions(db dbx.DBTX) transactions.Repository {
	return transactions.NewSQLRepository(db)
}

// Dialect reports the goose dialect used for migrations.
func (m *SQLRepositoryManager) Dialect() string {
	return m.dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager constructs a RepositoryManager for the given
// database/sql driver name.
func NewRepositoryManager(driver string) (*SQLRepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return &SQLRepositoryManager{dialect: "pgx", lockRows: true}, nil
	case DriverSQLite:
		return &SQLRepositoryManager{dialect: "sqlite3"}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
