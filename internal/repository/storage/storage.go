package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its dialect in package state.
var gooseMu sync.Mutex

// Storage is an archive database together with its SQL dialect.
type Storage struct {
	Connection *sql.DB
	Dialect    string
}

// NewSQLStorage opens the archive for the given driver name: "sqlite" or "postgres".
func NewSQLStorage(ctx context.Context, driver, dsn string) (*Storage, error) {
	switch driver {
	case "sqlite", DialectSQLite:
		return NewSQLiteStorage(ctx, dsn)
	case DialectPostgres:
		return NewPostgresStorage(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", driver)
	}
}

// Migrate applies the embedded migrations of the storage dialect.
func (that *Storage) Migrate(ctx context.Context) error {
	dir := "migrations/sqlite"
	if that.Dialect == DialectPostgres {
		dir = "migrations/postgres"
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetVerbose(false)

	if err := goose.SetDialect(that.Dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, that.Connection, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

func (that *Storage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
