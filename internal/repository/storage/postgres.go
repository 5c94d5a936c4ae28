package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the Postgres driver to register it with the database/sql package.
	_ "github.com/lib/pq"
)

func NewPostgresStorage(ctx context.Context, dsn string) (*Storage, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &Storage{Connection: conn, Dialect: DialectPostgres}, nil
}
