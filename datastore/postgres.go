package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	pgMaxOpenConns    = 25
	pgMaxIdleConns    = 25
	pgConnMaxLifetime = 5 * time.Minute
)

var postgresDialect = sqlDialect{
	backend: backendPostgres,
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		doc JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	insertValue: "(%s::jsonb)",
	field: func(name string) string {
		return "doc->>'" + name + "'"
	},
	placeholder: func(n int) string {
		return fmt.Sprintf("$%d", n)
	},
}

// PostgresStore keeps reading documents in a JSONB table.
type PostgresStore struct {
	*documentTable
}

func NewPostgresStore(ctx context.Context, uri string, o Options) (*PostgresStore, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxLifetime(pgConnMaxLifetime)

	t, err := newDocumentTable(ctx, db, o.Collection, postgresDialect, o.ConnectTimeout)
	if err != nil {
		db.Close() // Close unusable connection pool
		return nil, err
	}
	return &PostgresStore{documentTable: t}, nil
}
