package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = sqlDialect{
	backend: backendSQLite,
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		doc TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	insertValue: "(%s)",
	field: func(name string) string {
		return "json_extract(doc, '$." + name + "')"
	},
	placeholder: func(int) string {
		return "?"
	},
}

// SQLiteStore keeps reading documents as JSON text in a local SQLite file.
type SQLiteStore struct {
	*documentTable
}

// NewSQLiteStore opens sqlite://<path>. The parent directory is created if needed.
func NewSQLiteStore(ctx context.Context, uri string, o Options) (*SQLiteStore, error) {
	path := strings.TrimPrefix(uri, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("sqlite connection string has no path")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serializes writers, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	t, err := newDocumentTable(ctx, db, o.Collection, sqliteDialect, o.ConnectTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{documentTable: t}, nil
}
