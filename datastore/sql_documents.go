package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coreybb/consumo/models"
	"github.com/goccy/go-json"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlDialect holds what differs between the SQL backends that emulate a
// document collection with one JSON column.
type sqlDialect struct {
	backend     string
	createTable string // %s is the table name
	insertValue string // value expression for one document; %s is the placeholder
	field       func(name string) string
	placeholder func(n int) string
}

// documentTable is a ReadingStore over a SQL table of JSON documents.
type documentTable struct {
	db      *sql.DB
	table   string
	dialect sqlDialect
}

func newDocumentTable(ctx context.Context, db *sql.DB, table string, d sqlDialect, timeout time.Duration) (*documentTable, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid collection name %q", table)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, unavailable("ping", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.createTable, table)); err != nil {
		return nil, unavailable("create table", err)
	}

	return &documentTable{db: db, table: table, dialect: d}, nil
}

// InsertBatch writes the batch with one multi-row INSERT inside a transaction.
func (t *documentTable) InsertBatch(ctx context.Context, readings []models.StoredReading) (n int, err error) {
	if len(readings) == 0 {
		return 0, nil
	}
	defer func(start time.Time) { observe(t.dialect.backend, "insert_batch", start, err) }(time.Now())

	values := make([]string, len(readings))
	args := make([]any, len(readings))
	for i, r := range readings {
		doc, err := json.Marshal(r.Document())
		if err != nil {
			return 0, fmt.Errorf("failed to encode reading %s %s: %w", r.Date, r.Hour, err)
		}
		values[i] = fmt.Sprintf(t.dialect.insertValue, t.dialect.placeholder(i+1))
		args[i] = string(doc)
	}
	query := fmt.Sprintf("INSERT INTO %s (doc) VALUES %s", t.table, strings.Join(values, ", "))

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable("insert batch", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit batch", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return len(readings), nil
	}
	return int(affected), nil
}

func (t *documentTable) Find(ctx context.Context, filter models.ReadingFilter, limit int) (out []models.Reading, err error) {
	defer func(start time.Time) { observe(t.dialect.backend, "find", start, err) }(time.Now())

	var conds []string
	var args []any
	if filter.Date != "" {
		args = append(args, filter.Date)
		conds = append(conds, fmt.Sprintf("%s = %s", t.dialect.field(models.FieldDate), t.dialect.placeholder(len(args))))
	}
	if filter.Device != "" {
		args = append(args, filter.Device)
		conds = append(conds, fmt.Sprintf("%s = %s", t.dialect.field(models.FieldDevice), t.dialect.placeholder(len(args))))
	}
	args = append(args, normalizeLimit(limit))

	query := "SELECT doc FROM " + t.table
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id LIMIT " + t.dialect.placeholder(len(args))

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("find", err)
	}
	defer rows.Close()

	out = []models.Reading{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, unavailable("scan document", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			skipMalformed(ctx, t.dialect.backend, string(raw), fmt.Errorf("%w: %w", models.ErrMalformedRecord, err))
			continue
		}
		r, err := models.DecodeReading(doc)
		if err != nil {
			skipMalformed(ctx, t.dialect.backend, doc, err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate rows", err)
	}
	return out, nil
}

// insertRaw stores an arbitrary JSON text. Used by tests to plant bad documents.
func (t *documentTable) insertRaw(ctx context.Context, doc string) error {
	query := fmt.Sprintf("INSERT INTO %s (doc) VALUES %s", t.table, fmt.Sprintf(t.dialect.insertValue, t.dialect.placeholder(1)))
	_, err := t.db.ExecContext(ctx, query, doc)
	return err
}

func (t *documentTable) Ping(ctx context.Context) error {
	if err := t.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (t *documentTable) Close(context.Context) error {
	return t.db.Close()
}
