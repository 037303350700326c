package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreybb/consumo/logging"
	"github.com/coreybb/consumo/metrics"
	"github.com/coreybb/consumo/models"
)

// ErrStorageUnavailable wraps every failure to reach or use the backing store.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ReadingStore is the persistence gateway for readings: append-only batch
// inserts and filtered lookups over a single document collection.
type ReadingStore interface {
	// InsertBatch writes all readings as one batch and returns how many were written.
	InsertBatch(ctx context.Context, readings []models.StoredReading) (int, error)
	// Find returns up to limit readings matching filter, in store order.
	// Documents that cannot be decoded are skipped.
	Find(ctx context.Context, filter models.ReadingFilter, limit int) ([]models.Reading, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

const (
	defaultDatabase       = "TCC"
	defaultCollection     = "consumo_eletrico"
	defaultConnectTimeout = 5 * time.Second
)

// Options configures Open.
type Options struct {
	// Database is used by the Mongo backend only.
	Database string
	// Collection is the Mongo collection or the SQL table name.
	Collection     string
	ConnectTimeout time.Duration
}

type Option func(*Options)

func WithDatabase(name string) Option {
	return func(o *Options) { o.Database = name }
}

func WithCollection(name string) Option {
	return func(o *Options) { o.Collection = name }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

func buildOptions(opts []Option) Options {
	o := Options{
		Database:       defaultDatabase,
		Collection:     defaultCollection,
		ConnectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open connects to the store named by uri. The scheme selects the backend:
// mongodb and mongodb+srv, postgres and postgresql, sqlite, memory.
func Open(ctx context.Context, uri string, opts ...Option) (ReadingStore, error) {
	o := buildOptions(opts)

	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("invalid store connection string: missing scheme")
	}

	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return NewMongoStore(ctx, uri, o)
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, uri, o)
	case "sqlite":
		return NewSQLiteStore(ctx, uri, o)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", scheme)
	}
}

// BackendName reports which backend Open would pick for uri, for logging.
func BackendName(uri string) string {
	scheme, _, _ := strings.Cut(uri, "://")
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return backendMongo
	case "postgres", "postgresql":
		return backendPostgres
	case "sqlite":
		return backendSQLite
	case "memory":
		return backendMemory
	default:
		return "unknown"
	}
}

const (
	backendMongo    = "mongo"
	backendPostgres = "postgres"
	backendSQLite   = "sqlite"
	backendMemory   = "memory"
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func observe(backend, op string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreOperationErrors.WithLabelValues(backend, op).Inc()
	}
}

// skipMalformed records a document dropped on read. The query carries on.
func skipMalformed(ctx context.Context, backend string, doc any, err error) {
	metrics.MalformedRecords.WithLabelValues(backend).Inc()
	logging.Ctx(ctx).Warn().
		Err(err).
		Str("backend", backend).
		Interface("document", doc).
		Msg("Skipping stored document that does not map to a reading")
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > models.MaxQueryResults {
		return models.MaxQueryResults
	}
	return limit
}
