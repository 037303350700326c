package datastore

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/coreybb/consumo/models"
)

var errStoreClosed = errors.New("store closed")

// MemoryStore is an in-process, append-only ReadingStore. It keeps raw
// documents, so reads go through the same strict decode as the real backends.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   []map[string]any
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertBatch(_ context.Context, readings []models.StoredReading) (n int, err error) {
	defer func(start time.Time) { observe(backendMemory, "insert_batch", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, unavailable("insert batch", errStoreClosed)
	}
	for _, r := range readings {
		s.docs = append(s.docs, r.Document())
	}
	return len(readings), nil
}

// AppendRaw stores doc as-is, bypassing the Reading shape.
func (s *MemoryStore) AppendRaw(doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, maps.Clone(doc))
}

// Len is the number of stored documents, malformed ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *MemoryStore) Find(ctx context.Context, filter models.ReadingFilter, limit int) (out []models.Reading, err error) {
	defer func(start time.Time) { observe(backendMemory, "find", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, unavailable("find", errStoreClosed)
	}

	limit = normalizeLimit(limit)
	out = []models.Reading{}
	matched := 0
	for _, doc := range s.docs {
		if matched >= limit {
			break
		}
		if !rawMatches(doc, filter) {
			continue
		}
		matched++
		r, err := models.DecodeReading(doc)
		if err != nil {
			skipMalformed(ctx, backendMemory, doc, err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// rawMatches applies the filter to the stored fields the way a document
// database would, before any decoding.
func rawMatches(doc map[string]any, f models.ReadingFilter) bool {
	if f.Date != "" {
		if v, ok := doc[models.FieldDate].(string); !ok || v != f.Date {
			return false
		}
	}
	if f.Device != "" {
		if v, ok := doc[models.FieldDevice].(string); !ok || v != f.Device {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return unavailable("ping", errStoreClosed)
	}
	return nil
}

func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
