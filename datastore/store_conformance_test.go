package datastore

import (
	"context"
	"fmt"
	"testing"

	"github.com/coreybb/consumo/models"
)

// plantFunc writes a raw document straight into the backing collection.
type plantFunc func(t *testing.T, doc map[string]any)

func day(date, device, batch string) []models.StoredReading {
	out := make([]models.StoredReading, models.HoursPerDay)
	for h := range out {
		out[h] = models.StoredReading{
			Reading: models.Reading{
				Date:        date,
				Hour:        fmt.Sprintf("%02d:00", h),
				Device:      device,
				Consumption: 0.05 + float64(h)/1000,
			},
			BatchID: batch,
		}
	}
	return out
}

func mustInsert(t *testing.T, s ReadingStore, batch []models.StoredReading) {
	t.Helper()
	n, err := s.InsertBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if n != len(batch) {
		t.Fatalf("InsertBatch() = %d, want %d", n, len(batch))
	}
}

func mustFind(t *testing.T, s ReadingStore, f models.ReadingFilter, limit int) []models.Reading {
	t.Helper()
	got, err := s.Find(context.Background(), f, limit)
	if err != nil {
		t.Fatalf("Find(%+v) error = %v", f, err)
	}
	if got == nil {
		t.Fatalf("Find(%+v) returned nil slice", f)
	}
	return got
}

// runStoreConformance checks the gateway contract against a fresh, empty store.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) (ReadingStore, plantFunc)) {
	t.Run("round trip returns the batch", func(t *testing.T) {
		s, _ := newStore(t)
		batch := day("2024-01-01", "Geladeira", "b1")
		mustInsert(t, s, batch)

		got := mustFind(t, s, models.ReadingFilter{Date: "2024-01-01", Device: "Geladeira"}, models.MaxQueryResults)
		if len(got) < len(batch) {
			t.Fatalf("Find() returned %d rows, want at least %d", len(got), len(batch))
		}
		seen := map[models.Reading]bool{}
		for _, r := range got {
			seen[r] = true
		}
		for _, r := range batch {
			if !seen[r.Reading] {
				t.Errorf("reading %+v missing from Find() result", r.Reading)
			}
		}
	})

	t.Run("repeated ingestion accumulates", func(t *testing.T) {
		s, _ := newStore(t)
		mustInsert(t, s, day("2024-01-01", "TV", "b1"))
		mustInsert(t, s, day("2024-01-01", "TV", "b2"))

		got := mustFind(t, s, models.ReadingFilter{Date: "2024-01-01", Device: "TV"}, models.MaxQueryResults)
		if len(got) != 2*models.HoursPerDay {
			t.Errorf("Find() returned %d rows, want %d", len(got), 2*models.HoursPerDay)
		}
	})

	t.Run("filter semantics", func(t *testing.T) {
		s, _ := newStore(t)
		mustInsert(t, s, day("2024-01-01", "TV", "b1"))
		mustInsert(t, s, day("2024-01-01", "Chuveiro", "b2"))
		mustInsert(t, s, day("2024-01-02", "TV", "b3"))

		tests := []struct {
			name   string
			filter models.ReadingFilter
			want   int
		}{
			{"date only", models.ReadingFilter{Date: "2024-01-01"}, 48},
			{"device only", models.ReadingFilter{Device: "TV"}, 48},
			{"both", models.ReadingFilter{Date: "2024-01-02", Device: "TV"}, 24},
			{"neither", models.ReadingFilter{}, 72},
			{"no match", models.ReadingFilter{Date: "2024-01-03"}, 0},
		}
		for _, tt := range tests {
			got := mustFind(t, s, tt.filter, models.MaxQueryResults)
			if len(got) != tt.want {
				t.Errorf("%s: Find() returned %d rows, want %d", tt.name, len(got), tt.want)
			}
			for _, r := range got {
				if !tt.filter.Matches(r) {
					t.Errorf("%s: row %+v does not match filter", tt.name, r)
				}
			}
		}
	})

	t.Run("limit caps results", func(t *testing.T) {
		s, _ := newStore(t)
		mustInsert(t, s, day("2024-01-01", "TV", "b1"))

		if got := mustFind(t, s, models.ReadingFilter{}, 10); len(got) != 10 {
			t.Errorf("Find(limit 10) returned %d rows", len(got))
		}
		if got := mustFind(t, s, models.ReadingFilter{}, 0); len(got) != 24 {
			t.Errorf("Find(limit 0) returned %d rows, want the default cap to apply", len(got))
		}
	})

	t.Run("store order is insertion order", func(t *testing.T) {
		s, _ := newStore(t)
		batch := day("2024-01-01", "TV", "b1")
		mustInsert(t, s, batch)

		got := mustFind(t, s, models.ReadingFilter{}, models.MaxQueryResults)
		for i := range got {
			if got[i] != batch[i].Reading {
				t.Fatalf("row %d = %+v, want %+v", i, got[i], batch[i].Reading)
			}
		}
	})

	t.Run("malformed documents are skipped", func(t *testing.T) {
		s, plant := newStore(t)
		mustInsert(t, s, day("2024-01-01", "TV", "b1"))
		plant(t, map[string]any{"date": "2024-01-01", "device": "TV", "hour": "00:00", "consumption": "lots"})
		plant(t, map[string]any{"date": "2024-01-01", "device": "TV", "consumption": 0.1})
		plant(t, map[string]any{"date": "2024-01-01", "device": "TV", "hour": 7, "consumption": 0.1})

		got := mustFind(t, s, models.ReadingFilter{Date: "2024-01-01", Device: "TV"}, models.MaxQueryResults)
		if len(got) != models.HoursPerDay {
			t.Errorf("Find() returned %d rows, want %d well-formed rows", len(got), models.HoursPerDay)
		}
	})

	t.Run("empty string fields are returned", func(t *testing.T) {
		s, plant := newStore(t)
		plant(t, map[string]any{"date": "2024-01-01", "device": "TV", "hour": "", "consumption": 0.1})

		got := mustFind(t, s, models.ReadingFilter{Date: "2024-01-01", Device: "TV"}, models.MaxQueryResults)
		if len(got) != 1 || got[0].Hour != "" {
			t.Errorf("Find() = %+v, want the one document with an empty hour", got)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s, _ := newStore(t)
		n, err := s.InsertBatch(context.Background(), nil)
		if err != nil || n != 0 {
			t.Errorf("InsertBatch(nil) = %d, %v; want 0, nil", n, err)
		}
		if got := mustFind(t, s, models.ReadingFilter{}, models.MaxQueryResults); len(got) != 0 {
			t.Errorf("Find() returned %d rows from empty store", len(got))
		}
	})

	t.Run("ping", func(t *testing.T) {
		s, _ := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
