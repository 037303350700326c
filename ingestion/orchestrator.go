package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreybb/consumo/logging"
	"github.com/coreybb/consumo/metrics"
	"github.com/coreybb/consumo/models"
	"github.com/google/uuid"
)

// BatchWriter persists one ingestion batch. datastore.ReadingStore satisfies it.
type BatchWriter interface {
	InsertBatch(ctx context.Context, readings []models.StoredReading) (int, error)
}

// Result is what an ingestion produced: the generated readings, in hour order,
// and the batch id stamped on every stored copy.
type Result struct {
	BatchID  string
	Readings []models.Reading
}

// Orchestrator runs the write path: generate a day of readings, then persist
// them as a single batch.
type Orchestrator struct {
	Generator  *Generator
	Store      BatchWriter
	NewBatchID func() string
}

// Creates a new Orchestrator with uuid batch ids.
func NewOrchestrator(generator *Generator, store BatchWriter) *Orchestrator {
	return &Orchestrator{
		Generator:  generator,
		Store:      store,
		NewBatchID: uuid.NewString,
	}
}

// Ingest generates and stores readings for (date, device). The returned
// readings are the generated ones, not a re-read from storage. Repeated calls
// with the same input accumulate duplicate rows.
func (o *Orchestrator) Ingest(ctx context.Context, date, device string) (*Result, error) {
	if date == "" || device == "" {
		return nil, errors.New("date and device are required")
	}

	readings := o.Generator.Generate(date, device)
	batchID := o.NewBatchID()

	batch := make([]models.StoredReading, len(readings))
	for i, r := range readings {
		batch[i] = models.StoredReading{Reading: r, BatchID: batchID}
	}

	n, err := o.Store.InsertBatch(ctx, batch)
	if err != nil {
		metrics.IngestBatches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store readings for %s on %s: %w", device, date, err)
	}
	metrics.IngestBatches.WithLabelValues("ok").Inc()
	metrics.ReadingsIngested.Add(float64(n))

	logging.Ctx(ctx).Info().
		Str("batch_id", batchID).
		Str("date", date).
		Str("device", device).
		Int("inserted", n).
		Msg("Readings inserted")

	return &Result{BatchID: batchID, Readings: readings}, nil
}
