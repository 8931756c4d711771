package vectorstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"patient-rag/internal/models"
)

const defaultMaxRetries = 4

// BatchWriter groups records into bounded batches before upserting them.
// Records without a vector are dropped silently; each batch call is retried
// with capped exponential backoff before the flush is declared failed.
type BatchWriter struct {
	store      Store
	batchSize  int
	maxRetries uint64
}

func NewBatchWriter(store Store, batchSize int) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BatchWriter{store: store, batchSize: batchSize, maxRetries: defaultMaxRetries}
}

// Flush upserts all records with a vector, in order, in batches of at most
// the configured size. The partial final batch is written last. It returns
// the number of records written: earlier batches may already be in the index
// when a later batch fails, and callers report that count.
func (w *BatchWriter) Flush(ctx context.Context, records []models.VectorRecord) (int, error) {
	valid := make([]models.VectorRecord, 0, len(records))
	for _, rec := range records {
		if rec.Values == nil {
			log.Warn().Str("id", rec.ID).Msg("Dropping record without embedding")
			continue
		}
		valid = append(valid, rec)
	}

	written := 0
	batchNum := 0
	for start := 0; start < len(valid); start += w.batchSize {
		end := start + w.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[start:end]
		batchNum++
		if err := w.upsertWithRetry(ctx, batch); err != nil {
			return written, &WriteError{Batch: batchNum, Size: len(batch), Err: err}
		}
		written += len(batch)
		log.Debug().Int("batch", batchNum).Int("records", len(batch)).Msg("Upserted batch")
	}
	return written, nil
}

func (w *BatchWriter) upsertWithRetry(ctx context.Context, batch []models.VectorRecord) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := w.store.Upsert(ctx, batch)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Upsert failed, retrying")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, w.maxRetries), ctx))
}
