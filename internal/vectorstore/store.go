package vectorstore

import (
	"context"
	"fmt"

	"patient-rag/internal/models"
)

// Store is the vector index contract shared by all backends. Upsert is
// idempotent by record id; Query returns the nearest matches restricted to
// records whose metadata equals every filter entry.
type Store interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.QueryMatch, error)
	Close() error
}

// WriteError reports an upsert batch that failed after retries.
type WriteError struct {
	Batch int
	Size  int
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("upsert batch %d (%d records): %v", e.Batch, e.Size, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
