package chromemdb

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"patient-rag/internal/models"
)

const compress = false

// Manager wraps a chromem-go collection behind the Store interface. The
// index lives on local disk, so there is no service credential to manage.
type Manager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewManager opens (or creates) the persistent database and collection.
func NewManager(dbPath, collectionName string, inMemory bool) (*Manager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Manager{db: db, collection: collection}, nil
}

// Upsert adds the records to the collection. chromem keys documents by id,
// so re-adding an id overwrites the previous record.
func (m *Manager) Upsert(ctx context.Context, records []models.VectorRecord) error {
	docs := make([]chromem.Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, chromem.Document{
			ID:        rec.ID,
			Content:   rec.Metadata[models.MetaText],
			Metadata:  rec.Metadata,
			Embedding: rec.Values,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := m.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query runs a similarity search restricted by the metadata filter. chromem
// rejects nResults beyond the collection size, so topK is clamped first.
func (m *Manager) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.QueryMatch, error) {
	if count := m.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, topK, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	matches := make([]models.QueryMatch, 0, len(results))
	for _, res := range results {
		matches = append(matches, models.QueryMatch{
			ID:       res.ID,
			Score:    res.Similarity,
			Metadata: res.Metadata,
		})
	}
	return matches, nil
}

func (m *Manager) Close() error { return nil }
