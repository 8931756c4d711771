package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"patient-rag/internal/models"
)

// PatientChunk is one ingested chunk row. The embedding is stored in a
// pgvector column and carried as its text literal on the Go side.
type PatientChunk struct {
	bun.BaseModel `bun:"table:patient_chunks,alias:pc"`
	ID            string  `bun:"id,pk"`
	Source        string  `bun:"source,notnull"`
	ChunkIndex    int     `bun:"chunk_index,notnull"`
	Text          string  `bun:"text,notnull"`
	PatientName   string  `bun:"patient_name,notnull"`
	Embedding     string  `bun:"embedding,notnull"`
	Distance      float64 `bun:"distance,scanonly"`
}

// Store is the pgvector-backed index, for deployments where the documents
// corpus outgrows a local on-disk index.
type Store struct {
	db  *bun.DB
	dim int
}

func Connect(dsn string, dim int, debug bool) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db, dim: dim}, nil
}

// InitSchema creates the pgvector extension and the chunk table.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS patient_chunks (
		id text PRIMARY KEY,
		source text NOT NULL,
		chunk_index int NOT NULL,
		text text NOT NULL,
		patient_name text NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.dim))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Upsert inserts the records, overwriting any row with the same id so
// re-ingestion stays idempotent.
func (s *Store) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]PatientChunk, 0, len(records))
	for _, rec := range records {
		idx, _ := strconv.Atoi(rec.Metadata[models.MetaChunk])
		rows = append(rows, PatientChunk{
			ID:          rec.ID,
			Source:      rec.Metadata[models.MetaSource],
			ChunkIndex:  idx,
			Text:        rec.Metadata[models.MetaText],
			PatientName: rec.Metadata[models.MetaPatient],
			Embedding:   vectorLiteral(rec.Values),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("source = EXCLUDED.source").
		Set("chunk_index = EXCLUDED.chunk_index").
		Set("text = EXCLUDED.text").
		Set("patient_name = EXCLUDED.patient_name").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	return err
}

// Query searches by cosine distance, restricted by the metadata filter.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.QueryMatch, error) {
	lit := vectorLiteral(vector)
	q := s.db.NewSelect().
		Model((*PatientChunk)(nil)).
		ColumnExpr("pc.*").
		ColumnExpr("embedding <=> ?::vector AS distance", lit).
		OrderExpr("embedding <=> ?::vector", lit).
		Limit(topK)
	for key, value := range filter {
		column, err := filterColumn(key)
		if err != nil {
			return nil, err
		}
		q = q.Where("? = ?", bun.Ident(column), value)
	}

	var rows []PatientChunk
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	matches := make([]models.QueryMatch, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, models.QueryMatch{
			ID:    row.ID,
			Score: float32(1 - row.Distance),
			Metadata: map[string]string{
				models.MetaSource:  row.Source,
				models.MetaChunk:   strconv.Itoa(row.ChunkIndex),
				models.MetaText:    row.Text,
				models.MetaPatient: row.PatientName,
			},
		})
	}
	return matches, nil
}

func (s *Store) Close() error { return s.db.Close() }

func filterColumn(key string) (string, error) {
	switch key {
	case models.MetaPatient, models.MetaSource:
		return key, nil
	}
	return "", fmt.Errorf("unsupported filter key %q", key)
}

// pgvector reads "[v1,v2,...]"
func vectorLiteral(vector []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
