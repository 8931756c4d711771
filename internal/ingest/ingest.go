package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"patient-rag/internal/chunker"
	"patient-rag/internal/embedding"
	"patient-rag/internal/models"
	"patient-rag/internal/parser"
	"patient-rag/internal/vectorstore"
)

// ExtractFunc extracts plain text from a document on disk.
type ExtractFunc func(path string) (string, error)

// Ingestor drives the extract -> chunk -> embed -> upsert pipeline over a
// directory of patient documents. Failures are isolated per document; the
// batch keeps going and every document's outcome lands in the status report.
type Ingestor struct {
	extract      ExtractFunc
	chunker      *chunker.Chunker
	embedder     *embedding.Service
	writer       *vectorstore.BatchWriter
	previewChars int
}

func New(chunker *chunker.Chunker, embedder *embedding.Service, writer *vectorstore.BatchWriter, previewChars int) *Ingestor {
	if previewChars <= 0 {
		previewChars = 500
	}
	return &Ingestor{
		extract:      parser.ExtractText,
		chunker:      chunker,
		embedder:     embedder,
		writer:       writer,
		previewChars: previewChars,
	}
}

// WithExtractor swaps the text extractor, mainly for tests.
func (ing *Ingestor) WithExtractor(fn ExtractFunc) *Ingestor {
	ing.extract = fn
	return ing
}

// Run ingests every supported file in the directory. Only a failure to read
// the directory itself aborts the run; everything else is reported per file.
// Records are flushed per document, so memory stays bounded by the largest
// document and the index sees progress as the run goes.
func (ing *Ingestor) Run(ctx context.Context, dir string) ([]models.DocumentStatus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Str("dir", dir).Msg("Starting ingestion")

	var statuses []models.DocumentStatus
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !parser.Supported(filepath.Ext(name)) {
			logger.Debug().Str("file", name).Msg("Skipping unsupported file type")
			continue
		}
		status := ing.ingestFile(ctx, filepath.Join(dir, name), name, &logger)
		statuses = append(statuses, status)
	}

	logger.Info().Int("documents", len(statuses)).Msg("Ingestion finished")
	return statuses, nil
}

func (ing *Ingestor) ingestFile(ctx context.Context, path, name string, logger *zerolog.Logger) models.DocumentStatus {
	patient := strings.TrimSuffix(name, filepath.Ext(name))
	status := models.DocumentStatus{File: name, Patient: patient}

	logger.Info().Str("file", name).Msg("Processing document")

	text, err := ing.extract(path)
	if err != nil {
		logger.Error().Err(err).Str("file", name).Msg("Extraction failed, skipping document")
		status.Err = err
		return status
	}
	if text == "" {
		logger.Warn().Str("file", name).Msg("No text found, skipping document")
		return status
	}

	pieces := ing.chunker.Split(text)
	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{Source: name, Index: i, Text: piece}
	}
	status.Chunks = len(chunks)
	logger.Info().Str("file", name).Int("chunks", len(chunks)).Msg("Chunked document")

	vectors := ing.embedder.EmbedChunks(ctx, chunks)

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			ID:     fmt.Sprintf("%s-chunk-%d", name, chunk.Index),
			Values: vectors[i],
			Metadata: map[string]string{
				models.MetaSource:  name,
				models.MetaChunk:   strconv.Itoa(chunk.Index),
				models.MetaText:    preview(chunk.Text, ing.previewChars),
				models.MetaPatient: patient,
			},
		}
	}

	written, err := ing.writer.Flush(ctx, records)
	status.Indexed = written
	if err != nil {
		logger.Error().Err(err).Str("file", name).Int("indexed", written).Msg("Index write failed")
		status.Err = err
	}
	return status
}

// preview truncates to n characters, not bytes, so a multibyte rune at the
// cut point never produces invalid UTF-8 in the metadata.
func preview(text string, n int) string {
	if len(text) <= n {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
