package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// embedCap bounds the text sent to the embedding model. The full content is
// still stored on the index record and in the metadata store.
const embedCap = 8000

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type SearchIndex interface {
	// EnsureIndex creates the target index if absent. "Already exists" is
	// success.
	EnsureIndex(ctx context.Context) error
	// Upsert merge-or-inserts the record keyed by its ID.
	Upsert(ctx context.Context, rec IndexRecord) error
	Delete(ctx context.Context, id string) error
}

// IndexStage computes an embedding for the extracted content and upserts a
// searchable record. Embedding failure degrades to a vectorless record; the
// document stays retrievable by its non-vector fields.
type IndexStage struct {
	embedder Embedder
	index    SearchIndex
}

func NewIndexStage(embedder Embedder, index SearchIndex) *IndexStage {
	return &IndexStage{embedder: embedder, index: index}
}

func (s *IndexStage) Index(ctx context.Context, doc *ExtractedDocument) error {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	var vector []float32
	if doc.Content != "" {
		text := doc.Content
		if len(text) > embedCap {
			text = text[:embedCap]
		}
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			slog.WarnContext(ctx, "embedding failed, indexing without vector", "job_id", doc.JobID, "error", err)
		} else {
			vector = vec
		}
	}

	rec := IndexRecord{
		ID:           doc.JobID,
		FileName:     doc.FileName,
		SourceRef:    doc.SourceRef,
		DocumentType: doc.DocumentType,
		Content:      doc.Content,
		Vector:       vector,
		UploadedAt:   doc.ExtractedAt,
	}
	if err := s.index.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert index record: %w", err)
	}

	slog.InfoContext(ctx, "document indexed", "job_id", doc.JobID, "has_vector", vector != nil)
	return nil
}
