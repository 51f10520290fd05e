package ingest

import (
	"context"
	"fmt"
	"time"

	"doculens/features/document"
	"doculens/internal/fault"
	"doculens/internal/retry"
)

const (
	persistMaxAttempts = 5
	persistBaseDelay   = 500 * time.Millisecond
)

type MetadataStore interface {
	CreateIfAbsent(ctx context.Context, rec *document.MetadataRecord) error
}

// PersistStage writes the durable metadata record. Create-if-absent keeps
// replay from duplicating rows when the orchestrator re-executes after a
// crash between the write and its checkpoint. Transient store errors are
// retried with bounded exponential backoff; everything else fails the job.
type PersistStage struct {
	store MetadataStore
}

func NewPersistStage(store MetadataStore) *PersistStage {
	return &PersistStage{store: store}
}

func (s *PersistStage) Persist(ctx context.Context, doc *ExtractedDocument) error {
	rec := &document.MetadataRecord{
		ID:           doc.JobID,
		DocumentID:   doc.JobID,
		DocumentType: doc.DocumentType,
		StartPage:    doc.StartPage,
		EndPage:      doc.EndPage,
		FileName:     doc.FileName,
		SourceRef:    doc.SourceRef,
		Content:      doc.Content,
		UploadedAt:   doc.ExtractedAt,
	}

	err := retry.WithBackoff(ctx, func() error {
		return s.store.CreateIfAbsent(ctx, rec)
	}, persistMaxAttempts, persistBaseDelay, fault.IsTransient)
	if err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}
	return nil
}
