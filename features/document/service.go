package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"doculens/internal/blob"
)

type BlobStore interface {
	Delete(ctx context.Context, ref string) error
}

type SearchIndex interface {
	Delete(ctx context.Context, id string) error
}

// DeleteOutcome reports which of the three backing stores actually held the
// document. "Not found" anywhere is a tolerated partial outcome, not an
// error.
type DeleteOutcome struct {
	MetadataDeleted bool `json:"metadata_deleted"`
	BlobDeleted     bool `json:"blob_deleted"`
	IndexDeleted    bool `json:"index_deleted"`
}

type Service struct {
	repo  Repository
	blobs BlobStore
	index SearchIndex
}

func NewService(repo Repository, blobs BlobStore, index SearchIndex) *Service {
	return &Service{repo: repo, blobs: blobs, index: index}
}

func (s *Service) Get(ctx context.Context, documentID string) (*MetadataRecord, error) {
	return s.repo.GetByDocumentID(ctx, documentID)
}

func (s *Service) List(ctx context.Context) ([]MetadataRecord, error) {
	return s.repo.List(ctx)
}

// Delete removes the metadata record, the stored content object and the
// index entry. Each removal tolerates "not found"; any other failure aborts
// with the partial outcome so far.
func (s *Service) Delete(ctx context.Context, documentID, sourceRef string) (*DeleteOutcome, error) {
	outcome := &DeleteOutcome{}

	rec, err := s.repo.GetByDocumentID(ctx, documentID)
	switch {
	case errors.Is(err, ErrNotFound):
		slog.WarnContext(ctx, "metadata record not found on delete", "document_id", documentID)
	case err != nil:
		return outcome, fmt.Errorf("lookup metadata: %w", err)
	default:
		if sourceRef == "" {
			sourceRef = rec.SourceRef
		}
		if err := s.repo.Delete(ctx, documentID); err != nil && !errors.Is(err, ErrNotFound) {
			return outcome, fmt.Errorf("delete metadata: %w", err)
		}
		outcome.MetadataDeleted = true
	}

	if sourceRef != "" {
		err := s.blobs.Delete(ctx, sourceRef)
		switch {
		case errors.Is(err, blob.ErrNotFound):
			slog.WarnContext(ctx, "content object not found on delete", "document_id", documentID, "source_ref", sourceRef)
		case err != nil:
			return outcome, fmt.Errorf("delete content object: %w", err)
		default:
			outcome.BlobDeleted = true
		}
	}

	if err := s.index.Delete(ctx, documentID); err != nil {
		// The index may never have held this document (indexing is
		// best-effort) so a miss here is routine.
		slog.WarnContext(ctx, "index entry not deleted", "document_id", documentID, "error", err)
	} else {
		outcome.IndexDeleted = true
	}

	slog.InfoContext(ctx, "document deleted", "document_id", documentID,
		"metadata", outcome.MetadataDeleted, "blob", outcome.BlobDeleted, "index", outcome.IndexDeleted)
	return outcome, nil
}
