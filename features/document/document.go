// Package document owns the durable metadata records: the source of truth
// for "the document exists". A record is written exactly once per completed
// ingestion job.
package document

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// MetadataRecord is the durable record for one ingested document, keyed by
// DocumentID.
type MetadataRecord struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	DocumentType string    `json:"document_type"`
	StartPage    int       `json:"start_page"`
	EndPage      int       `json:"end_page"`
	FileName     string    `json:"file_name"`
	SourceRef    string    `json:"source_ref"`
	Content      string    `json:"content,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Repository interface {
	// CreateIfAbsent inserts the record unless one already exists for its
	// DocumentID. Idempotent under repetition.
	CreateIfAbsent(ctx context.Context, rec *MetadataRecord) error
	GetByDocumentID(ctx context.Context, documentID string) (*MetadataRecord, error)
	List(ctx context.Context) ([]MetadataRecord, error)
	Delete(ctx context.Context, documentID string) error
}
