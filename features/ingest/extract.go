package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"doculens/internal/fault"
)

// Analysis is what the external document-analysis capability returns for one
// source object.
type Analysis struct {
	Text      string
	PageCount int
}

type ContentStore interface {
	Get(ctx context.Context, ref string) ([]byte, error)
	IssueReadAccess(ref string, ttl time.Duration) (string, error)
}

// Analyzer is the external document-analysis capability. Classify is an
// optional enrichment: it fails with a configuration error when no
// classification model is set up.
type Analyzer interface {
	Analyze(ctx context.Context, accessToken string) (*Analysis, error)
	Classify(ctx context.Context, accessToken string) (string, error)
}

const (
	// DocumentTypeUnknown is used whenever classification is unavailable or
	// inconclusive.
	DocumentTypeUnknown = "unknown"

	readAccessTTL = time.Hour
)

var plainTextExts = map[string]bool{
	".txt": true,
	".md":  true,
}

// ExtractStage turns a job's source object into plain text. Plain-text files
// are read straight from the content store; everything else goes through the
// analyzer with a time-limited read token.
type ExtractStage struct {
	blobs    ContentStore
	analyzer Analyzer
}

func NewExtractStage(blobs ContentStore, analyzer Analyzer) *ExtractStage {
	return &ExtractStage{blobs: blobs, analyzer: analyzer}
}

func (s *ExtractStage) Extract(ctx context.Context, job IngestionJob) (*ExtractedDocument, error) {
	var (
		content   string
		pageCount = 1
	)

	ext := strings.ToLower(filepath.Ext(job.FileName))
	if plainTextExts[ext] {
		raw, err := s.blobs.Get(ctx, job.SourceRef)
		if err != nil {
			return nil, fault.Upstream(fmt.Errorf("read source object: %w", err))
		}
		if !utf8.Valid(raw) {
			return nil, fault.Upstream(fmt.Errorf("source object %s is not valid UTF-8 text", job.FileName))
		}
		content = string(raw)
		slog.InfoContext(ctx, "read plain text source", "job_id", job.ID, "length", len(content))
	} else {
		token, err := s.blobs.IssueReadAccess(job.SourceRef, readAccessTTL)
		if err != nil {
			return nil, fault.Upstream(fmt.Errorf("issue read access: %w", err))
		}
		res, err := s.analyzer.Analyze(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("analyze document: %w", err)
		}
		content = res.Text
		pageCount = res.PageCount
		if pageCount < 1 {
			pageCount = 1
		}
		slog.InfoContext(ctx, "analysis complete", "job_id", job.ID, "pages", pageCount, "length", len(content))
	}

	docType := s.classify(ctx, job)

	return &ExtractedDocument{
		JobID:        job.ID,
		FileName:     job.FileName,
		SourceRef:    job.SourceRef,
		DocumentType: docType,
		StartPage:    1,
		EndPage:      pageCount,
		Content:      content,
		ExtractedAt:  time.Now().UTC(),
	}, nil
}

// classify is a soft step: any failure, including an unconfigured
// classifier, falls back to "unknown" without failing the job.
func (s *ExtractStage) classify(ctx context.Context, job IngestionJob) string {
	token, err := s.blobs.IssueReadAccess(job.SourceRef, readAccessTTL)
	if err != nil {
		slog.WarnContext(ctx, "classification skipped", "job_id", job.ID, "error", err)
		return DocumentTypeUnknown
	}
	label, err := s.analyzer.Classify(ctx, token)
	if err != nil {
		if fault.IsConfiguration(err) {
			slog.DebugContext(ctx, "classifier not configured", "job_id", job.ID)
		} else {
			slog.WarnContext(ctx, "classification failed, using unknown", "job_id", job.ID, "error", err)
		}
		return DocumentTypeUnknown
	}
	if label == "" {
		return DocumentTypeUnknown
	}
	return label
}
