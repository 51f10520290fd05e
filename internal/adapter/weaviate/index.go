// Package weaviate implements the search index over a Weaviate instance:
// idempotent schema creation, ID-keyed upserts (batch imports overwrite
// same-ID objects), filtered nearest-neighbor search and deletes.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	wfault "github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"doculens/features/chat"
	"doculens/features/ingest"
	"doculens/internal/vector"
)

type Index struct {
	client *weaviate.Client
}

func NewIndex(client *weaviate.Client) *Index {
	return &Index{client: client}
}

func (s *Index) EnsureIndex(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// Upsert merge-or-inserts the record keyed by its ID. A record without a
// vector is still stored and remains retrievable by its non-vector fields.
func (s *Index) Upsert(ctx context.Context, rec ingest.IndexRecord) error {
	obj := &models.Object{
		ID:    strfmt.UUID(rec.ID),
		Class: vector.DocumentClass,
		Properties: map[string]interface{}{
			"fileName":      rec.FileName,
			"fileNameLower": strings.ToLower(rec.FileName),
			"sourceRef":     rec.SourceRef,
			"documentType":  rec.DocumentType,
			"content":       rec.Content,
			"uploadedAt":    rec.UploadedAt.Format(time.RFC3339),
		},
	}
	if rec.Vector != nil {
		obj.Vector = models.C11yVector(rec.Vector)
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (s *Index) Delete(ctx context.Context, id string) error {
	err := s.client.Data().Deleter().
		WithClassName(vector.DocumentClass).
		WithID(id).
		Do(ctx)
	if err != nil {
		var clientErr *wfault.WeaviateClientError
		if errors.As(err, &clientErr) && clientErr.StatusCode == 404 {
			return nil
		}
		return err
	}
	return nil
}

// Search runs a nearVector query restricted to the given file names
// (matched case-insensitively against the lowercased copy field).
func (s *Index) Search(ctx context.Context, vec []float32, fileNames []string, limit int) ([]chat.Hit, error) {
	near := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "fileName"},
		{Name: "content"},
	}

	query := s.client.GraphQL().Get().
		WithClassName(vector.DocumentClass).
		WithNearVector(near).
		WithLimit(limit).
		WithFields(fields...)

	if len(fileNames) > 0 {
		operands := make([]*filters.WhereBuilder, 0, len(fileNames))
		for _, name := range fileNames {
			operands = append(operands, filters.Where().
				WithPath([]string{"fileNameLower"}).
				WithOperator(filters.Equal).
				WithValueString(strings.ToLower(name)))
		}
		query = query.WithWhere(filters.Where().
			WithOperator(filters.Or).
			WithOperands(operands))
	}

	res, err := query.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []chat.Hit
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if docs, ok := data[vector.DocumentClass].([]interface{}); ok {
			for _, d := range docs {
				props, ok := d.(map[string]interface{})
				if !ok {
					continue
				}
				hit := chat.Hit{}
				if fileName, ok := props["fileName"].(string); ok {
					hit.FileName = fileName
				}
				if content, ok := props["content"].(string); ok {
					hit.Content = content
				}
				hits = append(hits, hit)
			}
		}
	}
	return hits, nil
}
