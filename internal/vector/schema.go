package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// DocumentClass is the Weaviate class holding one searchable record per
// ingested document.
const DocumentClass = "Document"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema checks that the document class exists and creates it if not.
// Safe to call repeatedly and from concurrent jobs: "already exists" is
// success, and missing properties are added to an existing class.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, DocumentClass)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "fileName",
			DataType: []string{"string"}, // exact match
		},
		{
			Name:     "fileNameLower",
			DataType: []string{"string"}, // lowercased copy for case-insensitive filters
		},
		{
			Name:     "sourceRef",
			DataType: []string{"string"},
		},
		{
			Name:     "documentType",
			DataType: []string{"string"},
		},
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "uploadedAt",
			DataType: []string{"date"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       DocumentClass,
			Description: "An ingested document with its extracted text",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	// Class exists, check for missing properties
	class, err := client.GetClass(ctx, DocumentClass)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, DocumentClass, p); err != nil {
				return err
			}
		}
	}

	return nil
}
