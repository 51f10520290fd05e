package vector

import (
	"context"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

type MockSchemaClient struct {
	CreatedClass    *models.Class
	ExistingClass   *models.Class
	AddedProperties []*models.Property
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	if m.ExistingClass != nil {
		return true, nil
	}
	return false, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.CreatedClass = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.ExistingClass, nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestEnsureSchema_CreatesClass(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if client.CreatedClass == nil {
		t.Fatal("Class not created")
	}
	if client.CreatedClass.Class != DocumentClass {
		t.Errorf("Expected class %s, got %s", DocumentClass, client.CreatedClass.Class)
	}
	if client.CreatedClass.Vectorizer != "none" {
		t.Errorf("Expected vectorizer none, got %s", client.CreatedClass.Vectorizer)
	}

	expectedProps := map[string]string{
		"fileName":      "string",
		"fileNameLower": "string",
		"sourceRef":     "string",
		"documentType":  "string",
		"content":       "text",
		"uploadedAt":    "date",
	}

	got := map[string]string{}
	for _, prop := range client.CreatedClass.Properties {
		if len(prop.DataType) == 0 {
			t.Fatalf("Property %s has no DataType", prop.Name)
		}
		got[prop.Name] = prop.DataType[0]
	}
	for name, dataType := range expectedProps {
		if got[name] != dataType {
			t.Errorf("Property %s: expected DataType %s, got %s", name, dataType, got[name])
		}
	}
}

func TestEnsureSchema_ExistingClassIsSuccess(t *testing.T) {
	client := &MockSchemaClient{
		ExistingClass: &models.Class{
			Class: DocumentClass,
			Properties: []*models.Property{
				{Name: "fileName", DataType: []string{"string"}},
				{Name: "fileNameLower", DataType: []string{"string"}},
				{Name: "sourceRef", DataType: []string{"string"}},
				{Name: "documentType", DataType: []string{"string"}},
				{Name: "content", DataType: []string{"text"}},
				{Name: "uploadedAt", DataType: []string{"date"}},
			},
		},
	}
	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if client.CreatedClass != nil {
		t.Error("Class should not be recreated")
	}
	if len(client.AddedProperties) != 0 {
		t.Errorf("No properties should be added, got %d", len(client.AddedProperties))
	}
}

func TestEnsureSchema_AddsMissingProperties(t *testing.T) {
	// Class from an older deployment without the lowercased filter copy.
	client := &MockSchemaClient{
		ExistingClass: &models.Class{
			Class: DocumentClass,
			Properties: []*models.Property{
				{Name: "fileName", DataType: []string{"string"}},
				{Name: "sourceRef", DataType: []string{"string"}},
				{Name: "documentType", DataType: []string{"string"}},
				{Name: "content", DataType: []string{"text"}},
				{Name: "uploadedAt", DataType: []string{"date"}},
			},
		},
	}
	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if len(client.AddedProperties) != 1 {
		t.Fatalf("Expected 1 added property, got %d", len(client.AddedProperties))
	}
	if client.AddedProperties[0].Name != "fileNameLower" {
		t.Errorf("Expected fileNameLower to be added, got %s", client.AddedProperties[0].Name)
	}
}
