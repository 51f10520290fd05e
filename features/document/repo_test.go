package document_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doculens/features/document"
	"doculens/internal/fault"
)

func testRecord() *document.MetadataRecord {
	return &document.MetadataRecord{
		ID:           "doc-1",
		DocumentID:   "doc-1",
		DocumentType: "invoice",
		StartPage:    1,
		EndPage:      3,
		FileName:     "invoice.pdf",
		SourceRef:    "blobs/invoice.pdf",
		Content:      "invoice text",
		UploadedAt:   time.Now().UTC(),
	}
}

func TestPostgresRepo_CreateIfAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	rec := testRecord()

	t.Run("inserts new record", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
			WithArgs(rec.ID, rec.DocumentID, rec.DocumentType, rec.StartPage, rec.EndPage,
				rec.FileName, rec.SourceRef, rec.Content, rec.UploadedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.CreateIfAbsent(context.Background(), rec))
	})

	t.Run("existing record is a no-op", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
			WithArgs(rec.ID, rec.DocumentID, rec.DocumentType, rec.StartPage, rec.EndPage,
				rec.FileName, rec.SourceRef, rec.Content, rec.UploadedAt).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.CreateIfAbsent(context.Background(), rec))
	})

	t.Run("resource exhaustion is transient", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
			WithArgs(rec.ID, rec.DocumentID, rec.DocumentType, rec.StartPage, rec.EndPage,
				rec.FileName, rec.SourceRef, rec.Content, rec.UploadedAt).
			WillReturnError(&pq.Error{Code: "53300", Message: "too many connections"})

		err := repo.CreateIfAbsent(context.Background(), rec)
		require.Error(t, err)
		assert.True(t, fault.IsTransient(err))
	})

	t.Run("constraint violation is not transient", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
			WithArgs(rec.ID, rec.DocumentID, rec.DocumentType, rec.StartPage, rec.EndPage,
				rec.FileName, rec.SourceRef, rec.Content, rec.UploadedAt).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

		err := repo.CreateIfAbsent(context.Background(), rec)
		require.Error(t, err)
		assert.False(t, fault.IsTransient(err))
	})
}

func TestPostgresRepo_GetByDocumentID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "document_id", "document_type", "start_page", "end_page", "file_name", "source_ref", "content", "uploaded_at"}).
			AddRow("doc-1", "doc-1", "invoice", 1, 3, "invoice.pdf", "blobs/invoice.pdf", "invoice text", time.Now())
		mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE document_id = $1")).
			WithArgs("doc-1").
			WillReturnRows(rows)

		rec, err := repo.GetByDocumentID(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "invoice", rec.DocumentType)
		assert.Equal(t, "invoice text", rec.Content)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE document_id = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByDocumentID(context.Background(), "missing")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "document_id", "document_type", "start_page", "end_page", "file_name", "source_ref", "uploaded_at"}).
		AddRow("doc-2", "doc-2", "unknown", 1, 1, "b.txt", "blobs/b.txt", time.Now()).
		AddRow("doc-1", "doc-1", "invoice", 1, 3, "a.pdf", "blobs/a.pdf", time.Now().Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents ORDER BY uploaded_at DESC")).
		WillReturnRows(rows)

	recs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "doc-2", recs[0].DocumentID)
	// Listing omits the heavy content column.
	assert.Empty(t, recs[0].Content)
}

func TestPostgresRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	t.Run("deletes", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE document_id = $1")).
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), "doc-1"))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents WHERE document_id = $1")).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "missing")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})
}
