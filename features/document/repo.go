package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"doculens/internal/fault"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, rec *MetadataRecord) error {
	query := `INSERT INTO documents (id, document_id, document_type, start_page, end_page, file_name, source_ref, content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DocumentID, rec.DocumentType, rec.StartPage, rec.EndPage,
		rec.FileName, rec.SourceRef, rec.Content, rec.UploadedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (r *PostgresRepo) GetByDocumentID(ctx context.Context, documentID string) (*MetadataRecord, error) {
	rec := &MetadataRecord{}
	query := `SELECT id, document_id, document_type, start_page, end_page, file_name, source_ref, content, uploaded_at
		FROM documents WHERE document_id = $1`
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(
		&rec.ID, &rec.DocumentID, &rec.DocumentType, &rec.StartPage, &rec.EndPage,
		&rec.FileName, &rec.SourceRef, &rec.Content, &rec.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]MetadataRecord, error) {
	query := `SELECT id, document_id, document_type, start_page, end_page, file_name, source_ref, uploaded_at
		FROM documents ORDER BY uploaded_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var recs []MetadataRecord
	for rows.Next() {
		var rec MetadataRecord
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.DocumentType, &rec.StartPage, &rec.EndPage,
			&rec.FileName, &rec.SourceRef, &rec.UploadedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, documentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return nil
}

// classify maps store errors onto the workflow taxonomy so the persistence
// stage can retry rate-limit-class failures and fail fast on the rest.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := string(pqErr.Code.Class())
		// 53 insufficient resources, 57 operator intervention, 58 system error
		if class == "53" || class == "57" || class == "58" {
			return fault.Transient(err)
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "connection refused") {
		return fault.Transient(err)
	}
	return err
}
