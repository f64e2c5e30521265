// Package documents provides the PostgreSQL-backed repository for converted
// documents and their storage metadata.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/models"
)

const documentColumns = `d.id, d.author_id, d.original_name, d.file_name, d.storage_key, d.file_size, d.content_type,
		d.markdown_content, d.conversion_method, d.processing_time, d.original_url, d.created_at`

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func documentDest(d *models.Document) []any {
	return []any{&d.ID, &d.AuthorID, &d.OriginalName, &d.FileName, &d.StorageKey, &d.FileSize, &d.ContentType,
		&d.MarkdownContent, &d.ConversionMethod, &d.ProcessingTime, &d.OriginalURL, &d.CreatedAt}
}

// Create inserts doc and fills in the generated id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query :=
		`INSERT INTO documents (author_id, original_name, file_name, storage_key, file_size, content_type,
			markdown_content, conversion_method, processing_time, original_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		doc.AuthorID, doc.OriginalName, doc.FileName, doc.StorageKey, doc.FileSize, doc.ContentType,
		doc.MarkdownContent, doc.ConversionMethod, doc.ProcessingTime, doc.OriginalURL,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// GetByID returns a single document or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d WHERE d.id = $1`

	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(documentDest(doc)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// ListAll returns every document, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Document, error) {
	return r.list(ctx, `SELECT `+documentColumns+` FROM documents d ORDER BY d.created_at DESC`)
}

// ListByAuthor returns the documents authored by authorID, newest first.
func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Document, error) {
	return r.list(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.author_id = $1 ORDER BY d.created_at DESC`, authorID)
}

// ListWithAuthors returns every document with its author reference filled in
// when the author still exists.
func (r *PostgresRepository) ListWithAuthors(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + `, u.id, u.name, u.email
		FROM documents d LEFT JOIN users u ON u.id = d.author_id
		ORDER BY d.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []*models.Document{}
	for rows.Next() {
		doc := &models.Document{}
		var authorID, authorName, authorEmail sql.NullString
		dest := append(documentDest(doc), &authorID, &authorName, &authorEmail)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if authorID.Valid {
			doc.Author = &models.UserRef{ID: authorID.String, Name: authorName.String, Email: authorEmail.String}
		}
		result = append(result, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []*models.Document{}
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(documentDest(doc)...); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FilterOwned narrows ids to the ones authored by authorID.
func (r *PostgresRepository) FilterOwned(ctx context.Context, ids []string, authorID string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM documents WHERE author_id = $1 AND id IN (` + dbx.Placeholders(2, len(ids)) + `)`
	args := append([]any{authorID}, dbx.StringArgs(ids)...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes a document row; a missing row is common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
