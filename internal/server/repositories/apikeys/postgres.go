// Package apikeys provides the PostgreSQL-backed repository for third-party
// API credentials.
package apikeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/models"
)

const keyColumns = `id, name, service, key, model, is_active, created_at, updated_at`

// PostgresRepository implements API key storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.ApiKey, error) {
	k := &models.ApiKey{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&k.ID, &k.Name, &k.Service, &k.Key, &k.Model, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

// List returns all keys, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.ApiKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+keyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select api keys: %w", err)
	}
	defer rows.Close()

	result := []*models.ApiKey{}
	for rows.Next() {
		var k models.ApiKey
		if err := rows.Scan(&k.ID, &k.Name, &k.Service, &k.Key, &k.Model, &k.IsActive, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &k)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ApiKey, error) {
	return r.queryOne(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE id = $1`, id)
}

// GetActiveByService returns the active key for service or common.ErrorNotFound.
func (r *PostgresRepository) GetActiveByService(ctx context.Context, service string) (*models.ApiKey, error) {
	query := `SELECT ` + keyColumns + ` FROM api_keys
		WHERE service = $1 AND is_active = TRUE
		ORDER BY updated_at DESC LIMIT 1`
	return r.queryOne(ctx, query, service)
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error) {
	query := `
		INSERT INTO api_keys (name, service, key, model, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + keyColumns
	return r.queryOne(ctx, query, key.Name, key.Service, key.Key, key.Model, key.IsActive)
}

// Update overwrites every mutable field of the key identified by key.ID.
func (r *PostgresRepository) Update(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error) {
	query := `
		UPDATE api_keys
		SET name = $2, service = $3, key = $4, model = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + keyColumns
	return r.queryOne(ctx, query, key.ID, key.Name, key.Service, key.Key, key.Model, key.IsActive)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (*models.ApiKey, error) {
	query := `
		UPDATE api_keys SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + keyColumns
	return r.queryOne(ctx, query, id, active)
}

// DeactivateService switches off every active key of service.
func (r *PostgresRepository) DeactivateService(ctx context.Context, service string) error {
	query := `UPDATE api_keys SET is_active = FALSE, updated_at = now() WHERE service = $1 AND is_active = TRUE`
	if _, err := r.db.ExecContext(ctx, query, service); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
