// Package smtpconfigs provides the PostgreSQL-backed repository for outgoing
// mail server settings.
package smtpconfigs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/models"
)

const selectConfigs = `SELECT s.id, s.host, s.port, s.secure, s.auth_user, s.auth_pass, s.from_email, s.from_name,
		s.is_active, s.created_by, s.created_at, s.updated_at, u.name, u.email
	FROM smtp_configs s LEFT JOIN users u ON u.id = s.created_by`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(s scanner) (*models.SmtpConfig, error) {
	c := &models.SmtpConfig{}
	var creatorName, creatorEmail sql.NullString
	err := s.Scan(&c.ID, &c.Host, &c.Port, &c.Secure, &c.AuthUser, &c.AuthPass, &c.FromEmail, &c.FromName,
		&c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &creatorName, &creatorEmail)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != nil && creatorName.Valid {
		c.Creator = &models.UserRef{ID: *c.CreatedBy, Name: creatorName.String, Email: creatorEmail.String}
	}
	return c, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.SmtpConfig, error) {
	c, err := scanConfig(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.SmtpConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectConfigs+` ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select smtp configs: %w", err)
	}
	defer rows.Close()

	result := []*models.SmtpConfig{}
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.SmtpConfig, error) {
	return r.queryOne(ctx, selectConfigs+` WHERE s.id = $1`, id)
}

// GetActive returns the most recently updated active config.
func (r *PostgresRepository) GetActive(ctx context.Context) (*models.SmtpConfig, error) {
	return r.queryOne(ctx, selectConfigs+` WHERE s.is_active = TRUE ORDER BY s.updated_at DESC LIMIT 1`)
}

func (r *PostgresRepository) Create(ctx context.Context, cfg *models.SmtpConfig) (*models.SmtpConfig, error) {
	query :=
		`INSERT INTO smtp_configs (host, port, secure, auth_user, auth_pass, from_email, from_name, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		cfg.Host, cfg.Port, cfg.Secure, cfg.AuthUser, cfg.AuthPass, cfg.FromEmail, cfg.FromName, cfg.IsActive, cfg.CreatedBy,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cfg, nil
}

func (r *PostgresRepository) Update(ctx context.Context, cfg *models.SmtpConfig) (*models.SmtpConfig, error) {
	query :=
		`UPDATE smtp_configs
		 SET host = $2, port = $3, secure = $4, auth_user = $5, auth_pass = $6, from_email = $7, from_name = $8,
		     is_active = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		cfg.ID, cfg.Host, cfg.Port, cfg.Secure, cfg.AuthUser, cfg.AuthPass, cfg.FromEmail, cfg.FromName, cfg.IsActive,
	).Scan(&cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cfg, nil
}

// DeactivateOthers switches off every active config except exceptID.
// An empty exceptID deactivates all of them.
func (r *PostgresRepository) DeactivateOthers(ctx context.Context, exceptID string) error {
	query := `UPDATE smtp_configs SET is_active = FALSE, updated_at = now()
		WHERE is_active = TRUE AND id::text <> $1`
	if _, err := r.db.ExecContext(ctx, query, exceptID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM smtp_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete smtp config: %w", err)
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
