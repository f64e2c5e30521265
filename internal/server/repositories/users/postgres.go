package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/server/models"
)

const userColumns = `id, email, password_hash, name, role, is_verified, is_approved,
		verification_token, reset_password_token, reset_password_expires, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsVerified, &u.IsApproved,
		&u.VerificationToken, &u.ResetPasswordToken, &u.ResetPasswordExpires, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// execOne runs a statement expected to touch a row; zero rows is ErrorNotFound.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, password_hash, name, role, is_verified, is_approved, verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Role, user.IsVerified, user.IsApproved, user.VerificationToken,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// MarkVerifiedByToken consumes a verification token: the flag is set and the
// token cleared in one statement, so a replayed token matches nothing.
func (r *PostgresRepository) MarkVerifiedByToken(ctx context.Context, token string) (*models.User, error) {
	query :=
		`UPDATE users SET is_verified = TRUE, verification_token = NULL
		 WHERE verification_token = $1
		 RETURNING ` + userColumns

	return r.queryOne(ctx, query, token)
}

// SetVerified flips is_verified on a not yet verified user.
func (r *PostgresRepository) SetVerified(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET is_verified = TRUE, verification_token = NULL
		 WHERE id = $1 AND is_verified = FALSE`

	return r.execOne(ctx, query, id)
}

// SetApproved flips is_approved on a not yet approved user.
func (r *PostgresRepository) SetApproved(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET is_approved = TRUE
		 WHERE id = $1 AND is_approved = FALSE`

	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	query :=
		`UPDATE users SET role = $2
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.queryOne(ctx, query, id, role)
}

func (r *PostgresRepository) EnsureAdmin(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET role = 'admin', is_verified = TRUE, is_approved = TRUE,
		 verification_token = NULL, password_hash = $2
		 WHERE id = $1`

	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM users WHERE id IN (` + dbx.Placeholders(1, len(ids)) + `)`
	res, err := r.db.ExecContext(ctx, query, dbx.StringArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// SetResetToken overwrites any previous reset pair; the last writer wins.
func (r *PostgresRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	query :=
		`UPDATE users SET reset_password_token = $2, reset_password_expires = $3
		 WHERE id = $1`

	return r.execOne(ctx, query, id, token, expires)
}

// ClearResetToken removes the reset pair only while it still holds token.
func (r *PostgresRepository) ClearResetToken(ctx context.Context, id, token string) error {
	query :=
		`UPDATE users SET reset_password_token = NULL, reset_password_expires = NULL
		 WHERE id = $1 AND reset_password_token = $2`

	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ResetPassword replaces the password of the user holding an unexpired token
// and returns that user's id.
func (r *PostgresRepository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (string, error) {
	query :=
		`UPDATE users SET password_hash = $2, reset_password_token = NULL, reset_password_expires = NULL
		 WHERE reset_password_token = $1 AND reset_password_expires > $3
		 RETURNING id`

	var id string
	err := r.db.QueryRowContext(ctx, query, token, passwordHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`UPDATE users SET reset_password_token = NULL, reset_password_expires = NULL
		 WHERE reset_password_token IS NOT NULL AND reset_password_expires <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
