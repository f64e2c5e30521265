package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docmark/internal/server/models"
)

// Repository persists user accounts. Lookups that match nothing return
// common.ErrorNotFound; a taken email on Create returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	MarkVerifiedByToken(ctx context.Context, token string) (*models.User, error)
	SetVerified(ctx context.Context, id string) error
	SetApproved(ctx context.Context, id string) error
	SetRole(ctx context.Context, id, role string) (*models.User, error)
	EnsureAdmin(ctx context.Context, id, passwordHash string) error

	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)

	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, id, token string) error
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (string, error)
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
