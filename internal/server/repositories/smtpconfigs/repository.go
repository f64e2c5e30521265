package smtpconfigs

import (
	"context"

	"github.com/dmitrijs2005/docmark/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.SmtpConfig, error)
	GetByID(ctx context.Context, id string) (*models.SmtpConfig, error)
	GetActive(ctx context.Context) (*models.SmtpConfig, error)
	Create(ctx context.Context, cfg *models.SmtpConfig) (*models.SmtpConfig, error)
	Update(ctx context.Context, cfg *models.SmtpConfig) (*models.SmtpConfig, error)
	DeactivateOthers(ctx context.Context, exceptID string) error
	Delete(ctx context.Context, id string) error
}
