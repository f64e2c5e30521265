package apikeys

import (
	"context"

	"github.com/dmitrijs2005/docmark/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.ApiKey, error)
	GetByID(ctx context.Context, id string) (*models.ApiKey, error)
	GetActiveByService(ctx context.Context, service string) (*models.ApiKey, error)
	Create(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error)
	Update(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error)
	SetActive(ctx context.Context, id string, active bool) (*models.ApiKey, error)
	DeactivateService(ctx context.Context, service string) error
	Delete(ctx context.Context, id string) error
}
