package documents

import (
	"context"

	"github.com/dmitrijs2005/docmark/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListAll(ctx context.Context) ([]*models.Document, error)
	ListWithAuthors(ctx context.Context) ([]*models.Document, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Document, error)
	FilterOwned(ctx context.Context, ids []string, authorID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}
