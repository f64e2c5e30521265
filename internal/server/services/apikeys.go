package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/repomanager"
)

// ApiKeyService manages third-party credentials. Activating a key
// deactivates the other keys of its service in the same transaction.
type ApiKeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewApiKeyService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ApiKeyService {
	return &ApiKeyService{db: db, repomanager: m, logger: logger.With("module", "apikeys")}
}

func (s *ApiKeyService) List(ctx context.Context) ([]*models.ApiKey, error) {
	return s.repomanager.ApiKeys(s.db).List(ctx)
}

func (s *ApiKeyService) Get(ctx context.Context, id string) (*models.ApiKey, error) {
	return s.repomanager.ApiKeys(s.db).GetByID(ctx, id)
}

// Active returns the active key of service or common.ErrorNotFound.
func (s *ApiKeyService) Active(ctx context.Context, service string) (*models.ApiKey, error) {
	return s.repomanager.ApiKeys(s.db).GetActiveByService(ctx, strings.ToLower(service))
}

func (s *ApiKeyService) Create(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error) {
	key.Service = strings.ToLower(key.Service)

	var out *models.ApiKey
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.ApiKeys(tx)
		if key.IsActive {
			if err := repo.DeactivateService(ctx, key.Service); err != nil {
				return err
			}
		}
		var err error
		out, err = repo.Create(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "api key created", "id", out.ID, "service", out.Service)
	return out, nil
}

// Update replaces every field of the key. Turning it on deactivates its
// service siblings.
func (s *ApiKeyService) Update(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error) {
	key.Service = strings.ToLower(key.Service)

	var out *models.ApiKey
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.ApiKeys(tx)
		current, err := repo.GetByID(ctx, key.ID)
		if err != nil {
			return err
		}
		if key.IsActive && !current.IsActive {
			if err := repo.DeactivateService(ctx, key.Service); err != nil {
				return err
			}
		}
		out, err = repo.Update(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "api key updated", "id", out.ID)
	return out, nil
}

// Toggle flips is_active.
func (s *ApiKeyService) Toggle(ctx context.Context, id string) (*models.ApiKey, error) {
	var out *models.ApiKey
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.ApiKeys(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.IsActive {
			if err := repo.DeactivateService(ctx, current.Service); err != nil {
				return err
			}
		}
		out, err = repo.SetActive(ctx, id, !current.IsActive)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "api key toggled", "id", id, "active", out.IsActive)
	return out, nil
}

func (s *ApiKeyService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.ApiKeys(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "api key deleted", "id", id)
	return nil
}
