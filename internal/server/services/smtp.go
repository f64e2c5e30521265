package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docmark/internal/dbx"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/mailer"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/repomanager"
)

// SmtpTester sends the settings test email through a given config.
type SmtpTester interface {
	SendTest(ctx context.Context, cfg *models.SmtpConfig, to string) (*mailer.Info, error)
}

// SmtpPatch is a partial update. Nil fields, empty strings and a zero port
// keep the stored value.
type SmtpPatch struct {
	Host      *string
	Port      *int
	Secure    *bool
	AuthUser  *string
	AuthPass  *string
	FromEmail *string
	FromName  *string
	IsActive  *bool
}

// SmtpService manages outgoing mail servers. At most one is active; the
// account emails always go through it.
type SmtpService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tester      SmtpTester
	logger      logging.Logger
}

func NewSmtpService(db *sql.DB, m repomanager.RepositoryManager, tester SmtpTester, logger logging.Logger) *SmtpService {
	return &SmtpService{db: db, repomanager: m, tester: tester, logger: logger.With("module", "smtp")}
}

func (s *SmtpService) List(ctx context.Context) ([]*models.SmtpConfig, error) {
	return s.repomanager.SmtpConfigs(s.db).List(ctx)
}

// Active returns the active config or common.ErrorNotFound.
func (s *SmtpService) Active(ctx context.Context) (*models.SmtpConfig, error) {
	return s.repomanager.SmtpConfigs(s.db).GetActive(ctx)
}

// Create stores cfg on behalf of actorID. An active config switches the
// others off.
func (s *SmtpService) Create(ctx context.Context, cfg *models.SmtpConfig, actorID string) (*models.SmtpConfig, error) {
	cfg.CreatedBy = &actorID

	var out *models.SmtpConfig
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.SmtpConfigs(tx)
		if cfg.IsActive {
			if err := repo.DeactivateOthers(ctx, ""); err != nil {
				return err
			}
		}
		var err error
		out, err = repo.Create(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "smtp config created", "id", out.ID, "host", out.Host)
	return out, nil
}

func (s *SmtpService) Update(ctx context.Context, id string, p *SmtpPatch) (*models.SmtpConfig, error) {
	var out *models.SmtpConfig
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.SmtpConfigs(tx)
		cfg, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p.apply(cfg)
		if p.IsActive != nil && *p.IsActive {
			if err := repo.DeactivateOthers(ctx, id); err != nil {
				return err
			}
		}
		out, err = repo.Update(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "smtp config updated", "id", id)
	return out, nil
}

// Toggle flips is_active. Switching a config on switches the others off.
func (s *SmtpService) Toggle(ctx context.Context, id string) (*models.SmtpConfig, error) {
	var out *models.SmtpConfig
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.SmtpConfigs(tx)
		cfg, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		cfg.IsActive = !cfg.IsActive
		if cfg.IsActive {
			if err := repo.DeactivateOthers(ctx, id); err != nil {
				return err
			}
		}
		out, err = repo.Update(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "smtp config toggled", "id", id, "active", out.IsActive)
	return out, nil
}

func (s *SmtpService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.SmtpConfigs(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "smtp config deleted", "id", id)
	return nil
}

// TestActive sends a test email through the active config.
func (s *SmtpService) TestActive(ctx context.Context, to string) (*mailer.Info, error) {
	cfg, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	return s.tester.SendTest(ctx, cfg, to)
}

// Test sends a test email through an unsaved config.
func (s *SmtpService) Test(ctx context.Context, cfg *models.SmtpConfig, to string) (*mailer.Info, error) {
	return s.tester.SendTest(ctx, cfg, to)
}

func (p *SmtpPatch) apply(cfg *models.SmtpConfig) {
	setString := func(dst *string, v *string) {
		if v != nil && *v != "" {
			*dst = *v
		}
	}
	setString(&cfg.Host, p.Host)
	setString(&cfg.AuthUser, p.AuthUser)
	setString(&cfg.AuthPass, p.AuthPass)
	setString(&cfg.FromEmail, p.FromEmail)
	setString(&cfg.FromName, p.FromName)
	if p.Port != nil && *p.Port != 0 {
		cfg.Port = *p.Port
	}
	if p.Secure != nil {
		cfg.Secure = *p.Secure
	}
	if p.IsActive != nil {
		cfg.IsActive = *p.IsActive
	}
}
